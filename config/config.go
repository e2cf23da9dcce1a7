// config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds runtime configuration for the app.
type Config struct {
	Port     string `validate:"required,numeric"`
	AppEnv   string // "development" | "production"
	LogLevel string

	PublicDir string

	RedisURL  string `validate:"required"`
	QueueName string `validate:"required"`

	DiskHost   string `validate:"required,url"`
	DiskAPIURL string `validate:"required,url"`

	CacheTTL        time.Duration `validate:"gt=0"`
	CacheSize       int           `validate:"min=1"`
	UpstreamTimeout time.Duration `validate:"min=0"`
	RateLimit       int           `validate:"min=0"` // resolver requests per minute per client, 0 = off

	AdminAddr       string
	TracingEnabled  bool
	OtlpEndpoint    string
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

var validate = validator.New()

func Load() (*Config, error) {
	cfg := &Config{
		Port:     getenv("PORT", "3000"),
		AppEnv:   getenv("APP_ENV", "production"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		PublicDir: getenv("PUBLIC_DIR", "public"),

		RedisURL:  getenv("REDIS_URL", "redis://localhost:6379"),
		QueueName: getenv("QUEUE_NAME", "render"),

		DiskHost:   strings.TrimRight(getenv("DISK_HOST", "https://disk.yandex.ru"), "/"),
		DiskAPIURL: getenv("DISK_API_URL", "https://cloud-api.yandex.net/v1/disk/public/resources/download"),

		AdminAddr:    os.Getenv("ADMIN_ADDR"),
		OtlpEndpoint: getenv("OTLP_ENDPOINT", "127.0.0.1:4317"),
	}

	var err error
	if cfg.CacheTTL, err = getduration("CACHE_TTL", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.UpstreamTimeout, err = getduration("UPSTREAM_TIMEOUT", 0); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getduration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.CacheSize, err = getint("CACHE_SIZE", 1024); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = getint("RATE_LIMIT", 0); err != nil {
		return nil, err
	}
	cfg.TracingEnabled = strings.EqualFold(os.Getenv("TRACING_ENABLED"), "true")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Development reports whether the verbose development logger should be used.
func (c *Config) Development() bool {
	return c.LogLevel == "debug" || c.AppEnv == "development"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getduration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
