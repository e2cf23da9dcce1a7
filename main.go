package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload" // loads .env automatically if present

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"yadlink/cache"
	"yadlink/config"
	"yadlink/disk"
	"yadlink/handlers/health"
	"yadlink/handlers/link"
	h "yadlink/helpers"
	"yadlink/metrics"
	"yadlink/queue"
	"yadlink/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wrap := func(next http.Handler) http.Handler { return next }
	if cfg.TracingEnabled {
		shutdown, err := tracing.Init(ctx, cfg.OtlpEndpoint)
		if err != nil {
			logger.Error("tracing disabled", zap.Error(err))
		} else {
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := shutdown(sctx); err != nil {
					logger.Warn("tracing shutdown", zap.Error(err))
				}
			}()
			wrap = tracing.Handler
		}
	}

	q, err := queue.New(cfg.QueueName, cfg.RedisURL, logger)
	if err != nil {
		logger.Fatal("queue", zap.Error(err))
	}
	defer q.Close()
	go func() {
		if err := q.Warmup(ctx, 5, 200*time.Millisecond); err != nil {
			logger.Warn("queue redis not reachable at startup", zap.String("queue", q.Name), zap.Error(err))
		}
	}()

	responses, err := cache.NewResponses(cfg.CacheSize, cfg.CacheTTL)
	if err != nil {
		logger.Fatal("response cache", zap.Error(err))
	}
	httpClient := &http.Client{
		Timeout:   cfg.UpstreamTimeout,
		Transport: tracing.Transport(http.DefaultTransport),
	}
	diskClient := disk.New(httpClient, cfg.DiskAPIURL, cfg.DiskHost, responses, logger)

	var limiter *h.ClientLimiter
	if cfg.RateLimit > 0 {
		limiter = h.NewClientLimiter(cfg.RateLimit)
		go limiter.Run(ctx)
	}

	metrics.Init()
	srv := NewServer(logger, link.New(diskClient, logger), health.New(q, logger), limiter, cfg.PublicDir)

	errch := make(chan error, 2)
	go func() {
		errch <- srv.Start(fmt.Sprintf(":%s", cfg.Port), wrap)
	}()

	var admin *http.Server
	if cfg.AdminAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		admin = &http.Server{Addr: cfg.AdminAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("admin server starting", zap.String("addr", cfg.AdminAddr))
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errch <- fmt.Errorf("admin: %w", err)
			}
		}()
	}

	select {
	case err := <-errch:
		if err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if admin != nil {
		if err := admin.Shutdown(sctx); err != nil {
			logger.Error("admin shutdown", zap.Error(err))
		}
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
