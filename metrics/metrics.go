package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// HTTPRequestsTotal counts finished requests. route is the echo route
	// pattern, never the raw path, to keep label cardinality bounded.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency distributions.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// CacheLookups counts response cache lookups by result (hit, miss).
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disk_cache_lookups_total",
			Help: "Response cache lookups by result.",
		},
		[]string{"result"},
	)

	// UpstreamRequests counts calls to the resolution API by status code,
	// "error" when no response was received.
	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disk_upstream_requests_total",
			Help: "Calls to the public resource resolution API.",
		},
		[]string{"status"},
	)
)

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDurationSeconds,
			CacheLookups,
			UpstreamRequests,
		)
	})
}

// Middleware records request count and latency per route.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = "UNMATCHED"
			}
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok && !c.Response().Committed {
				status = he.Code
			}
			method := c.Request().Method
			HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			HTTPRequestDurationSeconds.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
