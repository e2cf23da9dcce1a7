package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"yadlink/handlers/health"
	"yadlink/handlers/link"
	h "yadlink/helpers"
	"yadlink/metrics"
)

type Server struct {
	E         *echo.Echo
	HTTP      *http.Server
	Log       *zap.Logger
	Link      *link.Link
	Health    *health.Health
	Limiter   *h.ClientLimiter // nil disables rate limiting
	PublicDir string
}

func NewServer(log *zap.Logger, linkH *link.Link, healthH *health.Health, limiter *h.ClientLimiter, publicDir string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		E:         e,
		Log:       log,
		Link:      linkH,
		Health:    healthH,
		Limiter:   limiter,
		PublicDir: publicDir,
	}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: h.NewRequestID}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				zap.String("request_id", v.RequestID),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	}))
	e.Use(metrics.Middleware())
	e.Use(middleware.CORS())
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "0",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		HSTSMaxAge:         15552000,
		ReferrerPolicy:     "no-referrer",
	}))
	// files under PublicDir win over routes; misses fall through
	e.Use(middleware.StaticWithConfig(middleware.StaticConfig{Root: publicDir}))

	s.routes()
	return s
}

func (s *Server) routes() {
	s.E.GET("/ping", s.Health.Ping)
	s.E.GET("/healthz", s.Health.Healthz)

	var mw []echo.MiddlewareFunc
	if s.Limiter != nil {
		mw = append(mw, s.Limiter.Middleware())
	}
	s.E.GET("/d/*", s.Link.Resolve, mw...)
	s.E.GET("/i/*", s.Link.Resolve, mw...)

	s.E.Any("/*", s.Link.Fallback)
}

// handleError turns unmatched routes and methods into a redirect to the root.
func (s *Server) handleError(err error, c echo.Context) {
	var he *echo.HTTPError
	if errors.As(err, &he) && (he.Code == http.StatusNotFound || he.Code == http.StatusMethodNotAllowed) {
		if !c.Response().Committed {
			_ = c.Redirect(http.StatusFound, "/")
		}
		return
	}
	s.Log.Error("unhandled error", zap.String("uri", c.Request().RequestURI), zap.Error(err))
	s.E.DefaultHTTPErrorHandler(err, c)
}

// Start listens on addr until Shutdown. wrap, when set, decorates the echo handler.
func (s *Server) Start(addr string, wrap func(http.Handler) http.Handler) error {
	var handler http.Handler = s.E
	if wrap != nil {
		handler = wrap(handler)
	}
	s.HTTP = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.Log.Info("server starting", zap.String("addr", addr))
	if err := s.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.HTTP == nil {
		return nil
	}
	return s.HTTP.Shutdown(ctx)
}
