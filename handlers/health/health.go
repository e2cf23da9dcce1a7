package health

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	h "yadlink/helpers"
)

// Pinger is a connection that answers a liveness probe.
type Pinger interface {
	Ping(ctx context.Context) (string, error)
}

// Health handler reports process and queue liveness.
type Health struct {
	Queue   Pinger
	Log     *zap.Logger
	Timeout time.Duration
}

func New(q Pinger, log *zap.Logger) *Health {
	return &Health{Queue: q, Log: log, Timeout: 3 * time.Second}
}

// GET /ping
func (hc *Health) Ping(c echo.Context) error {
	return c.String(http.StatusOK, "pong")
}

// GET /healthz
func (hc *Health) Healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), hc.Timeout)
	defer cancel()

	pong, err := hc.Queue.Ping(ctx)
	if err != nil {
		hc.Log.Error("health check error", zap.Error(err))
		return h.JSONMessage(c, http.StatusInternalServerError, "Redis health check failed", err)
	}
	if pong != "PONG" {
		hc.Log.Warn("unexpected ping reply", zap.String("reply", pong))
		return h.JSONMessage(c, http.StatusInternalServerError, "Redis ping failed", nil)
	}

	c.Response().Header().Set("Cache-Control", "no-store")
	return c.String(http.StatusOK, http.StatusText(http.StatusOK))
}
