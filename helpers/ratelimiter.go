package helpers

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// ClientLimiter throttles requests with one token bucket per client IP.
type ClientLimiter struct {
	limit   rate.Limit
	burst   int
	every   time.Duration
	idle    time.Duration
	clients sync.Map // ip -> *client
}

type client struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// NewClientLimiter allows perMinute requests per client, all of which may
// arrive in one burst. It returns nil, meaning no limiting, when perMinute
// is not positive.
func NewClientLimiter(perMinute int) *ClientLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &ClientLimiter{
		limit: rate.Limit(float64(perMinute) / time.Minute.Seconds()),
		burst: perMinute,
		every: time.Minute / time.Duration(perMinute),
		idle:  3 * time.Minute,
	}
}

// Allow takes a token for ip and reports the tokens left.
func (l *ClientLimiter) Allow(ip string, now time.Time) (bool, int) {
	c := l.get(ip, now)
	c.lastSeen.Store(now.UnixNano())

	ok := c.limiter.AllowN(now, 1)
	remaining := int(c.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return ok, remaining
}

func (l *ClientLimiter) get(ip string, now time.Time) *client {
	if v, ok := l.clients.Load(ip); ok {
		return v.(*client)
	}
	c := &client{limiter: rate.NewLimiter(l.limit, l.burst)}
	c.lastSeen.Store(now.UnixNano())
	actual, _ := l.clients.LoadOrStore(ip, c)
	return actual.(*client)
}

// Sweep forgets clients idle since before cutoff and returns how many were dropped.
func (l *ClientLimiter) Sweep(cutoff time.Time) int {
	dropped := 0
	l.clients.Range(func(k, v any) bool {
		if v.(*client).lastSeen.Load() < cutoff.UnixNano() {
			l.clients.Delete(k)
			dropped++
		}
		return true
	})
	return dropped
}

// Run sweeps idle clients every minute until ctx is done.
func (l *ClientLimiter) Run(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			l.Sweep(now.Add(-l.idle))
		}
	}
}

func (l *ClientLimiter) Middleware() echo.MiddlewareFunc {
	retryAfter := strconv.Itoa(int((l.every + time.Second - 1) / time.Second))
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, remaining := l.Allow(clientIP(c), time.Now())

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.burst))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !ok {
				h.Set("Retry-After", retryAfter)
				return JSONError(c, http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}

func clientIP(c echo.Context) string {
	if ip := c.RealIP(); ip != "" {
		if host, _, err := net.SplitHostPort(ip); err == nil {
			return host
		}
		return ip
	}
	if host, _, err := net.SplitHostPort(c.Request().RemoteAddr); err == nil {
		return host
	}
	return c.Request().RemoteAddr
}
