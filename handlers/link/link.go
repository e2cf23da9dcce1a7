package link

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"yadlink/disk"
)

// Resolver turns a parsed short link into a direct URL.
type Resolver interface {
	Resolve(ctx context.Context, req disk.LinkRequest) (disk.ResolvedLink, error)
}

// Link handler contains dependencies for link endpoints.
type Link struct {
	Resolver   Resolver
	Log        *zap.Logger
	CloseAfter time.Duration // delay before the download page closes its window
}

func New(r Resolver, log *zap.Logger) *Link {
	return &Link{
		Resolver:   r,
		Log:        log,
		CloseAfter: 3 * time.Second,
	}
}

// GET /d/<token>[/<subpath>] and /i/<token>[/<subpath>]
func (l *Link) Resolve(c echo.Context) error {
	req, ok := disk.ParseLink(c.Request().URL.Path)
	if !ok {
		return c.Redirect(http.StatusFound, "/")
	}

	link, err := l.Resolver.Resolve(c.Request().Context(), req)

	var upErr *disk.UpstreamError
	switch {
	case errors.As(err, &upErr):
		l.Log.Info("link not resolved",
			zap.String("kind", req.Kind.String()),
			zap.String("token", req.Token),
			zap.Int("upstream_status", upErr.StatusCode),
			zap.String("upstream_error", upErr.Code),
		)
		return l.render(c, upErr.Status(), errorPage, nil)
	case err != nil:
		l.Log.Warn("resolve failed", zap.String("token", req.Token), zap.Error(err))
		return c.Redirect(http.StatusFound, "/")
	}

	switch req.Kind {
	case disk.Preview:
		return c.Redirect(http.StatusFound, link.Href)
	case disk.DirectDownload:
		return l.render(c, http.StatusOK, downloadPage, newDownloadData(link.Href, l.CloseAfter))
	}
	return c.Redirect(http.StatusFound, "/")
}

// Fallback sends every unmatched request to the site root.
func (l *Link) Fallback(c echo.Context) error {
	return c.Redirect(http.StatusFound, "/")
}

func (l *Link) render(c echo.Context, code int, name string, data any) error {
	if err := render(c, code, name, data); err != nil {
		l.Log.Error("render page", zap.String("page", name), zap.Error(err))
		return c.Redirect(http.StatusFound, "/")
	}
	return nil
}
