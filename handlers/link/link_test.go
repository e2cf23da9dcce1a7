package link

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"yadlink/cache"
	"yadlink/disk"
)

const href = "https://downloader.disk.yandex.ru/disk/0123456789abcdef/file.zip"

type fakeResolver struct {
	link disk.ResolvedLink
	err  error
	got  disk.LinkRequest
}

func (f *fakeResolver) Resolve(_ context.Context, req disk.LinkRequest) (disk.ResolvedLink, error) {
	f.got = req
	return f.link, f.err
}

func newEcho(l *Link) *echo.Echo {
	e := echo.New()
	e.GET("/d/*", l.Resolve)
	e.GET("/i/*", l.Resolve)
	e.Any("/*", l.Fallback)
	return e
}

func serve(e *echo.Echo, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestResolveDirectDownloadPage(t *testing.T) {
	r := &fakeResolver{link: disk.ResolvedLink{Href: href}}
	e := newEcho(New(r, zap.NewNop()))

	rec := serve(e, "/d/Ab_c-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, `content="0; url=`+href+`"`)
	assert.Contains(t, body, `window.location.href = "`+href+`"`)
	assert.Contains(t, body, `window.close()`)
	assert.Contains(t, body, `<noscript>`)
	assert.Contains(t, body, `href="`+href+`"`)
	assert.Equal(t, disk.LinkRequest{Kind: disk.DirectDownload, Token: "Ab_c-1"}, r.got)
}

func TestResolveDirectDownloadPageEscapesQuery(t *testing.T) {
	const queryHref = "https://downloader.disk.yandex.ru/disk/abc?a=1&b=2"
	r := &fakeResolver{link: disk.ResolvedLink{Href: queryHref}}
	e := newEcho(New(r, zap.NewNop()))

	rec := serve(e, "/d/abc")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `url=https://downloader.disk.yandex.ru/disk/abc?a=1&amp;b=2"`)
	assert.Contains(t, body, `window.location.href = "https://downloader.disk.yandex.ru/disk/abc?a=1\u0026b=2"`)
	assert.Contains(t, body, `href="https://downloader.disk.yandex.ru/disk/abc?a=1&amp;b=2"`)
	assert.NotContains(t, body, "a=1&b=2")
}

func TestResolvePreviewRedirect(t *testing.T) {
	r := &fakeResolver{link: disk.ResolvedLink{Href: href}}
	e := newEcho(New(r, zap.NewNop()))

	rec := serve(e, "/i/abc/photos/cat.jpg")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, href, rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, disk.LinkRequest{Kind: disk.Preview, Token: "abc", SubPath: "photos/cat.jpg"}, r.got)
}

func TestResolveUpstreamErrorPage(t *testing.T) {
	tests := []struct {
		name     string
		upstream int
		want     int
	}{
		{"not found mirrored", http.StatusNotFound, http.StatusNotFound},
		{"throttled mirrored", http.StatusTooManyRequests, http.StatusTooManyRequests},
		{"no href keeps upstream status", http.StatusOK, http.StatusOK},
		{"no status defaults", 0, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeResolver{err: &disk.UpstreamError{StatusCode: tt.upstream}}
			e := newEcho(New(r, zap.NewNop()))

			rec := serve(e, "/d/abc")

			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), "<title>File unavailable</title>")
			assert.Contains(t, rec.Body.String(), `<a href="/">`)
		})
	}
}

func TestResolveFailureRedirectsHome(t *testing.T) {
	r := &fakeResolver{err: errors.New("disk: request: connection refused")}
	e := newEcho(New(r, zap.NewNop()))

	rec := serve(e, "/i/abc")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
}

func TestResolveMalformedPathRedirectsHome(t *testing.T) {
	r := &fakeResolver{}
	e := newEcho(New(r, zap.NewNop()))

	for _, target := range []string{"/d/", "/d/bad.token", "/unknown", "/x/abc"} {
		rec := serve(e, target)
		assert.Equal(t, http.StatusFound, rec.Code, target)
		assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation), target)
	}
	assert.Zero(t, r.got.Kind, "resolver must not be called")
}

// End to end through disk.Client against a fake resolution API.
func TestResolveThroughDiskClient(t *testing.T) {
	var calls atomic.Int32
	var lastQuery atomic.Value
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		lastQuery.Store(r.URL.RawQuery)
		if r.URL.Query().Get("public_key") == "https://disk.yandex.ru/d/gone" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"DiskNotFoundError","description":"Resource not found."}`))
			return
		}
		_, _ = w.Write([]byte(`{"href":"` + href + `","method":"GET","templated":false}`))
	}))
	defer api.Close()

	responses, err := cache.NewResponses(16, time.Minute)
	require.NoError(t, err)
	client := disk.New(api.Client(), api.URL, "https://disk.yandex.ru", responses, zap.NewNop())
	e := newEcho(New(client, zap.NewNop()))

	rec := serve(e, "/d/abc/sub/dir")
	require.Equal(t, http.StatusOK, rec.Code)
	q, err := url.ParseQuery(lastQuery.Load().(string))
	require.NoError(t, err)
	assert.Equal(t, "/sub/dir", q.Get("path"))
	assert.Contains(t, lastQuery.Load().(string), "path=%2Fsub%2Fdir")

	rec = serve(e, "/d/abc/sub/dir")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, calls.Load(), "second lookup within TTL is served from cache")

	rec = serve(e, "/d/gone")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = serve(e, "/d/gone")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.EqualValues(t, 3, calls.Load(), "failed lookups are not cached")
}
