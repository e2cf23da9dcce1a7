package link

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	downloadPage = "download.html"
	errorPage    = "error.html"
)

type downloadData struct {
	Href         string
	CloseAfterMS int64
}

// render buffers the whole page before writing headers.
func render(c echo.Context, code int, name string, data any) error {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.HTMLBlob(code, buf.Bytes())
}

func newDownloadData(href string, closeAfter time.Duration) downloadData {
	return downloadData{Href: href, CloseAfterMS: closeAfter.Milliseconds()}
}
