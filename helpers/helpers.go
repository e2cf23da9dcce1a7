package helpers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// JSONError writes {"error":"<text>"} with the provided HTTP code.
// Accepts string, error, or any type (it will be fmt.Sprintf'd).
func JSONError(c echo.Context, code int, err any) error {
	var msg string
	switch v := err.(type) {
	case nil:
		msg = http.StatusText(code)
	case string:
		if v == "" {
			msg = http.StatusText(code)
		} else {
			msg = v
		}
	case error:
		if v.Error() == "" {
			msg = http.StatusText(code)
		} else {
			msg = v.Error()
		}
	default:
		msg = fmt.Sprintf("%v", v)
	}
	return c.JSON(code, map[string]string{"error": msg})
}

// JSONMessage writes {"message": message, "error": err} indented by two
// spaces. The error key is omitted when err is nil.
func JSONMessage(c echo.Context, code int, message string, err error) error {
	body := map[string]string{"message": message}
	if err != nil {
		body["error"] = err.Error()
	}
	return c.JSONPretty(code, body, "  ")
}
