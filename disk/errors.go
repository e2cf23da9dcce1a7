package disk

import (
	"fmt"
	"net/http"
)

// UpstreamError reports an answer from the resolution API that cannot be
// turned into a link: a non-2xx status or a body without a usable href.
type UpstreamError struct {
	StatusCode  int
	Code        string // "error" field of the API body, e.g. DiskNotFoundError
	Description string
}

func (e *UpstreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("disk: upstream status %d: %s: %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("disk: upstream status %d: no usable href", e.StatusCode)
}

// Status is the status to mirror to the client: the upstream status, or 500
// when none was received.
func (e *UpstreamError) Status() int {
	if e.StatusCode == 0 {
		return http.StatusInternalServerError
	}
	return e.StatusCode
}
