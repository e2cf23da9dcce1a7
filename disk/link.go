package disk

import (
	"regexp"
)

// Kind selects how a resolved resource is presented to the client.
type Kind int

const (
	// DirectDownload (/d/...) answers with a page that starts the download client-side.
	DirectDownload Kind = iota + 1
	// Preview (/i/...) answers with a plain redirect.
	Preview
)

// Letter is the path segment used for the kind both inbound and in public key URLs.
func (k Kind) Letter() string {
	switch k {
	case DirectDownload:
		return "d"
	case Preview:
		return "i"
	}
	return ""
}

func (k Kind) String() string {
	switch k {
	case DirectDownload:
		return "direct"
	case Preview:
		return "preview"
	}
	return "unknown"
}

// LinkRequest is a parsed inbound short link.
type LinkRequest struct {
	Kind    Kind
	Token   string
	SubPath string // empty means the resource root
}

// ResolvedLink is the usable part of a resolution API answer.
type ResolvedLink struct {
	Href string `validate:"required,http_url"`
}

var linkPattern = regexp.MustCompile(`^/([di])/([A-Za-z0-9_-]+)(?:/(.*))?$`)

// ParseLink matches an inbound path against /{d|i}/<token>[/<subpath>].
func ParseLink(path string) (LinkRequest, bool) {
	m := linkPattern.FindStringSubmatch(path)
	if m == nil {
		return LinkRequest{}, false
	}

	req := LinkRequest{Token: m[2], SubPath: m[3]}
	switch m[1] {
	case "d":
		req.Kind = DirectDownload
	case "i":
		req.Kind = Preview
	}
	return req, true
}
