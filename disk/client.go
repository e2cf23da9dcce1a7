package disk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"yadlink/cache"
	"yadlink/metrics"
)

const maxBodyBytes = 1 << 20

var validate = validator.New()

// Client resolves short links through the public resources API.
type Client struct {
	HTTP   *http.Client
	APIURL string
	Host   string
	Cache  *cache.Responses
	Log    *zap.Logger

	group singleflight.Group
}

func New(httpClient *http.Client, apiURL, host string, responses *cache.Responses, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		HTTP:   httpClient,
		APIURL: apiURL,
		Host:   host,
		Cache:  responses,
		Log:    log,
	}
}

// apiResponse covers both the success (Link) and the error bodies of the API.
type apiResponse struct {
	Href        string `json:"href"`
	Method      string `json:"method"`
	Templated   bool   `json:"templated"`
	Error       string `json:"error"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

// PublicKeyURL is the host-side identifier of the shared resource.
func (c *Client) PublicKeyURL(req LinkRequest) string {
	return c.Host + "/" + req.Kind.Letter() + "/" + req.Token
}

// RequestURL builds the outbound resolution URL. Its string form is also the cache key.
func (c *Client) RequestURL(req LinkRequest) (string, error) {
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return "", fmt.Errorf("disk: parse api url: %w", err)
	}
	q := u.Query()
	if req.SubPath != "" {
		q.Set("path", "/"+req.SubPath)
	}
	q.Set("public_key", c.PublicKeyURL(req))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Resolve returns the direct link for req. Upstream answers that carry no
// usable href come back as *UpstreamError; every other error means the
// exchange itself failed.
func (c *Client) Resolve(ctx context.Context, req LinkRequest) (ResolvedLink, error) {
	rawURL, err := c.RequestURL(req)
	if err != nil {
		return ResolvedLink{}, err
	}

	resp, err := c.fetch(ctx, rawURL)
	if err != nil {
		return ResolvedLink{}, err
	}

	var body apiResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return ResolvedLink{}, fmt.Errorf("disk: decode response: %w", err)
	}

	link := ResolvedLink{Href: body.Href}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || validate.Struct(link) != nil {
		return ResolvedLink{}, &UpstreamError{
			StatusCode:  resp.StatusCode,
			Code:        body.Error,
			Description: body.Description,
		}
	}
	return link, nil
}

// fetch returns the API answer for rawURL, from the cache when a successful
// answer is still fresh. Concurrent misses for one URL share a single call.
func (c *Client) fetch(ctx context.Context, rawURL string) (cache.Response, error) {
	if c.Cache != nil {
		if resp, ok := c.Cache.Get(rawURL); ok {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return resp, nil
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	v, err, shared := c.group.Do(rawURL, func() (any, error) {
		if c.Cache != nil {
			if resp, ok := c.Cache.Get(rawURL); ok {
				return resp, nil
			}
		}
		// the shared call must outlive any single caller going away
		resp, err := c.do(context.WithoutCancel(ctx), rawURL)
		if err != nil {
			return nil, err
		}
		if c.Cache != nil {
			c.Cache.Add(rawURL, resp)
		}
		return resp, nil
	})
	if err != nil {
		return cache.Response{}, err
	}
	if shared {
		c.Log.Debug("shared upstream call", zap.String("url", rawURL))
	}
	return v.(cache.Response), nil
}

func (c *Client) do(ctx context.Context, rawURL string) (cache.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return cache.Response{}, fmt.Errorf("disk: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("error").Inc()
		return cache.Response{}, fmt.Errorf("disk: request: %w", err)
	}
	defer res.Body.Close()
	metrics.UpstreamRequests.WithLabelValues(strconv.Itoa(res.StatusCode)).Inc()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return cache.Response{}, fmt.Errorf("disk: read response: %w", err)
	}

	c.Log.Debug("upstream call",
		zap.String("url", rawURL),
		zap.Int("status", res.StatusCode),
		zap.Int("bytes", len(body)),
	)
	return cache.Response{StatusCode: res.StatusCode, Body: body}, nil
}
