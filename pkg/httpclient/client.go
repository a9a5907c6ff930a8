package httpclient

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client is the HTTP surface used by fetchers, destinations and notifiers.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (*resty.Response, error)
	Do(ctx context.Context, req Request) (*resty.Response, error)
}

// BasicAuth holds a username/password pair for the Authorization header.
type BasicAuth struct {
	Username string
	Password string
}

// Request describes a single outgoing call.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   map[string]string
	Auth    *BasicAuth
	Body    any
}

type restyClient struct {
	client *resty.Client
}

// NewRestyClient returns a Client backed by resty with the given timeout.
// Retries are disabled: every call is attempted exactly once.
func NewRestyClient(timeout time.Duration) Client {
	c := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	return &restyClient{client: c}
}

func (c *restyClient) Get(ctx context.Context, url string, headers map[string]string) (*resty.Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: url, Headers: headers})
}

func (c *restyClient) Do(ctx context.Context, req Request) (*resty.Response, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, errors.New("request url is empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	r := c.client.R().SetContext(ctx)
	if len(req.Headers) > 0 {
		r.SetHeaders(req.Headers)
	}
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	if req.Auth != nil {
		r.SetBasicAuth(req.Auth.Username, req.Auth.Password)
	}
	if req.Body != nil {
		r.SetHeader("Content-Type", "application/json")
		r.SetBody(req.Body)
	}

	return r.Execute(method, req.URL)
}

// IsSuccess reports whether the status code is 2xx.
func IsSuccess(resp *resty.Response) bool {
	if resp == nil {
		return false
	}
	code := resp.StatusCode()
	return code >= 200 && code < 300
}
