package notifiers

import (
	"context"
	"fmt"
	"time"

	"github.com/Adda-Baaj/note-syndicator/pkg/httpclient"
)

// httpNotifier posts run reports to a webhook.
type httpNotifier struct {
	id      string
	typ     string
	url     string
	method  string
	headers map[string]string
	timeout time.Duration
	client  httpclient.Client
	log     Logger
}

// newHTTPNotifier builds a webhook notifier.
func newHTTPNotifier(_ context.Context, cfg NotifierConfig, deps Deps) (Notifier, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("notifier %q missing http configuration", cfg.ID)
	}
	client := deps.HTTP
	if client == nil {
		client = httpclient.NewRestyClient(time.Duration(httpDefaultTimeoutSeconds) * time.Second)
	}

	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(httpDefaultTimeoutSeconds) * time.Second
	}
	method := cfg.HTTP.Method
	if method == "" {
		method = httpDefaultMethod
	}

	return &httpNotifier{
		id:      cfg.ID,
		typ:     cfg.Type,
		url:     cfg.HTTP.URL,
		method:  method,
		headers: cfg.HTTP.Headers,
		timeout: timeout,
		client:  client,
		log:     ensureLogger(deps.Log),
	}, nil
}

func (n *httpNotifier) ID() string   { return n.id }
func (n *httpNotifier) Type() string { return n.typ }

// Notify sends the event as a JSON body and expects a 2xx answer.
func (n *httpNotifier) Notify(ctx context.Context, evt Event) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	resp, err := n.client.Do(ctx, httpclient.Request{
		Method:  n.method,
		URL:     n.url,
		Headers: n.headers,
		Body:    evt,
	})
	if err != nil {
		return fmt.Errorf("webhook %s: %w", n.url, err)
	}
	if !httpclient.IsSuccess(resp) {
		return fmt.Errorf("webhook %s returned status %d", n.url, resp.StatusCode())
	}

	n.log.DebugObj("webhook notifier delivered report", "notifier_http_delivery", map[string]any{
		"notifier_id": n.id,
		"status":      resp.StatusCode(),
	})
	return nil
}
