package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Adda-Baaj/note-syndicator/internal/domain"
	"github.com/Adda-Baaj/note-syndicator/pkg/httpclient"
)

// DefaultUserAgent mimics a desktop browser; the feed host rejects library defaults.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const feedAcceptHeader = "application/rss+xml, application/xml, text/xml"

// HTTPClient is the transport used by fetchers.
type HTTPClient = httpclient.Client

// Provider describes a feed source.
type Provider struct {
	ID        string
	SourceURL string
	UserAgent string
	Headers   map[string]string
}

// Fetcher retrieves the entries of a provider's feed, newest first.
type Fetcher interface {
	ID() string
	Fetch(ctx context.Context, cfg Provider) ([]domain.FeedEntry, error)
}

// FetcherRegistry resolves the fetcher for a provider.
type FetcherRegistry interface {
	FetcherFor(cfg Provider) (Fetcher, error)
}

// Headers returns the identification headers every request to the provider carries.
func Headers(cfg Provider) map[string]string {
	headers := make(map[string]string, len(cfg.Headers)+1)
	for k, v := range cfg.Headers {
		if strings.TrimSpace(k) == "" {
			continue
		}
		headers[k] = v
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = DefaultUserAgent
	}
	headers["User-Agent"] = ua
	return headers
}

// NoteFeedURL builds the RSS address for an author on the given note host.
func NoteFeedURL(base, author string) (string, error) {
	author = strings.Trim(strings.TrimSpace(author), "/")
	if author == "" {
		return "", fmt.Errorf("author id is empty")
	}
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = NoteDefaultBaseURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return "", fmt.Errorf("invalid feed base url %q: %w", base, err)
	}
	return base + "/" + url.PathEscape(author) + "/rss", nil
}
