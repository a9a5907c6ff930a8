package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Adda-Baaj/note-syndicator/internal/domain"
	"github.com/Adda-Baaj/note-syndicator/internal/logger"
	"github.com/Adda-Baaj/note-syndicator/pkg/httpclient"
	"github.com/Adda-Baaj/note-syndicator/pkg/providers"
)

const maxHTMLBodyBytes = 8 << 20 // 8 MiB

// Scraper retrieves the full article page behind a feed entry.
type Scraper struct {
	client   httpclient.Client
	log      logger.Logger
	maxBytes int
}

// NewScraper creates a new Scraper with the given HTTP client and logger.
func NewScraper(client httpclient.Client, log logger.Logger) *Scraper {
	if client == nil {
		client = providers.DefaultHTTPClient()
	}
	return &Scraper{client: client, log: logger.Ensure(log), maxBytes: maxHTMLBodyBytes}
}

// FetchArticle downloads the entry's link with the provider's identification headers.
// The document is returned as-is; interpreting it is the transcoder's job.
func (s *Scraper) FetchArticle(ctx context.Context, cfg providers.Provider, entry domain.FeedEntry) (domain.RawArticleDocument, error) {
	link := strings.TrimSpace(entry.Link)
	if link == "" {
		return nil, &domain.ArticleFetchError{URL: link, Err: errors.New("entry has no link")}
	}

	s.log.DebugObj("fetching article", "article_fetch_start", map[string]any{
		"provider_id": cfg.ID,
		"url":         link,
	})

	resp, err := s.client.Get(ctx, link, providers.Headers(cfg))
	if err != nil {
		return nil, &domain.ArticleFetchError{URL: link, Err: fmt.Errorf("http fetch: %w", err)}
	}

	if !httpclient.IsSuccess(resp) {
		return nil, &domain.ArticleFetchError{
			URL:    link,
			Status: resp.StatusCode(),
			Err:    errors.New(providers.ResponseSnippet(resp.Body())),
		}
	}

	// Oversized pages are rejected, never clipped.
	body := resp.Body()
	if len(body) > s.maxBytes {
		return nil, &domain.ArticleFetchError{
			URL:    link,
			Status: resp.StatusCode(),
			Err:    fmt.Errorf("article body is %d bytes, limit %d", len(body), s.maxBytes),
		}
	}

	s.log.DebugObj("article fetched", "article_fetch_done", map[string]any{
		"provider_id": cfg.ID,
		"url":         link,
		"bytes":       len(body),
	})

	return domain.RawArticleDocument(body), nil
}
