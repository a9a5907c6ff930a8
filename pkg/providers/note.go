package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Adda-Baaj/note-syndicator/internal/domain"
)

const (
	NoteProviderID     = "note"
	NoteDefaultBaseURL = "https://note.com"
)

// noteFetcher reads an author's note.com RSS feed.
type noteFetcher struct {
	client HTTPClient
}

// NewNoteFetcher builds a fetcher for note.com author feeds.
func NewNoteFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &noteFetcher{client: client}
}

func (f *noteFetcher) ID() string {
	return NoteProviderID
}

// Fetch returns the feed entries in document order. An empty feed is not an error.
func (f *noteFetcher) Fetch(ctx context.Context, cfg Provider) ([]domain.FeedEntry, error) {
	if !strings.EqualFold(cfg.ID, NoteProviderID) {
		return nil, fmt.Errorf("note fetcher received incompatible provider %q", cfg.ID)
	}
	if strings.TrimSpace(cfg.SourceURL) == "" {
		return nil, fmt.Errorf("note provider source_url is empty")
	}

	headers := Headers(cfg)
	headers["Accept"] = feedAcceptHeader

	raw, err := fetchFeed(ctx, f.client, cfg.SourceURL, headers)
	if err != nil {
		return nil, err
	}

	entries, err := parseRSS(raw)
	if err != nil {
		return nil, &domain.FeedParseError{URL: cfg.SourceURL, Err: err}
	}
	return entries, nil
}
