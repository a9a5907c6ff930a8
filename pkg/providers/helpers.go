package providers

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec // non-cryptographic id generation
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Adda-Baaj/note-syndicator/internal/domain"
	"github.com/Adda-Baaj/note-syndicator/pkg/httpclient"

	"github.com/PuerkitoBio/goquery"
)

// hashURL generates a SHA-1 hash of the given URL string.
func hashURL(u string) string {
	sum := sha1.Sum([]byte(u))
	return hex.EncodeToString(sum[:])
}

// ResponseSnippet returns a truncated snippet of the response body for logging.
func ResponseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	Description string `xml:"description"`
	Encoded     string `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
	PubDate     string `xml:"pubDate"`
}

// parseRSS decodes an RSS 2.0 document into feed entries, preserving order.
func parseRSS(data []byte) ([]domain.FeedEntry, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty feed document")
	}

	var doc rssDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode rss: %w", err)
	}

	entries := make([]domain.FeedEntry, 0, len(doc.Channel.Items))
	for _, it := range doc.Channel.Items {
		content := strings.TrimSpace(it.Encoded)
		if content == "" {
			content = strings.TrimSpace(it.Description)
		}
		link := strings.TrimSpace(it.Link)
		guid := strings.TrimSpace(it.GUID)
		if guid == "" && link != "" {
			guid = hashURL(link)
		}
		entries = append(entries, domain.FeedEntry{
			GUID:        guid,
			Title:       strings.TrimSpace(it.Title),
			Link:        link,
			Summary:     strings.TrimSpace(it.Description),
			Content:     content,
			ContentText: plainText(content),
			PublishedAt: parsePubDate(it.PubDate),
		})
	}
	return entries, nil
}

// plainText strips markup from an HTML fragment.
func plainText(fragment string) string {
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Text())
}

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

// parsePubDate attempts to parse an RSS pubDate; zero time when unknown.
func parsePubDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// fetchFeed retrieves the raw feed document.
func fetchFeed(ctx context.Context, client httpclient.Client, url string, headers map[string]string) ([]byte, error) {
	resp, err := client.Get(ctx, url, headers)
	if err != nil {
		return nil, &domain.FeedFetchError{URL: url, Err: err}
	}

	body := resp.Body()
	if !httpclient.IsSuccess(resp) {
		return nil, &domain.FeedFetchError{
			URL:    url,
			Status: resp.StatusCode(),
			Err:    errors.New(ResponseSnippet(body)),
		}
	}

	return body, nil
}
