package destinations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Adda-Baaj/note-syndicator/internal/domain"
	"github.com/Adda-Baaj/note-syndicator/internal/logger"
	"github.com/Adda-Baaj/note-syndicator/pkg/httpclient"
	"github.com/Adda-Baaj/note-syndicator/pkg/providers"

	"github.com/go-resty/resty/v2"
)

const (
	wpPostsPath      = "/wp-json/wp/v2/posts"
	wpSearchPageSize = 5
	wpStatusDraft    = "draft"
)

// wordpressClient publishes drafts through the WordPress REST API.
type wordpressClient struct {
	dest      domain.Destination
	http      httpclient.Client
	userAgent string
	log       Logger
}

type createPostRequest struct {
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Status     string  `json:"status"`
	Categories []int64 `json:"categories,omitempty"`
}

type createPostResponse struct {
	ID   int64  `json:"id"`
	Link string `json:"link"`
}

// NewWordPressClient builds a client for a single WordPress site.
func NewWordPressClient(dest domain.Destination, deps Deps) Client {
	if deps.HTTP == nil {
		deps.HTTP = providers.DefaultHTTPClient()
	}
	if deps.UserAgent == "" {
		deps.UserAgent = providers.DefaultUserAgent
	}
	return &wordpressClient{
		dest:      dest,
		http:      deps.HTTP,
		userAgent: deps.UserAgent,
		log:       logger.Ensure(deps.Log),
	}
}

func newWordPressClient(cfg DestinationConfig, deps Deps) (Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("destination %q missing url", cfg.Name)
	}
	return NewWordPressClient(cfg.Destination(), deps), nil
}

func (c *wordpressClient) Name() string { return c.dest.Name }

func (c *wordpressClient) postsURL() string { return c.dest.BaseURL + wpPostsPath }

func (c *wordpressClient) auth() *httpclient.BasicAuth {
	return &httpclient.BasicAuth{Username: c.dest.Username, Password: c.dest.Password}
}

// FindByTitle searches drafts and published posts for title.
func (c *wordpressClient) FindByTitle(ctx context.Context, title string) ([]PostSummary, error) {
	resp, err := c.http.Do(ctx, httpclient.Request{
		Method:  http.MethodGet,
		URL:     c.postsURL(),
		Headers: map[string]string{"User-Agent": c.userAgent},
		Query: map[string]string{
			"search":   title,
			"per_page": strconv.Itoa(wpSearchPageSize),
			"status":   "any",
		},
		Auth: c.auth(),
	})
	if err != nil {
		return nil, &domain.TransportError{Destination: c.dest.Name, Op: "search posts", Err: err}
	}
	if err := c.checkAuth(resp); err != nil {
		return nil, err
	}
	if !httpclient.IsSuccess(resp) {
		return nil, &domain.TransportError{
			Destination: c.dest.Name,
			Op:          "search posts",
			Status:      resp.StatusCode(),
			Err:         errors.New(providers.ResponseSnippet(resp.Body())),
		}
	}

	var posts []PostSummary
	if err := json.Unmarshal(resp.Body(), &posts); err != nil {
		return nil, &domain.TransportError{Destination: c.dest.Name, Op: "decode search response", Err: err}
	}

	c.log.DebugObj("destination search finished", "destination_search", map[string]any{
		"destination": c.dest.Name,
		"matches":     len(posts),
	})
	return posts, nil
}

// DuplicateExists reports whether a post with exactly this rendered title exists.
// Matching is case and whitespace sensitive.
func (c *wordpressClient) DuplicateExists(ctx context.Context, title string) (bool, error) {
	posts, err := c.FindByTitle(ctx, title)
	if err != nil {
		return false, err
	}
	return HasExactTitle(posts, title), nil
}

// HasExactTitle reports whether any summary's rendered title equals title.
func HasExactTitle(posts []PostSummary, title string) bool {
	for _, p := range posts {
		if p.Title.Rendered == title {
			return true
		}
	}
	return false
}

// PublishDraft creates a new draft post carrying the block document.
func (c *wordpressClient) PublishDraft(ctx context.Context, title string, doc domain.BlockDocument) (domain.PublishOutcome, error) {
	body := createPostRequest{
		Title:   title,
		Content: doc.String(),
		Status:  wpStatusDraft,
	}
	if c.dest.HasCategory() {
		body.Categories = []int64{*c.dest.CategoryID}
	}

	resp, err := c.http.Do(ctx, httpclient.Request{
		Method:  http.MethodPost,
		URL:     c.postsURL(),
		Headers: map[string]string{"User-Agent": c.userAgent},
		Auth:    c.auth(),
		Body:    body,
	})
	if err != nil {
		return domain.PublishOutcome{}, &domain.TransportError{Destination: c.dest.Name, Op: "create post", Err: err}
	}
	if authErr := c.checkAuth(resp); authErr != nil {
		return domain.PublishOutcome{}, &domain.PublishError{
			Destination: c.dest.Name,
			Status:      resp.StatusCode(),
			Payload:     providers.ResponseSnippet(resp.Body()),
			Err:         authErr,
		}
	}
	if !httpclient.IsSuccess(resp) {
		return domain.PublishOutcome{}, &domain.PublishError{
			Destination: c.dest.Name,
			Status:      resp.StatusCode(),
			Payload:     providers.ResponseSnippet(resp.Body()),
		}
	}

	var created createPostResponse
	if err := json.Unmarshal(resp.Body(), &created); err != nil {
		return domain.PublishOutcome{}, &domain.PublishError{
			Destination: c.dest.Name,
			Status:      resp.StatusCode(),
			Payload:     providers.ResponseSnippet(resp.Body()),
			Err:         fmt.Errorf("decode create response: %w", err),
		}
	}

	return domain.Published(c.dest.Name, created.ID, created.Link), nil
}

func (c *wordpressClient) checkAuth(resp *resty.Response) error {
	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &domain.AuthError{
			Destination: c.dest.Name,
			Status:      resp.StatusCode(),
			Body:        providers.ResponseSnippet(resp.Body()),
		}
	}
	return nil
}
