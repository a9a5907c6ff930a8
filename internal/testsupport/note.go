package testsupport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// BaseURLPlaceholder is replaced by the server URL in feed and page bodies.
const BaseURLPlaceholder = "{{base}}"

// Note serves an author feed and article pages like the note.com host.
type Note struct {
	Server *httptest.Server

	mu       sync.Mutex
	feed     string
	pages    map[string]string
	statuses map[string]int
	hits     map[string]int
}

// NewNote starts a fake note host.
func NewNote(t testing.TB) *Note {
	t.Helper()
	n := &Note{
		pages:    make(map[string]string),
		statuses: make(map[string]int),
		hits:     make(map[string]int),
	}
	n.Server = httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(n.Server.Close)
	return n
}

// URL returns the host base URL.
func (n *Note) URL() string { return n.Server.URL }

// SetFeed sets the body served for every path ending in /rss.
func (n *Note) SetFeed(body string) {
	n.mu.Lock()
	n.feed = body
	n.mu.Unlock()
}

// SetPage sets the HTML served at path.
func (n *Note) SetPage(path, body string) {
	n.mu.Lock()
	n.pages[path] = body
	n.mu.Unlock()
}

// SetStatus makes path answer with status and an empty body.
func (n *Note) SetStatus(path string, status int) {
	n.mu.Lock()
	n.statuses[path] = status
	n.mu.Unlock()
}

// Hits returns how many times path was requested.
func (n *Note) Hits(path string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.hits[path]
}

func (n *Note) serve(w http.ResponseWriter, r *http.Request) {
	n.mu.Lock()
	n.hits[r.URL.Path]++
	status := n.statuses[r.URL.Path]
	feed := n.feed
	page, ok := n.pages[r.URL.Path]
	n.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	if strings.HasSuffix(r.URL.Path, "/rss") {
		w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		_, _ = w.Write([]byte(strings.ReplaceAll(feed, BaseURLPlaceholder, n.Server.URL)))
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(strings.ReplaceAll(page, BaseURLPlaceholder, n.Server.URL)))
}
