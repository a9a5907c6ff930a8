package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// WPPost is a post held by the fake WordPress server.
type WPPost struct {
	ID         int64
	Title      string
	Content    string
	Status     string
	Categories []int64
}

// WordPress is an in-memory stand-in for the /wp-json/wp/v2/posts endpoints.
type WordPress struct {
	Server   *httptest.Server
	User     string
	Password string

	mu            sync.Mutex
	posts         []WPPost
	nextID        int64
	searches      int
	creates       int
	createStatus  int
	createPayload string
	lastQuery     map[string]string
}

// NewWordPress starts a fake server that accepts user/password via basic auth.
func NewWordPress(t testing.TB, user, password string) *WordPress {
	t.Helper()
	wp := &WordPress{User: user, Password: password, nextID: 100}
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wp/v2/posts", wp.handlePosts)
	wp.Server = httptest.NewServer(mux)
	t.Cleanup(wp.Server.Close)
	return wp
}

// URL returns the site base URL.
func (wp *WordPress) URL() string { return wp.Server.URL }

// Seed adds an existing post.
func (wp *WordPress) Seed(title, status string) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	wp.nextID++
	wp.posts = append(wp.posts, WPPost{ID: wp.nextID, Title: title, Status: status})
}

// RejectCreates makes every create call answer with status and payload.
func (wp *WordPress) RejectCreates(status int, payload string) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	wp.createStatus = status
	wp.createPayload = payload
}

// Posts returns a copy of the stored posts.
func (wp *WordPress) Posts() []WPPost {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	out := make([]WPPost, len(wp.posts))
	copy(out, wp.posts)
	return out
}

// Calls returns how many search and create requests were served.
func (wp *WordPress) Calls() (searches, creates int) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.searches, wp.creates
}

// LastQuery returns the query parameters of the latest search.
func (wp *WordPress) LastQuery() map[string]string {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.lastQuery
}

func (wp *WordPress) handlePosts(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != wp.User || pass != wp.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"code":    "rest_not_logged_in",
			"message": "You are not currently logged in.",
		})
		return
	}

	switch r.Method {
	case http.MethodGet:
		wp.search(w, r)
	case http.MethodPost:
		wp.create(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (wp *WordPress) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term := q.Get("search")
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage <= 0 {
		perPage = 10
	}

	wp.mu.Lock()
	wp.searches++
	wp.lastQuery = map[string]string{
		"search":   term,
		"per_page": q.Get("per_page"),
		"status":   q.Get("status"),
	}
	var out []map[string]any
	for _, p := range wp.posts {
		if q.Get("status") != "any" && p.Status != "publish" {
			continue
		}
		if !strings.Contains(strings.ToLower(p.Title), strings.ToLower(term)) {
			continue
		}
		out = append(out, map[string]any{
			"id":     p.ID,
			"status": p.Status,
			"link":   fmt.Sprintf("%s/?p=%d", wp.Server.URL, p.ID),
			"title":  map[string]string{"rendered": p.Title},
		})
		if len(out) == perPage {
			break
		}
	}
	wp.mu.Unlock()

	if out == nil {
		out = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (wp *WordPress) create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title      string  `json:"title"`
		Content    string  `json:"content"`
		Status     string  `json:"status"`
		Categories []int64 `json:"categories"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"code": "rest_invalid_json", "message": err.Error()})
		return
	}

	wp.mu.Lock()
	wp.creates++
	if wp.createStatus != 0 {
		status, payload := wp.createStatus, wp.createPayload
		wp.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(payload))
		return
	}
	wp.nextID++
	post := WPPost{ID: wp.nextID, Title: req.Title, Content: req.Content, Status: req.Status, Categories: req.Categories}
	wp.posts = append(wp.posts, post)
	wp.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     post.ID,
		"status": post.Status,
		"link":   fmt.Sprintf("%s/?p=%d", wp.Server.URL, post.ID),
		"title":  map[string]string{"rendered": post.Title},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
