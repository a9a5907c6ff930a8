package destinations

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Adda-Baaj/note-syndicator/internal/domain"
	"github.com/Adda-Baaj/note-syndicator/internal/testsupport"
	"github.com/Adda-Baaj/note-syndicator/pkg/httpclient"
)

func newTestClient(wp *testsupport.WordPress, user, pass string, category *int64) Client {
	return NewWordPressClient(domain.Destination{
		Name:       "Site 1",
		Type:       TypeWordPress,
		BaseURL:    wp.URL(),
		Username:   user,
		Password:   pass,
		CategoryID: category,
	}, Deps{HTTP: httpclient.NewRestyClient(5 * time.Second)})
}

func TestFindByTitleQueriesAnyStatus(t *testing.T) {
	wp := testsupport.NewWordPress(t, "editor", "app pass")
	wp.Seed("Foo", "draft")
	wp.Seed("Foo and more", "publish")

	c := newTestClient(wp, "editor", "app pass", nil)
	posts, err := c.FindByTitle(context.Background(), "Foo")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected drafts and published posts, got %d", len(posts))
	}

	q := wp.LastQuery()
	if q["search"] != "Foo" || q["per_page"] != "5" || q["status"] != "any" {
		t.Fatalf("unexpected query %v", q)
	}
}

func TestDuplicateExistsIsExactMatch(t *testing.T) {
	wp := testsupport.NewWordPress(t, "editor", "pw")
	wp.Seed("Foo Bar", "publish")
	wp.Seed("foo", "draft")

	c := newTestClient(wp, "editor", "pw", nil)

	cases := []struct {
		title string
		want  bool
	}{
		{"Foo Bar", true},
		{"Foo", false},      // only a case-insensitive or partial match exists
		{"Foo Bar ", false}, // trailing whitespace matters
		{"foo", true},
	}
	for _, tc := range cases {
		got, err := c.DuplicateExists(context.Background(), tc.title)
		if err != nil {
			t.Fatalf("duplicate check %q: %v", tc.title, err)
		}
		if got != tc.want {
			t.Fatalf("DuplicateExists(%q) = %v, want %v", tc.title, got, tc.want)
		}
	}
}

func TestPublishDraftSendsDraftWithCategory(t *testing.T) {
	wp := testsupport.NewWordPress(t, "editor", "pw")
	cat := int64(7)
	c := newTestClient(wp, "editor", "pw", &cat)

	doc := domain.BlockDocument{Blocks: []domain.Block{{Kind: domain.BlockParagraph, Markup: "<!-- wp:paragraph -->\n<p>x</p>\n<!-- /wp:paragraph -->\n\n"}}}
	out, err := c.PublishDraft(context.Background(), "Title", doc)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if out.Status != domain.OutcomePublished || out.PostID == 0 || out.Link == "" {
		t.Fatalf("unexpected outcome %+v", out)
	}

	posts := wp.Posts()
	if len(posts) != 1 {
		t.Fatalf("expected one post, got %d", len(posts))
	}
	p := posts[0]
	if p.Status != "draft" || p.Title != "Title" || p.Content != doc.String() {
		t.Fatalf("unexpected stored post %+v", p)
	}
	if len(p.Categories) != 1 || p.Categories[0] != 7 {
		t.Fatalf("unexpected categories %v", p.Categories)
	}
}

func TestPublishDraftOmitsCategoryWhenUnset(t *testing.T) {
	wp := testsupport.NewWordPress(t, "editor", "pw")
	c := newTestClient(wp, "editor", "pw", nil)

	if _, err := c.PublishDraft(context.Background(), "T", domain.BlockDocument{}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if cats := wp.Posts()[0].Categories; len(cats) != 0 {
		t.Fatalf("expected no categories, got %v", cats)
	}
}

func TestAuthAndPublishErrors(t *testing.T) {
	wp := testsupport.NewWordPress(t, "editor", "pw")

	bad := newTestClient(wp, "editor", "wrong", nil)
	_, err := bad.DuplicateExists(context.Background(), "x")
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) || authErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected AuthError, got %v", err)
	}

	wp.RejectCreates(http.StatusBadRequest, `{"code":"rest_invalid_param","message":"Invalid parameter(s): categories"}`)
	good := newTestClient(wp, "editor", "pw", nil)
	_, err = good.PublishDraft(context.Background(), "x", domain.BlockDocument{})
	var pubErr *domain.PublishError
	if !errors.As(err, &pubErr) {
		t.Fatalf("expected PublishError, got %v", err)
	}
	if pubErr.Status != http.StatusBadRequest || pubErr.Payload == "" {
		t.Fatalf("publish error should carry payload: %+v", pubErr)
	}
}

func TestPublishDraftAuthRejectionIsPublishError(t *testing.T) {
	wp := testsupport.NewWordPress(t, "editor", "pw")
	bad := newTestClient(wp, "editor", "wrong", nil)

	_, err := bad.PublishDraft(context.Background(), "x", domain.BlockDocument{})
	var pubErr *domain.PublishError
	if !errors.As(err, &pubErr) {
		t.Fatalf("expected PublishError, got %T %v", err, err)
	}
	if pubErr.Status != http.StatusUnauthorized || pubErr.Destination == "" {
		t.Fatalf("unexpected publish error %+v", pubErr)
	}
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) || authErr.Status != http.StatusUnauthorized {
		t.Fatalf("auth cause should stay reachable, got %v", err)
	}
	if len(wp.Posts()) != 0 {
		t.Fatalf("no post should be created")
	}
}

func TestTransportErrorWhenUnreachable(t *testing.T) {
	wp := testsupport.NewWordPress(t, "editor", "pw")
	c := newTestClient(wp, "editor", "pw", nil)
	wp.Server.Close()

	_, err := c.FindByTitle(context.Background(), "x")
	var te *domain.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}
