package syndicator

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Adda-Baaj/note-syndicator/internal/blocks"
	"github.com/Adda-Baaj/note-syndicator/internal/crawler"
	"github.com/Adda-Baaj/note-syndicator/internal/domain"
	"github.com/Adda-Baaj/note-syndicator/internal/testsupport"
	"github.com/Adda-Baaj/note-syndicator/pkg/destinations"
	"github.com/Adda-Baaj/note-syndicator/pkg/httpclient"
	"github.com/Adda-Baaj/note-syndicator/pkg/notifiers"
	"github.com/Adda-Baaj/note-syndicator/pkg/providers"
)

const feedTwoEntries = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <item>
      <title>Foo</title>
      <guid isPermaLink="false">note-n1</guid>
      <link>{{base}}/alice/n/n1</link>
      <description>teaser for foo</description>
      <pubDate>Mon, 12 Oct 2026 09:00:00 +0900</pubDate>
    </item>
    <item>
      <title>Bar</title>
      <link>{{base}}/alice/n/n0</link>
      <description>teaser for bar</description>
      <pubDate>Sun, 11 Oct 2026 09:00:00 +0900</pubDate>
    </item>
  </channel>
</rss>`

const feedOutOfOrder = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <item>
      <title>Pinned</title>
      <link>{{base}}/alice/n/pinned</link>
      <description>old pinned note</description>
      <pubDate>Thu, 01 Oct 2026 09:00:00 +0900</pubDate>
    </item>
    <item>
      <title>Fresh</title>
      <link>{{base}}/alice/n/fresh</link>
      <description>fresh note</description>
      <pubDate>Wed, 14 Oct 2026 09:00:00 +0900</pubDate>
    </item>
  </channel>
</rss>`

const emptyFeed = `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>x</title></channel></rss>`

const articlePage = `<html><body>
<div class="note-common-styles__textnote-body">
  <p>Hello <b>world</b></p>
  <h2>Section</h2>
  <figure><img src="https://assets.example/a.png" alt="A" width="10"></figure>
</div>
</body></html>`

const expectedArticleMarkup = "<!-- wp:paragraph -->\n<p>Hello <b>world</b></p>\n<!-- /wp:paragraph -->\n\n" +
	"<!-- wp:heading {\"level\":2} -->\n<h2>Section</h2>\n<!-- /wp:heading -->\n\n" +
	"<!-- wp:image -->\n<figure class=\"wp-block-image\"><img src=\"https://assets.example/a.png\" alt=\"A\"/></figure>\n<!-- /wp:image -->\n\n"

type fixture struct {
	note *testsupport.Note
	http httpclient.Client
}

func newFixture(t *testing.T, feed string) *fixture {
	t.Helper()
	note := testsupport.NewNote(t)
	note.SetFeed(feed)
	note.SetPage("/alice/n/n1", articlePage)
	return &fixture{note: note, http: httpclient.NewRestyClient(5 * time.Second)}
}

func (f *fixture) client(name string, wp *testsupport.WordPress, password string) destinations.Client {
	return destinations.NewWordPressClient(domain.Destination{
		Name:     name,
		Type:     destinations.TypeWordPress,
		BaseURL:  wp.URL(),
		Username: wp.User,
		Password: password,
	}, destinations.Deps{HTTP: f.http})
}

func (f *fixture) service(t *testing.T, dests []destinations.Client, opts Options, notifier ReportNotifier) *Service {
	t.Helper()
	feedURL, err := providers.NoteFeedURL(f.note.URL(), "alice")
	if err != nil {
		t.Fatalf("feed url: %v", err)
	}
	svc, err := New(Deps{
		Provider:     providers.Provider{ID: providers.NoteProviderID, SourceURL: feedURL},
		Fetcher:      providers.NewNoteFetcher(f.http),
		Articles:     crawler.NewScraper(f.http, nil),
		Transcoder:   blocks.New(),
		Destinations: dests,
		Notifier:     notifier,
	}, opts)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func requireNoCalls(t *testing.T, sites ...*testsupport.WordPress) {
	t.Helper()
	for i, wp := range sites {
		if s, c := wp.Calls(); s != 0 || c != 0 {
			t.Fatalf("site %d contacted: %d searches, %d creates", i, s, c)
		}
	}
}

func TestRunEmptyFeedContactsNoDestination(t *testing.T) {
	f := newFixture(t, emptyFeed)
	a := testsupport.NewWordPress(t, "u", "p")
	b := testsupport.NewWordPress(t, "u", "p")

	report, err := f.service(t, []destinations.Client{f.client("Site 1", a, "p"), f.client("Site 2", b, "p")}, Options{}, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !report.NoEntries || len(report.Outcomes) != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	requireNoCalls(t, a, b)
}

func TestRunSkipsDuplicateAndPublishesElsewhere(t *testing.T) {
	f := newFixture(t, feedTwoEntries)
	a := testsupport.NewWordPress(t, "u", "p")
	a.Seed("Foo", "draft")
	b := testsupport.NewWordPress(t, "u", "p")
	b.Seed("Foo and more", "publish")

	report, err := f.service(t, []destinations.Client{f.client("Site 1", a, "p"), f.client("Site 2", b, "p")}, Options{}, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.EntryTitle != "Foo" || report.EntryGUID != "note-n1" {
		t.Fatalf("expected first entry, got %q (guid %q)", report.EntryTitle, report.EntryGUID)
	}
	if report.Outcomes[0].Status != domain.OutcomeSkipped || report.Outcomes[1].Status != domain.OutcomePublished {
		t.Fatalf("unexpected outcomes %+v", report.Outcomes)
	}
	if _, creates := a.Calls(); creates != 0 {
		t.Fatalf("duplicate site received %d creates", creates)
	}

	posts := b.Posts()
	created := posts[len(posts)-1]
	if created.Title != "Foo" || created.Status != "draft" {
		t.Fatalf("unexpected created post %+v", created)
	}
	if created.Content != expectedArticleMarkup {
		t.Fatalf("unexpected content:\n%q\nwant\n%q", created.Content, expectedArticleMarkup)
	}

	lines := report.Lines()
	if lines[0] != "[Site 1] Skipped: duplicate" || !strings.HasPrefix(lines[1], "[Site 2] Published: draft ") {
		t.Fatalf("unexpected lines %v", lines)
	}
}

func TestRunContinuesAfterDestinationFailure(t *testing.T) {
	for _, concurrent := range []bool{false, true} {
		name := "sequential"
		if concurrent {
			name = "concurrent"
		}
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, feedTwoEntries)
			a := testsupport.NewWordPress(t, "u", "p")
			b := testsupport.NewWordPress(t, "u", "p")
			c := testsupport.NewWordPress(t, "u", "p")
			c.RejectCreates(http.StatusInternalServerError, `{"code":"db_error"}`)

			dests := []destinations.Client{
				f.client("Site 1", a, "wrong"),
				f.client("Site 2", b, "p"),
				f.client("Site 3", c, "p"),
			}
			report, err := f.service(t, dests, Options{Concurrent: concurrent}, nil).Run(context.Background())
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if len(report.Outcomes) != 3 {
				t.Fatalf("expected 3 outcomes, got %d", len(report.Outcomes))
			}

			var authErr *domain.AuthError
			if report.Outcomes[0].Status != domain.OutcomeFailed || !errors.As(report.Outcomes[0].Err, &authErr) {
				t.Fatalf("expected auth failure for Site 1, got %+v", report.Outcomes[0])
			}
			if report.Outcomes[1].Status != domain.OutcomePublished || report.Outcomes[1].Destination != "Site 2" {
				t.Fatalf("expected Site 2 published, got %+v", report.Outcomes[1])
			}
			var pubErr *domain.PublishError
			if !errors.As(report.Outcomes[2].Err, &pubErr) || !strings.Contains(pubErr.Payload, "db_error") {
				t.Fatalf("expected publish error for Site 3, got %+v", report.Outcomes[2])
			}
			if report.Count(domain.OutcomeFailed) != 2 {
				t.Fatalf("expected 2 failures, got %d", report.Count(domain.OutcomeFailed))
			}
		})
	}
}

func TestRunSiteWithoutCredentialsFailsAlone(t *testing.T) {
	f := newFixture(t, feedTwoEntries)
	a := testsupport.NewWordPress(t, "u", "p")
	b := testsupport.NewWordPress(t, "u", "p")

	incomplete := destinations.NewWordPressClient(domain.Destination{
		Name:    "Site 2",
		Type:    destinations.TypeWordPress,
		BaseURL: b.URL(),
	}, destinations.Deps{HTTP: f.http})

	report, err := f.service(t, []destinations.Client{f.client("Site 1", a, "p"), incomplete}, Options{}, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("a site without credentials must not fail the run: %v", err)
	}
	if report.Outcomes[0].Status != domain.OutcomePublished {
		t.Fatalf("expected Site 1 published, got %+v", report.Outcomes[0])
	}
	var authErr *domain.AuthError
	if report.Outcomes[1].Status != domain.OutcomeFailed || !errors.As(report.Outcomes[1].Err, &authErr) {
		t.Fatalf("expected auth failure for Site 2, got %+v", report.Outcomes[1])
	}
	if len(b.Posts()) != 0 {
		t.Fatalf("Site 2 must not receive a post")
	}
}

func TestRunPreLoopFailures(t *testing.T) {
	cases := []struct {
		name  string
		setup func(n *testsupport.Note)
		check func(t *testing.T, err error)
	}{
		{
			name:  "feed unavailable",
			setup: func(n *testsupport.Note) { n.SetStatus("/alice/rss", http.StatusServiceUnavailable) },
			check: func(t *testing.T, err error) {
				var target *domain.FeedFetchError
				if !errors.As(err, &target) || target.Status != http.StatusServiceUnavailable {
					t.Fatalf("expected FeedFetchError, got %v", err)
				}
			},
		},
		{
			name:  "feed malformed",
			setup: func(n *testsupport.Note) { n.SetFeed("<html>maintenance</html>") },
			check: func(t *testing.T, err error) {
				var target *domain.FeedParseError
				if !errors.As(err, &target) {
					t.Fatalf("expected FeedParseError, got %v", err)
				}
			},
		},
		{
			name:  "article missing",
			setup: func(n *testsupport.Note) { n.SetStatus("/alice/n/n1", http.StatusNotFound) },
			check: func(t *testing.T, err error) {
				var target *domain.ArticleFetchError
				if !errors.As(err, &target) || target.Status != http.StatusNotFound {
					t.Fatalf("expected ArticleFetchError, got %v", err)
				}
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, feedTwoEntries)
			tc.setup(f.note)
			a := testsupport.NewWordPress(t, "u", "p")

			report, err := f.service(t, []destinations.Client{f.client("Site 1", a, "p")}, Options{}, nil).Run(context.Background())
			tc.check(t, err)
			if len(report.Outcomes) != 0 {
				t.Fatalf("no outcomes expected, got %+v", report.Outcomes)
			}
			requireNoCalls(t, a)
		})
	}
}

func TestRunPublishesFallbackWhenContainerMissing(t *testing.T) {
	f := newFixture(t, feedTwoEntries)
	f.note.SetPage("/alice/n/n1", "<html><body><div class=\"paywall\">members only</div></body></html>")
	a := testsupport.NewWordPress(t, "u", "p")

	report, err := f.service(t, []destinations.Client{f.client("Site 1", a, "p")}, Options{}, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Outcomes[0].Status != domain.OutcomePublished {
		t.Fatalf("unexpected outcome %+v", report.Outcomes[0])
	}
	want := "<!-- wp:paragraph -->\n<p>teaser for foo</p>\n<!-- /wp:paragraph -->"
	if got := a.Posts()[0].Content; got != want {
		t.Fatalf("fallback content = %q, want %q", got, want)
	}
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t, feedTwoEntries)
	a := testsupport.NewWordPress(t, "u", "p")
	svc := f.service(t, []destinations.Client{f.client("Site 1", a, "p")}, Options{}, nil)

	first, err := svc.Run(context.Background())
	if err != nil || first.Outcomes[0].Status != domain.OutcomePublished {
		t.Fatalf("first run: %+v %v", first.Outcomes, err)
	}
	second, err := svc.Run(context.Background())
	if err != nil || second.Outcomes[0].Status != domain.OutcomeSkipped {
		t.Fatalf("second run: %+v %v", second.Outcomes, err)
	}
	if len(a.Posts()) != 1 {
		t.Fatalf("expected a single draft, got %d", len(a.Posts()))
	}
}

func TestRunEntrySelection(t *testing.T) {
	for _, newest := range []bool{false, true} {
		f := newFixture(t, feedOutOfOrder)
		f.note.SetPage("/alice/n/pinned", articlePage)
		f.note.SetPage("/alice/n/fresh", articlePage)
		a := testsupport.NewWordPress(t, "u", "p")

		report, err := f.service(t, []destinations.Client{f.client("Site 1", a, "p")}, Options{NewestByDate: newest}, nil).Run(context.Background())
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		want := "Pinned"
		if newest {
			want = "Fresh"
		}
		if report.EntryTitle != want {
			t.Fatalf("newest=%v: expected %q, got %q", newest, want, report.EntryTitle)
		}
	}
}

type captureNotifier struct {
	mu     sync.Mutex
	events []notifiers.Event
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, evt notifiers.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return c.err
}

func TestRunNotifiesWithoutAffectingResult(t *testing.T) {
	f := newFixture(t, feedTwoEntries)
	a := testsupport.NewWordPress(t, "u", "p")
	n := &captureNotifier{err: errors.New("webhook down")}

	report, err := f.service(t, []destinations.Client{f.client("Site 1", a, "p")}, Options{}, n).Run(context.Background())
	if err != nil {
		t.Fatalf("notifier failure must not fail the run: %v", err)
	}
	if len(n.events) != 1 {
		t.Fatalf("expected one event, got %d", len(n.events))
	}
	evt := n.events[0]
	if evt.Event != notifiers.EventRunFinished || evt.EntryTitle != "Foo" || evt.EntryGUID != "note-n1" || evt.ProviderID != providers.NoteProviderID {
		t.Fatalf("unexpected event %+v", evt)
	}
	if len(evt.Outcomes) != 1 || evt.Outcomes[0].PostID != report.Outcomes[0].PostID {
		t.Fatalf("event outcomes do not match report: %+v", evt.Outcomes)
	}
}

type panickingClient struct{}

func (panickingClient) Name() string { return "Broken" }
func (panickingClient) FindByTitle(context.Context, string) ([]destinations.PostSummary, error) {
	return nil, nil
}
func (panickingClient) DuplicateExists(context.Context, string) (bool, error) { panic("nil map") }
func (panickingClient) PublishDraft(context.Context, string, domain.BlockDocument) (domain.PublishOutcome, error) {
	return domain.PublishOutcome{}, nil
}

func TestRunRecoversFromDestinationPanic(t *testing.T) {
	f := newFixture(t, feedTwoEntries)
	b := testsupport.NewWordPress(t, "u", "p")

	report, err := f.service(t, []destinations.Client{panickingClient{}, f.client("Site 2", b, "p")}, Options{}, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Outcomes[0].Status != domain.OutcomeFailed || !strings.Contains(report.Outcomes[0].Reason, "panic") {
		t.Fatalf("unexpected outcome %+v", report.Outcomes[0])
	}
	if report.Outcomes[1].Status != domain.OutcomePublished {
		t.Fatalf("second destination not attempted: %+v", report.Outcomes[1])
	}
}

func TestNewRequiresDestinations(t *testing.T) {
	_, err := New(Deps{
		Fetcher:    providers.NewNoteFetcher(nil),
		Articles:   crawler.NewScraper(nil, nil),
		Transcoder: blocks.New(),
	}, Options{})
	var cfgErr *domain.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}
