package syndicator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Adda-Baaj/note-syndicator/internal/domain"
	"github.com/Adda-Baaj/note-syndicator/internal/logger"
	"github.com/Adda-Baaj/note-syndicator/pkg/destinations"
	"github.com/Adda-Baaj/note-syndicator/pkg/notifiers"
	"github.com/Adda-Baaj/note-syndicator/pkg/providers"
)

const maxDestinationWorkers = 8

// ArticleFetcher downloads the page behind a feed entry.
type ArticleFetcher interface {
	FetchArticle(ctx context.Context, cfg providers.Provider, entry domain.FeedEntry) (domain.RawArticleDocument, error)
}

// Transcoder turns a fetched page into block markup.
type Transcoder interface {
	Transcode(raw domain.RawArticleDocument, entry domain.FeedEntry) (domain.BlockDocument, error)
}

// ReportNotifier receives the finished run report.
type ReportNotifier interface {
	Notify(ctx context.Context, evt notifiers.Event) error
}

// Options tune a Service.
type Options struct {
	// Concurrent runs destination attempts in parallel. Report order is unchanged.
	Concurrent bool
	// NewestByDate picks the entry with the latest publish date instead of the first one.
	NewestByDate bool
}

// Service runs one syndication pass: newest feed entry to every destination.
type Service struct {
	provider     providers.Provider
	fetcher      providers.Fetcher
	articles     ArticleFetcher
	transcoder   Transcoder
	destinations []destinations.Client
	notifier     ReportNotifier
	opts         Options
	log          logger.Logger
	now          func() time.Time
}

// Deps groups the collaborators of a Service.
type Deps struct {
	Provider     providers.Provider
	Fetcher      providers.Fetcher
	Articles     ArticleFetcher
	Transcoder   Transcoder
	Destinations []destinations.Client
	Notifier     ReportNotifier // optional
	Log          logger.Logger
}

// New validates deps and returns a Service.
func New(deps Deps, opts Options) (*Service, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, errors.New("syndicator: feed fetcher is required")
	case deps.Articles == nil:
		return nil, errors.New("syndicator: article fetcher is required")
	case deps.Transcoder == nil:
		return nil, errors.New("syndicator: transcoder is required")
	case len(deps.Destinations) == 0:
		return nil, &domain.ConfigError{Field: "destinations", Msg: "at least one destination is required"}
	}
	return &Service{
		provider:     deps.Provider,
		fetcher:      deps.Fetcher,
		articles:     deps.Articles,
		transcoder:   deps.Transcoder,
		destinations: deps.Destinations,
		notifier:     deps.Notifier,
		opts:         opts,
		log:          logger.Ensure(deps.Log),
		now:          time.Now,
	}, nil
}

// Run executes one pass. A non-nil error means a stage before the
// destination loop failed and no destination was contacted. Per-destination
// failures are recorded in the report and never returned.
func (s *Service) Run(ctx context.Context) (domain.Report, error) {
	report := domain.Report{StartedAt: s.now()}
	finish := func() domain.Report {
		report.FinishedAt = s.now()
		return report
	}

	s.log.InfoObj("fetching feed", "feed_fetch_start", map[string]any{
		"provider_id": s.provider.ID,
		"url":         s.provider.SourceURL,
	})
	entries, err := s.fetcher.Fetch(ctx, s.provider)
	if err != nil {
		s.log.ErrorObj("feed fetch failed", "feed_fetch_error", map[string]any{
			"provider_id": s.provider.ID,
			"error":       err.Error(),
		})
		return finish(), err
	}
	if len(entries) == 0 {
		s.log.InfoObj("feed has no entries", "feed_empty", map[string]any{
			"provider_id": s.provider.ID,
		})
		report.NoEntries = true
		return finish(), nil
	}

	entry := s.selectEntry(entries)
	report.EntryGUID = entry.GUID
	report.EntryTitle = entry.Title
	report.EntryLink = entry.Link
	s.log.InfoObj("entry selected", "entry_selected", map[string]any{
		"guid":  entry.GUID,
		"title": entry.Title,
		"link":  entry.Link,
	})

	raw, err := s.articles.FetchArticle(ctx, s.provider, entry)
	if err != nil {
		s.log.ErrorObj("article fetch failed", "article_fetch_error", map[string]any{
			"link":  entry.Link,
			"error": err.Error(),
		})
		return finish(), err
	}

	doc, err := s.transcoder.Transcode(raw, entry)
	if err != nil {
		s.log.ErrorObj("transcode failed", "transcode_error", map[string]any{
			"link":  entry.Link,
			"error": err.Error(),
		})
		return finish(), err
	}
	s.log.InfoObj("article transcoded", "transcode_done", map[string]any{
		"blocks":   doc.Len(),
		"fallback": doc.Fallback,
	})

	if s.opts.Concurrent {
		report.Outcomes = s.syndicateConcurrent(ctx, entry.Title, doc)
	} else {
		report.Outcomes = make([]domain.PublishOutcome, len(s.destinations))
		for idx, dest := range s.destinations {
			report.Outcomes[idx] = s.syndicateOne(ctx, dest, entry.Title, doc)
		}
	}

	report = finish()
	s.notify(ctx, report)
	return report, nil
}

// selectEntry returns the entry to syndicate. The feed is assumed to list the
// newest entry first; a newer entry further down is logged, and chosen when
// NewestByDate is set.
func (s *Service) selectEntry(entries []domain.FeedEntry) domain.FeedEntry {
	first := entries[0]
	newest := first
	for _, e := range entries[1:] {
		if e.PublishedAt.After(newest.PublishedAt) {
			newest = e
		}
	}
	if newest.PublishedAt.Equal(first.PublishedAt) {
		return first
	}

	s.log.WarnObj("first feed entry is not the newest by date", "feed_order_mismatch", map[string]any{
		"first_title":      first.Title,
		"first_published":  first.PublishedAt,
		"newest_title":     newest.Title,
		"newest_published": newest.PublishedAt,
		"using_newest":     s.opts.NewestByDate,
	})
	if s.opts.NewestByDate {
		return newest
	}
	return first
}

// syndicateConcurrent fans the destinations out over a bounded worker pool.
// Each worker writes only the slot of the destination it handled.
func (s *Service) syndicateConcurrent(ctx context.Context, title string, doc domain.BlockDocument) []domain.PublishOutcome {
	out := make([]domain.PublishOutcome, len(s.destinations))
	workerCount := min(len(s.destinations), maxDestinationWorkers)

	jobCh := make(chan int)
	var wg sync.WaitGroup
	for range workerCount {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobCh {
				out[idx] = s.syndicateOne(ctx, s.destinations[idx], title, doc)
			}
		}()
	}

	for idx := range s.destinations {
		jobCh <- idx
	}
	close(jobCh)
	wg.Wait()

	return out
}

// syndicateOne runs the duplicate check and publish for one destination.
// Errors are converted into a Failed outcome.
func (s *Service) syndicateOne(ctx context.Context, dest destinations.Client, title string, doc domain.BlockDocument) (outcome domain.PublishOutcome) {
	name := dest.Name()
	defer func() {
		if r := recover(); r != nil {
			outcome = s.failed(name, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return s.failed(name, err)
	}

	dup, err := dest.DuplicateExists(ctx, title)
	if err != nil {
		return s.failed(name, err)
	}
	if dup {
		s.log.InfoObj("duplicate found, skipping", "destination_skipped", map[string]any{
			"destination": name,
			"title":       title,
		})
		return domain.Skipped(name)
	}

	outcome, err = dest.PublishDraft(ctx, title, doc)
	if err != nil {
		return s.failed(name, err)
	}
	s.log.InfoObj("draft published", "destination_published", map[string]any{
		"destination": name,
		"post_id":     outcome.PostID,
		"link":        outcome.Link,
	})
	return outcome
}

func (s *Service) failed(name string, err error) domain.PublishOutcome {
	s.log.ErrorObj("destination failed", "destination_failed", map[string]any{
		"destination": name,
		"error":       err.Error(),
	})
	return domain.Failed(name, err)
}

func (s *Service) notify(ctx context.Context, report domain.Report) {
	if s.notifier == nil {
		return
	}
	evt := notifiers.EventFromReport(s.provider.ID, report)
	if err := s.notifier.Notify(ctx, evt); err != nil {
		s.log.WarnObj("run report notification failed", "notify_error", map[string]any{
			"error": err.Error(),
		})
	}
}
