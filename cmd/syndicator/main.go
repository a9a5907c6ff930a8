package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adda-Baaj/note-syndicator/internal/blocks"
	"github.com/Adda-Baaj/note-syndicator/internal/config"
	"github.com/Adda-Baaj/note-syndicator/internal/crawler"
	"github.com/Adda-Baaj/note-syndicator/internal/domain"
	"github.com/Adda-Baaj/note-syndicator/internal/logger"
	"github.com/Adda-Baaj/note-syndicator/internal/syndicator"
	"github.com/Adda-Baaj/note-syndicator/pkg/destinations"
	"github.com/Adda-Baaj/note-syndicator/pkg/httpclient"
	"github.com/Adda-Baaj/note-syndicator/pkg/notifiers"
	"github.com/Adda-Baaj/note-syndicator/pkg/providers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout, log); err != nil {
		log.ErrorObj("syndication run failed", "run_failed", map[string]any{"error": err.Error()})
		stop()
		_ = log.Sync()
		os.Exit(1)
	}
}

// run wires the components from cfg, executes one pass and prints one line
// per destination to out. The returned error is a setup or pre-loop failure.
func run(ctx context.Context, cfg *config.Config, out io.Writer, log logger.Logger) error {
	log = logger.Ensure(log)
	client := httpclient.NewRestyClient(cfg.HTTPTimeout)

	provider, err := cfg.Provider()
	if err != nil {
		return err
	}
	fetcher, err := providers.DefaultFetcherRegistry(client).FetcherFor(provider)
	if err != nil {
		return err
	}

	dests, err := destinations.BuildAll(destinations.DefaultRegistry(), cfg.Destinations, destinations.Deps{
		HTTP:      client,
		UserAgent: cfg.UserAgent,
		Log:       log,
	})
	if err != nil {
		return err
	}

	var notifier syndicator.ReportNotifier
	if len(cfg.Notifiers) > 0 {
		built, err := notifiers.BuildAll(ctx, notifiers.DefaultRegistry(), cfg.Notifiers, notifiers.Deps{HTTP: client, Log: log})
		if err != nil {
			return err
		}
		notifier = notifiers.NewFanout(built, log)
	}

	svc, err := syndicator.New(syndicator.Deps{
		Provider:     provider,
		Fetcher:      fetcher,
		Articles:     crawler.NewScraper(client, log),
		Transcoder:   blocks.New(),
		Destinations: dests,
		Notifier:     notifier,
		Log:          log,
	}, syndicator.Options{
		Concurrent:   cfg.Concurrent,
		NewestByDate: cfg.NewestByDate,
	})
	if err != nil {
		return err
	}

	log.InfoObj("syndication started", "run_start", map[string]any{
		"provider_id":  provider.ID,
		"feed":         provider.SourceURL,
		"destinations": len(dests),
		"notifiers":    len(cfg.Notifiers),
		"concurrent":   cfg.Concurrent,
	})

	report, err := svc.Run(ctx)
	if err != nil {
		return err
	}
	if report.NoEntries {
		fmt.Fprintln(out, "No entries found in feed.")
		return nil
	}
	for _, line := range report.Lines() {
		fmt.Fprintln(out, line)
	}

	log.InfoObj("syndication finished", "run_done", map[string]any{
		"title":     report.EntryTitle,
		"published": report.Count(domain.OutcomePublished),
		"skipped":   report.Count(domain.OutcomeSkipped),
		"failed":    report.Count(domain.OutcomeFailed),
		"duration":  report.FinishedAt.Sub(report.StartedAt).String(),
	})
	return nil
}
