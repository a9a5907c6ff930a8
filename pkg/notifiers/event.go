package notifiers

import (
	"context"
	"time"

	"github.com/Adda-Baaj/note-syndicator/internal/domain"
	"github.com/Adda-Baaj/note-syndicator/internal/logger"
)

// EventRunFinished is the event name of a completed syndication run.
const EventRunFinished = "syndication.run"

// Logger is the logging surface used by notifiers.
type Logger = logger.Logger

func ensureLogger(log Logger) Logger { return logger.Ensure(log) }

// Notifier delivers run reports to one downstream sink.
type Notifier interface {
	ID() string
	Type() string
	Notify(ctx context.Context, evt Event) error
}

// Event is the payload sent to every notifier.
type Event struct {
	Event      string         `json:"event"`
	ProviderID string         `json:"provider_id"`
	EntryGUID  string         `json:"entry_guid,omitempty"`
	EntryTitle string         `json:"entry_title"`
	EntryLink  string         `json:"entry_link"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Outcomes   []OutcomeEvent `json:"outcomes"`
}

// OutcomeEvent is the serialized form of one destination's outcome.
type OutcomeEvent struct {
	Destination string `json:"destination"`
	Status      string `json:"status"`
	PostID      int64  `json:"post_id,omitempty"`
	Link        string `json:"link,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// EventFromReport converts a run report into a notifier event.
func EventFromReport(providerID string, r domain.Report) Event {
	evt := Event{
		Event:      EventRunFinished,
		ProviderID: providerID,
		EntryGUID:  r.EntryGUID,
		EntryTitle: r.EntryTitle,
		EntryLink:  r.EntryLink,
		StartedAt:  r.StartedAt.UTC(),
		FinishedAt: r.FinishedAt.UTC(),
		Outcomes:   make([]OutcomeEvent, 0, len(r.Outcomes)),
	}
	for _, o := range r.Outcomes {
		evt.Outcomes = append(evt.Outcomes, OutcomeEvent{
			Destination: o.Destination,
			Status:      string(o.Status),
			PostID:      o.PostID,
			Link:        o.Link,
			Reason:      o.Reason,
		})
	}
	return evt
}

// FailedCount returns how many destinations failed in this run.
func (e Event) FailedCount() int {
	n := 0
	for _, o := range e.Outcomes {
		if o.Status == string(domain.OutcomeFailed) {
			n++
		}
	}
	return n
}
