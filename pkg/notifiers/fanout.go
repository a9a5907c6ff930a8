package notifiers

import (
	"context"
	"errors"
	"fmt"
)

// Fanout delivers one event to several notifiers.
type Fanout struct {
	notifiers []Notifier
	log       Logger
}

// NewFanout returns a Fanout over the given notifiers.
func NewFanout(notifiers []Notifier, log Logger) *Fanout {
	return &Fanout{notifiers: notifiers, log: ensureLogger(log)}
}

// Notify calls every notifier in order. A failing notifier does not stop
// the rest; all failures are joined into the returned error.
func (f *Fanout) Notify(ctx context.Context, evt Event) error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, n := range f.notifiers {
		if err := n.Notify(ctx, evt); err != nil {
			f.log.WarnObj("notifier failed", "notifier_error", map[string]any{
				"notifier_id":   n.ID(),
				"notifier_type": n.Type(),
				"error":         err.Error(),
			})
			errs = append(errs, fmt.Errorf("notifier %s: %w", n.ID(), err))
		}
	}
	return errors.Join(errs...)
}
