package notifiers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// queueSender abstracts provider-specific queue senders.
type queueSender interface {
	Send(ctx context.Context, payload []byte, attrs map[string]string) error
}

// queueNotifier dispatches run reports to a cloud queue provider.
type queueNotifier struct {
	id       string
	typ      string
	provider string
	sender   queueSender
	log      Logger
}

// newQueueNotifier creates a queue notifier for the configured provider.
func newQueueNotifier(ctx context.Context, cfg NotifierConfig, deps Deps) (Notifier, error) {
	if cfg.Queue == nil {
		return nil, fmt.Errorf("notifier %q missing queue configuration", cfg.ID)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var (
		sender queueSender
		err    error
	)

	switch cfg.Queue.Provider {
	case QueueProviderAWSSQS:
		sender, err = newAWSSQSSender(ctx, cfg.Queue.SQS, deps.Log)
	case QueueProviderAWSSNS:
		sender, err = newAWSSNSSender(ctx, cfg.Queue.SNS, deps.Log)
	case QueueProviderGCP:
		sender, err = newGCPPubSubSender(ctx, cfg.Queue.GCP, deps.Log)
	default:
		err = fmt.Errorf("queue provider %q is not supported", cfg.Queue.Provider)
	}
	if err != nil {
		return nil, err
	}

	return &queueNotifier{
		id:       cfg.ID,
		typ:      cfg.Type,
		provider: cfg.Queue.Provider,
		sender:   sender,
		log:      ensureLogger(deps.Log),
	}, nil
}

func (n *queueNotifier) ID() string   { return n.id }
func (n *queueNotifier) Type() string { return n.typ }

// Notify serializes the event and forwards it with routing attributes.
func (n *queueNotifier) Notify(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := n.sender.Send(ctx, payload, messageAttributes(evt)); err != nil {
		return fmt.Errorf("queue provider %s send failed: %w", n.provider, err)
	}
	return nil
}

// messageAttributes are attached to every queued message so subscribers can filter.
func messageAttributes(evt Event) map[string]string {
	return map[string]string{
		"event":       evt.Event,
		"provider_id": evt.ProviderID,
		"failed":      strconv.Itoa(evt.FailedCount()),
	}
}
