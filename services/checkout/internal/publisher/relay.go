package publisher

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/marketplace/pkg/kafka"
	"github.com/Skotchmaster/marketplace/pkg/logging"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/metrics"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/repo"
)

const (
	DefaultBatch    = 100
	DefaultInterval = 2 * time.Second
)

type Writer interface {
	Publish(ctx context.Context, msgs ...kafka.Message) error
}

// Relay drains the outbox table into Kafka. Delivery is at least once: rows
// are marked sent only after the broker accepted the batch.
type Relay struct {
	Repo     *repo.GormRepo
	Writer   Writer
	Metrics  *metrics.Checkout
	Batch    int
	Interval time.Duration
}

func (r *Relay) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	l := logging.FromContext(ctx).With("component", "outbox.relay")
	l.Info("outbox_relay_started", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Info("outbox_relay_stopped")
			return
		case <-ticker.C:
			for {
				n, err := r.RelayOnce(ctx)
				if err != nil {
					l.Warn("outbox_relay_failed", "error", err)
					break
				}
				if n < r.batch() {
					break
				}
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many events were sent.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	events, err := r.Repo.PendingOutbox(ctx, r.batch())
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	ids := make([]uuid.UUID, 0, len(events))
	for _, ev := range events {
		msgs = append(msgs, kafka.Message{
			Topic: ev.Topic,
			Key:   ev.Key,
			Value: ev.Payload,
			Headers: map[string]string{
				"event_id":   ev.ID.String(),
				"event_type": ev.EventType,
			},
		})
		ids = append(ids, ev.ID)
	}

	if err := r.Writer.Publish(ctx, msgs...); err != nil {
		r.Metrics.ObserveOutbox(false, len(msgs))
		if merr := r.Repo.MarkOutboxFailed(ctx, ids, err.Error()); merr != nil {
			logging.FromContext(ctx).Warn("outbox_mark_failed_error", "error", merr)
		}
		return 0, err
	}
	r.Metrics.ObserveOutbox(true, len(msgs))

	if err := r.Repo.MarkOutboxSent(ctx, ids, time.Now().UTC()); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (r *Relay) batch() int {
	if r.Batch > 0 {
		return r.Batch
	}
	return DefaultBatch
}
