package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"storefront/database"
	"storefront/logging"
)

const defaultBatchSize = 100

// OutboxSource is satisfied by *database.Outbox.
type OutboxSource interface {
	FetchPending(ctx context.Context, limit int) ([]database.OutboxRecord, error)
	MarkSent(ctx context.Context, id int64) error
}

// RelayObserver is told the outcome of every publish attempt.
type RelayObserver interface {
	EventRelayed(ok bool)
}

// Relay copies pending outbox records to Kafka. Delivery is at least once: a record
// is marked sent only after the broker acknowledged it.
type Relay struct {
	source    OutboxSource
	pub       Publisher
	interval  time.Duration
	batchSize int
	observer  RelayObserver
	log       *logrus.Entry
}

func NewRelay(source OutboxSource, pub Publisher, interval time.Duration, observer RelayObserver, log *logrus.Entry) *Relay {
	if interval <= 0 {
		interval = time.Second
	}
	return &Relay{
		source:    source,
		pub:       pub,
		interval:  interval,
		batchSize: defaultBatchSize,
		observer:  observer,
		log:       log.WithField(logging.FieldStep, "outbox_relay"),
	}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
			r.log.WithError(err).Warn("outbox relay pass failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Flush publishes one batch in id order and stops at the first failure so ordering
// per order key is kept. It returns the number of records sent.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	records, err := r.source.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch pending: %w", err)
	}

	sent := 0
	for _, rec := range records {
		msg := kafka.Message{
			Topic: rec.Topic,
			Key:   []byte(rec.Key),
			Value: rec.Payload,
			Time:  rec.CreatedAt,
			Headers: []kafka.Header{
				{Key: "event_id", Value: []byte(rec.EventID)},
			},
		}
		if err := r.pub.WriteMessages(ctx, msg); err != nil {
			r.observe(false)
			return sent, fmt.Errorf("publish %s: %w", rec.EventID, err)
		}
		if err := r.source.MarkSent(ctx, rec.ID); err != nil {
			return sent, fmt.Errorf("mark sent %s: %w", rec.EventID, err)
		}
		r.observe(true)
		sent++
		r.log.WithFields(logrus.Fields{
			logging.FieldEventID: rec.EventID,
			"topic":              rec.Topic,
		}).Debug("outbox event published")
	}
	return sent, nil
}

func (r *Relay) observe(ok bool) {
	if r.observer != nil {
		r.observer.EventRelayed(ok)
	}
}
