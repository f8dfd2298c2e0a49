package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/database"
	"storefront/logging"
)

type fakeOutbox struct {
	mu      sync.Mutex
	records []database.OutboxRecord
	sent    []int64
}

func (f *fakeOutbox) FetchPending(_ context.Context, limit int) ([]database.OutboxRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []database.OutboxRecord
	for _, rec := range f.records {
		if rec.SentAt == nil && len(out) < limit {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeOutbox) MarkSent(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for i := range f.records {
		if f.records[i].ID == id {
			f.records[i].SentAt = &now
		}
	}
	f.sent = append(f.sent, id)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	failAt int
}

func (p *fakePublisher) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAt > 0 && len(p.msgs)+1 == p.failAt {
		return errors.New("broker unavailable")
	}
	p.msgs = append(p.msgs, msgs...)
	return nil
}

type countingObserver struct{ ok, failed int }

func (o *countingObserver) EventRelayed(ok bool) {
	if ok {
		o.ok++
		return
	}
	o.failed++
}

func record(id int64, orderKey string) database.OutboxRecord {
	payload, _ := json.Marshal(map[string]any{"order_id": orderKey})
	return database.OutboxRecord{
		ID:        id,
		EventID:   "evt-" + orderKey,
		Topic:     "storefront.orders",
		Key:       orderKey,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}

func TestFlushPublishesAndMarksSent(t *testing.T) {
	src := &fakeOutbox{records: []database.OutboxRecord{record(1, "10"), record(2, "11")}}
	pub := &fakePublisher{}
	obs := &countingObserver{}
	relay := NewRelay(src, pub, time.Millisecond, obs, logging.Discard())

	n, err := relay.Flush(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{1, 2}, src.sent)
	require.Len(t, pub.msgs, 2)
	assert.Equal(t, "storefront.orders", pub.msgs[0].Topic)
	assert.Equal(t, []byte("10"), pub.msgs[0].Key)
	assert.Equal(t, "evt-10", string(pub.msgs[0].Headers[0].Value))
	assert.Equal(t, 2, obs.ok)

	n, err = relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFlushStopsAtFirstFailure(t *testing.T) {
	src := &fakeOutbox{records: []database.OutboxRecord{record(1, "10"), record(2, "11"), record(3, "12")}}
	pub := &fakePublisher{failAt: 2}
	obs := &countingObserver{}
	relay := NewRelay(src, pub, time.Millisecond, obs, logging.Discard())

	n, err := relay.Flush(context.Background())
	require.Error(t, err)

	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{1}, src.sent)
	assert.Equal(t, 1, obs.failed)
}

func TestRunStopsOnCancel(t *testing.T) {
	src := &fakeOutbox{records: []database.OutboxRecord{record(1, "10")}}
	pub := &fakePublisher{}
	relay := NewRelay(src, pub, 5*time.Millisecond, nil, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return len(src.sent) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
