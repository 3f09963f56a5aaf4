package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/marketplace/pkg/kafka"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/models"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/repo"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/testdb"
)

type fakeWriter struct {
	mu   sync.Mutex
	err  error
	sent []kafka.Message
}

func (w *fakeWriter) Publish(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.sent = append(w.sent, msgs...)
	return nil
}

func (w *fakeWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.sent)
}

func seedEvents(t *testing.T, r *repo.GormRepo, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		ev := &models.OutboxEvent{
			Topic:     "order_events",
			EventType: "order_created",
			Key:       uuid.NewString(),
			Payload:   []byte(`{"type":"order_created"}`),
		}
		require.NoError(t, r.InsertOutbox(context.Background(), ev))
	}
}

func TestRelayOnce_PublishesAndMarksSent(t *testing.T) {
	db := testdb.Open(t)
	r := &repo.GormRepo{DB: db}
	seedEvents(t, r, 3)

	w := &fakeWriter{}
	relay := &Relay{Repo: r, Writer: w, Batch: 10}

	n, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, w.sent, 3)
	assert.Equal(t, "order_events", w.sent[0].Topic)
	assert.Equal(t, "order_created", w.sent[0].Headers["event_type"])
	assert.NotEmpty(t, w.sent[0].Key)

	n, err = relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, w.sent, 3)
}

func TestRelayOnce_BrokerFailureKeepsEvents(t *testing.T) {
	db := testdb.Open(t)
	r := &repo.GormRepo{DB: db}
	seedEvents(t, r, 2)

	w := &fakeWriter{err: errors.New("broker unavailable")}
	relay := &Relay{Repo: r, Writer: w}

	_, err := relay.RelayOnce(context.Background())
	require.Error(t, err)

	pending, err := r.PendingOutbox(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, "broker unavailable", pending[0].LastError)

	w.err = nil
	n, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRun_DrainsInBatches(t *testing.T) {
	db := testdb.Open(t)
	r := &repo.GormRepo{DB: db}
	seedEvents(t, r, 5)

	w := &fakeWriter{}
	relay := &Relay{Repo: r, Writer: w, Batch: 2, Interval: 10 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return w.count() == 5 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done
}
