package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amicale/internal/audit"
)

type capturedMessage struct {
	key     string
	payload []byte
}

type fakeProducer struct {
	mu       sync.Mutex
	messages []capturedMessage
	failNext bool
}

func (p *fakeProducer) Publish(_ context.Context, key string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failNext {
		p.failNext = false
		return errors.New("broker unavailable")
	}
	p.messages = append(p.messages, capturedMessage{key: key, payload: payload})
	return nil
}

func (p *fakeProducer) all() []capturedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]capturedMessage(nil), p.messages...)
}

func TestWorkerForwardsEntries(t *testing.T) {
	producer := &fakeProducer{}
	inbox := make(chan audit.Entry, 4)
	worker := audit.NewWorker(producer, inbox, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	entry := audit.Entry{
		ID:         uuid.New(),
		Action:     audit.ActionPaymentRecorded,
		ActorID:    "admin-1",
		ActorRole:  "admin",
		TargetType: "payment_record",
		TargetID:   "p-1",
		Details:    map[string]any{"amount": 25.0},
		Timestamp:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	inbox <- entry

	require.Eventually(t, func() bool {
		return len(producer.all()) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done

	msg := producer.all()[0]
	assert.Equal(t, "payment_record:p-1", msg.key, "key carries the target so partitioning keeps per-entity order")

	var forwarded map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &forwarded))
	assert.Equal(t, entry.ID.String(), forwarded["id"])
	assert.Equal(t, "payment.record", forwarded["action"])
	assert.Equal(t, "admin-1", forwarded["actor_id"])
	assert.Equal(t, "2026-03-01T10:00:00Z", forwarded["timestamp"])
}

func TestWorkerSurvivesPublishFailure(t *testing.T) {
	producer := &fakeProducer{failNext: true}
	inbox := make(chan audit.Entry, 4)
	worker := audit.NewWorker(producer, inbox, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	// A failed publish is logged and dropped; the next entry still flows.
	inbox <- audit.Entry{ID: uuid.New(), Action: audit.ActionMemberCreated}
	inbox <- audit.Entry{ID: uuid.New(), Action: audit.ActionMemberUpdated, TargetType: "member", TargetID: "m-2"}

	require.Eventually(t, func() bool {
		return len(producer.all()) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done

	assert.Equal(t, "member:m-2", producer.all()[0].key)
}

func TestWorkerStopsOnCancel(t *testing.T) {
	producer := &fakeProducer{}
	inbox := make(chan audit.Entry)
	worker := audit.NewWorker(producer, inbox, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- worker.Run(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}
