package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Producer publishes serialized audit entries to the event bus. Implemented
// by the Kafka client in internal/audit/publisher; tests inject fakes.
type Producer interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// Worker drains appended audit entries to the event bus. The store remains
// the source of truth; forwarding is best-effort and failures are logged,
// never surfaced to the operation that produced the entry.
type Worker struct {
	producer Producer
	inbox    <-chan Entry
	logger   *slog.Logger
}

func NewWorker(producer Producer, inbox <-chan Entry, logger *slog.Logger) *Worker {
	return &Worker{producer: producer, inbox: inbox, logger: logger}
}

// forwardedEntry is the JSON structure published to the bus.
type forwardedEntry struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	ActorID    string         `json:"actor_id,omitempty"`
	ActorRole  string         `json:"actor_role,omitempty"`
	TargetType string         `json:"target_type,omitempty"`
	TargetID   string         `json:"target_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	ClientIP   string         `json:"client_ip,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	Timestamp  string         `json:"timestamp"`
}

// Run consumes entries until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry := <-w.inbox:
			w.forward(ctx, entry)
		}
	}
}

func (w *Worker) forward(ctx context.Context, entry Entry) {
	payload, err := json.Marshal(forwardedEntry{
		ID:         entry.ID.String(),
		Action:     string(entry.Action),
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		TargetType: entry.TargetType,
		TargetID:   entry.TargetID,
		Details:    entry.Details,
		RequestID:  entry.RequestID,
		ClientIP:   entry.ClientIP,
		UserAgent:  entry.UserAgent,
		Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
	})
	if err != nil {
		w.logger.ErrorContext(ctx, "marshal audit entry for forwarding", "error", err, "entry_id", entry.ID)
		return
	}

	// Key by target so per-entity ordering survives partitioning.
	key := entry.TargetType + ":" + entry.TargetID
	if err := w.producer.Publish(ctx, key, payload); err != nil {
		w.logger.ErrorContext(ctx, "forward audit entry", "error", err, "entry_id", entry.ID)
	}
}
