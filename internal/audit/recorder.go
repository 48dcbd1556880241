package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"amicale/pkg/requestcontext"
)

// Recorder captures structured audit entries. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily. When a
// forwarding inbox is attached, appended entries are also offered to the
// background worker for Kafka publication; a full inbox never blocks the
// request path.
type Recorder struct {
	store  Store
	inbox  chan<- Entry
	logger *slog.Logger
}

type RecorderOption func(*Recorder)

// WithForwarding attaches the channel drained by the Kafka worker.
func WithForwarding(inbox chan<- Entry) RecorderOption {
	return func(r *Recorder) { r.inbox = inbox }
}

func NewRecorder(store Store, logger *slog.Logger, opts ...RecorderOption) *Recorder {
	r := &Recorder{store: store, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Append persists one audit entry, enriching it with request-scoped metadata.
// The entry timestamp comes from the request's trusted time source so entries
// written inside one transaction share one instant.
func (r *Recorder) Append(ctx context.Context, entry Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = requestcontext.Now(ctx)
	}
	if entry.RequestID == "" {
		entry.RequestID = requestcontext.RequestID(ctx)
	}
	if entry.ClientIP == "" {
		entry.ClientIP = requestcontext.ClientIP(ctx)
	}
	if entry.UserAgent == "" {
		entry.UserAgent = requestcontext.UserAgent(ctx)
	}

	if err := r.store.Append(ctx, entry); err != nil {
		return err
	}

	if r.inbox != nil {
		select {
		case r.inbox <- entry:
		default:
			if r.logger != nil {
				r.logger.WarnContext(ctx, "audit forwarding inbox full, entry not forwarded",
					"action", entry.Action,
					"entry_id", entry.ID,
				)
			}
		}
	}
	return nil
}

// ListByTarget returns the audit trail for one entity.
func (r *Recorder) ListByTarget(ctx context.Context, targetType, targetID string) ([]Entry, error) {
	return r.store.ListByTarget(ctx, targetType, targetID)
}

// ListByActor returns the actions performed by one principal.
func (r *Recorder) ListByActor(ctx context.Context, actorID string) ([]Entry, error) {
	return r.store.ListByActor(ctx, actorID)
}
