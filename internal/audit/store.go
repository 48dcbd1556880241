package audit

import "context"

// Store persists audit entries. It is append-only; implementations must not
// expose mutation or deletion.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByTarget(ctx context.Context, targetType, targetID string) ([]Entry, error)
	ListByActor(ctx context.Context, actorID string) ([]Entry, error)
}
