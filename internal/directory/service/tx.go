package service

import (
	"context"
	"sync"
	"time"

	dErrors "amicale/pkg/domain-errors"
)

// StoreTx provides a transactional boundary for directory mutations.
// Implementations may wrap a database transaction or, in-memory, a coarse
// lock. Within one RunInTx call, concurrent callers observe either the full
// before-state or the full after-state.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

const defaultTxTimeout = 5 * time.Second

// inMemoryStoreTx serializes directory transactions with one lock. Good
// enough for tests and single-instance deployments; postgres deployments use
// the SQL transaction wrapper from cmd/server.
type inMemoryStoreTx struct {
	mu      sync.Mutex
	timeout time.Duration
}

func NewInMemoryStoreTx() StoreTx {
	return &inMemoryStoreTx{}
}

func (t *inMemoryStoreTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx)
}
