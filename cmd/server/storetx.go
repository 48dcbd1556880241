package main

import (
	"context"
	"database/sql"
	"fmt"

	txcontext "amicale/pkg/platform/tx"
)

// sqlStoreTx runs service transactions on a real database transaction. The
// open *sql.Tx is smuggled through the context so every store joins it.
type sqlStoreTx struct {
	db *sql.DB
}

func newSQLStoreTx(db *sql.DB) *sqlStoreTx {
	return &sqlStoreTx{db: db}
}

func (s *sqlStoreTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
