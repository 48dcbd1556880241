package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"amicale/internal/audit"
	txcontext "amicale/pkg/platform/tx"
)

// Store implements audit.Store over postgres. Appends join the surrounding
// SQL transaction when one is present in the context, so audit entries commit
// or roll back together with the state change they describe.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	var details []byte
	if entry.Details != nil {
		var err error
		details, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (id, action, actor_id, actor_role, target_type, target_id, details, request_id, client_ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		entry.ID,
		string(entry.Action),
		entry.ActorID,
		entry.ActorRole,
		entry.TargetType,
		entry.TargetID,
		details,
		entry.RequestID,
		entry.ClientIP,
		entry.UserAgent,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *Store) ListByTarget(ctx context.Context, targetType, targetID string) ([]audit.Entry, error) {
	query := `
		SELECT id, action, actor_id, actor_role, target_type, target_id, details, request_id, client_ip, user_agent, created_at
		FROM audit_logs
		WHERE target_type = $1 AND target_id = $2
		ORDER BY created_at ASC
	`
	return s.list(ctx, query, targetType, targetID)
}

func (s *Store) ListByActor(ctx context.Context, actorID string) ([]audit.Entry, error) {
	query := `
		SELECT id, action, actor_id, actor_role, target_type, target_id, details, request_id, client_ip, user_agent, created_at
		FROM audit_logs
		WHERE actor_id = $1
		ORDER BY created_at ASC
	`
	return s.list(ctx, query, actorID)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]audit.Entry, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var (
			entry   audit.Entry
			id      uuid.UUID
			action  string
			details []byte
			ts      time.Time
		)
		if err := rows.Scan(&id, &action, &entry.ActorID, &entry.ActorRole,
			&entry.TargetType, &entry.TargetID, &details,
			&entry.RequestID, &entry.ClientIP, &entry.UserAgent, &ts); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.ID = id
		entry.Action = audit.Action(action)
		entry.Timestamp = ts
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("unmarshal audit details: %w", err)
			}
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
