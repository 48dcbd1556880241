package election

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"amicale/pkg/platform/sentinel"
	txcontext "amicale/pkg/platform/tx"
)

// Postgres reads elections from the elections table, which is owned and
// written by the election management service. The uuid arrays are scanned
// through pq string arrays.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (*Election, error) {
	query := `
		SELECT id, name, min_seniority_days, allowed_section_ids, voter_condition_ids, starts_at, ends_at
		FROM elections
		WHERE id = $1
	`
	var (
		e            Election
		sectionIDs   pq.StringArray
		conditionIDs pq.StringArray
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.Name, &e.MinSeniorityDays, &sectionIDs, &conditionIDs, &e.StartsAt, &e.EndsAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan election: %w", err)
	}

	if e.AllowedSectionIDs, err = parseUUIDs(sectionIDs); err != nil {
		return nil, fmt.Errorf("parse allowed section ids: %w", err)
	}
	if e.VoterConditionIDs, err = parseUUIDs(conditionIDs); err != nil {
		return nil, fmt.Errorf("parse voter condition ids: %w", err)
	}
	return &e, nil
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
