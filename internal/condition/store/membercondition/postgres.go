package membercondition

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"amicale/internal/condition/models"
	"amicale/pkg/platform/sentinel"
	txcontext "amicale/pkg/platform/tx"
)

// Postgres persists member-condition state in the member_conditions table
// with a primary key on (member_uid, condition_id), written through an
// ON CONFLICT upsert. Operations join the surrounding transaction when one
// is carried in the context.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const memberConditionColumns = `member_uid, condition_id, validated, validated_by, validated_at, expires_at, note, evidence`

func (s *Postgres) Upsert(ctx context.Context, mc *models.MemberCondition) error {
	query := `
		INSERT INTO member_conditions (` + memberConditionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (member_uid, condition_id) DO UPDATE
		SET validated = EXCLUDED.validated, validated_by = EXCLUDED.validated_by,
		    validated_at = EXCLUDED.validated_at, expires_at = EXCLUDED.expires_at,
		    note = EXCLUDED.note, evidence = EXCLUDED.evidence
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		mc.MemberUID, mc.ConditionID, mc.Validated, mc.ValidatedBy,
		mc.ValidatedAt, mc.ExpiresAt, mc.Note, mc.Evidence,
	)
	if err != nil {
		return fmt.Errorf("upsert member condition: %w", err)
	}
	return nil
}

func (s *Postgres) Find(ctx context.Context, memberUID string, conditionID uuid.UUID) (*models.MemberCondition, error) {
	query := `
		SELECT ` + memberConditionColumns + `
		FROM member_conditions
		WHERE member_uid = $1 AND condition_id = $2
	`
	return scanMemberCondition(s.execer(ctx).QueryRowContext(ctx, query, memberUID, conditionID))
}

func (s *Postgres) ListByMember(ctx context.Context, memberUID string) ([]*models.MemberCondition, error) {
	query := `
		SELECT ` + memberConditionColumns + `
		FROM member_conditions
		WHERE member_uid = $1
		ORDER BY condition_id
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, memberUID)
	if err != nil {
		return nil, fmt.Errorf("list member conditions: %w", err)
	}
	defer rows.Close()

	var out []*models.MemberCondition
	for rows.Next() {
		mc, err := scanMemberCondition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemberCondition(row rowScanner) (*models.MemberCondition, error) {
	var (
		mc        models.MemberCondition
		expiresAt sql.NullTime
	)
	err := row.Scan(&mc.MemberUID, &mc.ConditionID, &mc.Validated, &mc.ValidatedBy,
		&mc.ValidatedAt, &expiresAt, &mc.Note, &mc.Evidence)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan member condition: %w", err)
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		mc.ExpiresAt = &t
	}
	return &mc, nil
}
