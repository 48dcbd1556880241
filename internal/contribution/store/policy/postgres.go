package policy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"amicale/internal/contribution/models"
	"amicale/pkg/platform/sentinel"
	txcontext "amicale/pkg/platform/tx"
)

// Postgres persists policies in the contribution_policies table. A partial
// unique index on is_active backs the single-active invariant at the storage
// layer. Operations join the surrounding transaction when one is carried in
// the context.
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

const policyColumns = `id, name, amount, currency, periodicity, grace_period_days, is_active, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, p *models.Policy) error {
	query := `
		INSERT INTO contribution_policies (` + policyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		p.ID, p.Name, p.Amount, p.Currency, string(p.Periodicity),
		p.GracePeriodDays, p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert policy: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (*models.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM contribution_policies WHERE id = $1`
	return scanPolicy(s.execer(ctx).QueryRowContext(ctx, query, id))
}

func (s *Postgres) FindActive(ctx context.Context) (*models.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM contribution_policies WHERE is_active`
	return scanPolicy(s.execer(ctx).QueryRowContext(ctx, query))
}

func (s *Postgres) Update(ctx context.Context, p *models.Policy) error {
	query := `
		UPDATE contribution_policies
		SET name = $2, amount = $3, currency = $4, periodicity = $5,
		    grace_period_days = $6, is_active = $7, updated_at = $8
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		p.ID, p.Name, p.Amount, p.Currency, string(p.Periodicity),
		p.GracePeriodDays, p.IsActive, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update policy: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update policy rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) List(ctx context.Context) ([]*models.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM contribution_policies ORDER BY created_at`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()

	var out []*models.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row rowScanner) (*models.Policy, error) {
	var (
		p           models.Policy
		periodicity string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Amount, &p.Currency, &periodicity,
		&p.GracePeriodDays, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan policy: %w", err)
	}
	p.Periodicity = models.Periodicity(periodicity)
	return &p, nil
}
