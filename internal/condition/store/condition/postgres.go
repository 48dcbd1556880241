package condition

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

// Postgres persists conditions in the conditions table. Operations join the
// surrounding transaction when one is carried in the context.
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

const conditionColumns = `id, name, description, type, validity_days, is_active, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, c *models.Condition) error {
	query := `
		INSERT INTO conditions (` + conditionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		c.ID, c.Name, c.Description, string(c.Type), c.ValidityDays,
		c.IsActive, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert condition: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (*models.Condition, error) {
	query := `SELECT ` + conditionColumns + ` FROM conditions WHERE id = $1`
	return scanCondition(s.execer(ctx).QueryRowContext(ctx, query, id))
}

func (s *Postgres) Update(ctx context.Context, c *models.Condition) error {
	query := `
		UPDATE conditions
		SET name = $2, description = $3, type = $4, validity_days = $5,
		    is_active = $6, updated_at = $7
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		c.ID, c.Name, c.Description, string(c.Type), c.ValidityDays,
		c.IsActive, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update condition: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update condition rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) List(ctx context.Context) ([]*models.Condition, error) {
	query := `SELECT ` + conditionColumns + ` FROM conditions ORDER BY name, id`
	return s.queryConditions(ctx, query)
}

func (s *Postgres) ListActive(ctx context.Context) ([]*models.Condition, error) {
	query := `SELECT ` + conditionColumns + ` FROM conditions WHERE is_active ORDER BY name, id`
	return s.queryConditions(ctx, query)
}

func (s *Postgres) queryConditions(ctx context.Context, query string, args ...any) ([]*models.Condition, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conditions: %w", err)
	}
	defer rows.Close()

	var out []*models.Condition
	for rows.Next() {
		c, err := scanCondition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCondition(row rowScanner) (*models.Condition, error) {
	var (
		c            models.Condition
		condType     string
		validityDays sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.Name, &c.Description, &condType, &validityDays,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan condition: %w", err)
	}
	c.Type = models.Type(condType)
	if validityDays.Valid {
		days := int(validityDays.Int64)
		c.ValidityDays = &days
	}
	return &c, nil
}
