package section

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"amicale/internal/directory/models"
	"amicale/pkg/platform/sentinel"
	txcontext "amicale/pkg/platform/tx"
)

// Postgres persists sections in the sections table.
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

const sectionColumns = `id, name, city, region, member_count, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, sec *models.Section) error {
	query := `INSERT INTO sections (` + sectionColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		sec.ID, sec.Name, sec.City, sec.Region, sec.MemberCount, sec.CreatedAt, sec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert section: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (*models.Section, error) {
	query := `SELECT ` + sectionColumns + ` FROM sections WHERE id = $1`
	var sec models.Section
	err := s.execer(ctx).QueryRowContext(ctx, query, id).Scan(
		&sec.ID, &sec.Name, &sec.City, &sec.Region, &sec.MemberCount, &sec.CreatedAt, &sec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find section: %w", err)
	}
	return &sec, nil
}

func (s *Postgres) Update(ctx context.Context, sec *models.Section) error {
	query := `UPDATE sections SET name = $2, city = $3, region = $4, updated_at = $5 WHERE id = $1`
	res, err := s.execer(ctx).ExecContext(ctx, query, sec.ID, sec.Name, sec.City, sec.Region, sec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update section rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM sections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete section rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) List(ctx context.Context) ([]*models.Section, error) {
	query := `SELECT ` + sectionColumns + ` FROM sections ORDER BY name`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	var out []*models.Section
	for rows.Next() {
		var sec models.Section
		if err := rows.Scan(&sec.ID, &sec.Name, &sec.City, &sec.Region,
			&sec.MemberCount, &sec.CreatedAt, &sec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		out = append(out, &sec)
	}
	return out, rows.Err()
}

// AdjustMemberCount applies a relative update so concurrent transactions on
// different members cannot overwrite each other's counter writes.
func (s *Postgres) AdjustMemberCount(ctx context.Context, id uuid.UUID, delta int) error {
	query := `UPDATE sections SET member_count = GREATEST(member_count + $2, 0) WHERE id = $1`
	res, err := s.execer(ctx).ExecContext(ctx, query, id, delta)
	if err != nil {
		return fmt.Errorf("adjust member count: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust member count rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
