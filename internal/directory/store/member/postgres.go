package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"amicale/internal/directory/models"
	"amicale/pkg/platform/sentinel"
	txcontext "amicale/pkg/platform/tx"
)

// Postgres persists members in the members table. Operations join the
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

const memberColumns = `uid, email, first_name, last_name, phone, section_id, role, status, email_verified, contribution_up_to_date, joined_at, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, m *models.Member) error {
	query := `
		INSERT INTO members (` + memberColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		m.UID, models.NormalizeEmail(m.Email), m.FirstName, m.LastName, m.Phone,
		nullableUUID(m.SectionID), string(m.Role), string(m.Status),
		m.EmailVerified, m.ContributionUpToDate, m.JoinedAt, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

func (s *Postgres) FindByUID(ctx context.Context, uid string) (*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE uid = $1`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, uid))
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE email = $1`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, models.NormalizeEmail(email)))
}

func (s *Postgres) Update(ctx context.Context, m *models.Member) error {
	query := `
		UPDATE members
		SET email = $2, first_name = $3, last_name = $4, phone = $5, section_id = $6,
		    role = $7, status = $8, email_verified = $9, contribution_up_to_date = $10,
		    joined_at = $11, updated_at = $12
		WHERE uid = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		m.UID, models.NormalizeEmail(m.Email), m.FirstName, m.LastName, m.Phone,
		nullableUUID(m.SectionID), string(m.Role), string(m.Status),
		m.EmailVerified, m.ContributionUpToDate, m.JoinedAt, m.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update member: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update member rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) List(ctx context.Context) ([]*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members ORDER BY uid`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []*models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Postgres) CountBySection(ctx context.Context, sectionID uuid.UUID) (int, error) {
	var count int
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM members WHERE section_id = $1`, sectionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count members by section: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Postgres) scanOne(row *sql.Row) (*models.Member, error) {
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return m, err
}

func scanMember(row rowScanner) (*models.Member, error) {
	var (
		m         models.Member
		sectionID uuid.NullUUID
		role      string
		status    string
	)
	err := row.Scan(&m.UID, &m.Email, &m.FirstName, &m.LastName, &m.Phone,
		&sectionID, &role, &status, &m.EmailVerified, &m.ContributionUpToDate,
		&m.JoinedAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan member: %w", err)
	}
	if sectionID.Valid {
		m.SectionID = sectionID.UUID
	}
	m.Role = models.Role(role)
	m.Status = models.Status(status)
	return &m, nil
}

func nullableUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}
