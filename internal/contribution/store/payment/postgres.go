package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"amicale/internal/contribution/models"
	"amicale/pkg/platform/sentinel"
	txcontext "amicale/pkg/platform/tx"
)

// Postgres persists the append-only payment ledger in the payment_records
// table. There is no update or delete path. Operations join the surrounding
// transaction when one is carried in the context.
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

const paymentColumns = `id, member_uid, policy_id, amount, currency, period_start, period_end, reference, note, recorded_by, recorded_at`

func (s *Postgres) Append(ctx context.Context, r *models.PaymentRecord) error {
	query := `
		INSERT INTO payment_records (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		r.ID, r.MemberUID, r.PolicyID, r.Amount, r.Currency,
		r.PeriodStart, r.PeriodEnd, r.Reference, r.Note, r.RecordedBy, r.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment record: %w", err)
	}
	return nil
}

func (s *Postgres) ListByMember(ctx context.Context, memberUID string) ([]*models.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_records WHERE member_uid = $1 ORDER BY recorded_at`
	rows, err := s.execer(ctx).QueryContext(ctx, query, memberUID)
	if err != nil {
		return nil, fmt.Errorf("list payment records: %w", err)
	}
	defer rows.Close()

	var out []*models.PaymentRecord
	for rows.Next() {
		r, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Postgres) LatestByMember(ctx context.Context, memberUID string) (*models.PaymentRecord, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payment_records
		WHERE member_uid = $1
		ORDER BY period_end DESC
		LIMIT 1
	`
	return scanPayment(s.execer(ctx).QueryRowContext(ctx, query, memberUID))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*models.PaymentRecord, error) {
	var r models.PaymentRecord
	err := row.Scan(&r.ID, &r.MemberUID, &r.PolicyID, &r.Amount, &r.Currency,
		&r.PeriodStart, &r.PeriodEnd, &r.Reference, &r.Note, &r.RecordedBy, &r.RecordedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan payment record: %w", err)
	}
	return &r, nil
}
