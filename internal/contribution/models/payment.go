package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "amicale/pkg/domain-errors"
)

// PaymentRecord is an append-only record of one contribution payment. It is
// tagged with the policy that was active when it was recorded and is never
// mutated or deleted.
type PaymentRecord struct {
	ID          uuid.UUID
	MemberUID   string
	PolicyID    uuid.UUID
	Amount      float64
	Currency    string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Reference   string
	Note        string
	RecordedBy  string
	RecordedAt  time.Time
}

// RecordPaymentParams is the payload for recording a payment.
type RecordPaymentParams struct {
	MemberUID   string
	Amount      float64
	Currency    string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Reference   string
	Note        string
}

func (p *RecordPaymentParams) Normalize() {
	p.MemberUID = strings.TrimSpace(p.MemberUID)
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	p.Reference = strings.TrimSpace(p.Reference)
}

func (p *RecordPaymentParams) Validate() error {
	if p.MemberUID == "" {
		return dErrors.New(dErrors.CodeValidation, "memberId is required")
	}
	if p.Amount <= 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	if p.Currency == "" {
		return dErrors.New(dErrors.CodeValidation, "currency is required")
	}
	if p.PeriodStart.IsZero() || p.PeriodEnd.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "periodStart and periodEnd are required")
	}
	if p.PeriodEnd.Before(p.PeriodStart) {
		return dErrors.New(dErrors.CodeInvariantViolation, "periodEnd must not precede periodStart")
	}
	return nil
}
