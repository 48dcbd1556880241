package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "amicale/pkg/domain-errors"
)

// Periodicity is the contribution billing cadence.
type Periodicity string

const (
	PeriodicityMonthly   Periodicity = "monthly"
	PeriodicityQuarterly Periodicity = "quarterly"
	PeriodicityYearly    Periodicity = "yearly"
)

func ValidPeriodicity(p Periodicity) bool {
	switch p {
	case PeriodicityMonthly, PeriodicityQuarterly, PeriodicityYearly:
		return true
	}
	return false
}

// Policy is a contribution policy. At most one policy is active at any time;
// activating a new policy deactivates every other in the same transaction.
type Policy struct {
	ID              uuid.UUID
	Name            string
	Amount          float64
	Currency        string
	Periodicity     Periodicity
	GracePeriodDays int
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SetPolicyParams is the payload for activating a new policy.
type SetPolicyParams struct {
	Name            string
	Amount          float64
	Currency        string
	Periodicity     Periodicity
	GracePeriodDays int
}

func (p *SetPolicyParams) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
}

func (p *SetPolicyParams) Validate() error {
	if p.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if p.Amount <= 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	if p.Currency == "" {
		return dErrors.New(dErrors.CodeValidation, "currency is required")
	}
	if !ValidPeriodicity(p.Periodicity) {
		return dErrors.New(dErrors.CodeValidation, "periodicity must be monthly, quarterly or yearly")
	}
	if p.GracePeriodDays < 0 {
		return dErrors.New(dErrors.CodeValidation, "gracePeriodDays cannot be negative")
	}
	return nil
}
