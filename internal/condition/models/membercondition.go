package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "amicale/pkg/domain-errors"
)

// MemberCondition is the per-member validation state of one condition, keyed
// by the deterministic (member, condition) pair so re-validation is an
// idempotent upsert. A validated=false record is written deliberately: an
// invalidation is explicit state, not a missing row.
type MemberCondition struct {
	MemberUID   string
	ConditionID uuid.UUID
	Validated   bool
	ValidatedBy string
	ValidatedAt time.Time
	ExpiresAt   *time.Time
	Note        string
	Evidence    string
}

// CompositeID is the deterministic key for the (member, condition) pair.
func CompositeID(memberUID string, conditionID uuid.UUID) string {
	return memberUID + ":" + conditionID.String()
}

// SatisfiedAt reports whether this validation currently satisfies the
// condition: validated and either never expiring or not yet expired. The
// boundary is inclusive, an expiry equal to now still satisfies.
func (mc *MemberCondition) SatisfiedAt(now time.Time) bool {
	if mc == nil || !mc.Validated {
		return false
	}
	return mc.ExpiresAt == nil || !mc.ExpiresAt.Before(now)
}

// ValidateConditionParams is the payload for recording a validation decision.
type ValidateConditionParams struct {
	MemberUID   string
	ConditionID uuid.UUID
	Validated   bool
	Note        string
	Evidence    string
}

func (p *ValidateConditionParams) Normalize() {
	p.MemberUID = strings.TrimSpace(p.MemberUID)
	p.Note = strings.TrimSpace(p.Note)
}

func (p *ValidateConditionParams) Validate() error {
	if p.MemberUID == "" {
		return dErrors.New(dErrors.CodeValidation, "memberId is required")
	}
	if p.ConditionID == uuid.Nil {
		return dErrors.New(dErrors.CodeValidation, "conditionId is required")
	}
	return nil
}
