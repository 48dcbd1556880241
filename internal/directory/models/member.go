package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "amicale/pkg/domain-errors"
)

// Role is the stored authorization level of a member. The stored role is
// authoritative; identity-provider claims matter only before a member record
// exists.
type Role string

const (
	RoleMember     Role = "member"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// ValidRole reports whether r is one of the three known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleMember, RoleAdmin, RoleSuperadmin:
		return true
	}
	return false
}

// AtLeastAdmin reports whether r grants admin-level access.
func (r Role) AtLeastAdmin() bool {
	return r == RoleAdmin || r == RoleSuperadmin
}

// Status is the membership lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// ValidStatus reports whether s is a known status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusActive, StatusSuspended:
		return true
	}
	return false
}

// Member is the primary identity tracked by the directory. UID is the
// identity-provider key; SectionID of uuid.Nil means unassigned.
type Member struct {
	UID                  string
	Email                string
	FirstName            string
	LastName             string
	Phone                string
	SectionID            uuid.UUID
	Role                 Role
	Status               Status
	EmailVerified        bool
	ContributionUpToDate bool
	JoinedAt             *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// SeniorityDays returns the member's seniority in whole days at the given
// instant, or -1 when no join date is recorded.
func (m *Member) SeniorityDays(now time.Time) int {
	if m.JoinedAt == nil {
		return -1
	}
	days := int(now.Sub(*m.JoinedAt).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// NormalizeEmail lower-cases and trims an email for uniqueness comparisons.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail rejects obviously malformed addresses. The identity provider
// performs real deliverability checks; this guards the directory record.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || strings.Contains(email, " ") {
		return dErrors.New(dErrors.CodeValidation, "email is malformed")
	}
	return nil
}
