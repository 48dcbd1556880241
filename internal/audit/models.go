package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action is the taxonomy string recorded for each state-changing operation.
type Action string

const (
	// Member lifecycle
	ActionMemberProfileCreated Action = "member.profile_created"
	ActionMemberCreated        Action = "member.create"
	ActionMemberUpdated        Action = "member.update"
	ActionRoleChanged          Action = "member.role_change"

	// Section lifecycle
	ActionSectionCreated Action = "section.create"
	ActionSectionUpdated Action = "section.update"
	ActionSectionDeleted Action = "section.delete"

	// Contribution
	ActionPolicyCreated   Action = "policy.create"
	ActionPolicyUpdated   Action = "policy.update"
	ActionPaymentRecorded Action = "payment.record"

	// Conditions
	ActionConditionCreated   Action = "condition.create"
	ActionConditionUpdated   Action = "condition.update"
	ActionConditionValidated Action = "condition.validate"

	// Privileged access
	ActionPrivilegedAccess Action = "access.privileged"
)

// Entry is an immutable record of a state-changing action. Entries are
// append-only; nothing in this service mutates or deletes them.
type Entry struct {
	ID         uuid.UUID
	Action     Action
	ActorID    string
	ActorRole  string
	TargetType string
	TargetID   string
	Details    map[string]any
	RequestID  string
	ClientIP   string
	UserAgent  string
	Timestamp  time.Time
}
