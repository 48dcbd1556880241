package models

import (
	"time"

	"github.com/google/uuid"
)

// Section is a local chapter members belong to. MemberCount is a maintained
// counter: it must equal the number of members whose SectionID references the
// section, and is only adjusted inside the same transaction as the member
// write that changes it.
type Section struct {
	ID          uuid.UUID
	Name        string
	City        string
	Region      string
	MemberCount int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
