package election

import (
	"time"

	"github.com/google/uuid"
)

// Election is the slice of an election this core consumes for eligibility
// checks. Elections are owned and mutated elsewhere; this package only reads
// them.
type Election struct {
	ID                uuid.UUID
	Name              string
	MinSeniorityDays  int
	AllowedSectionIDs []uuid.UUID
	VoterConditionIDs []uuid.UUID
	StartsAt          time.Time
	EndsAt            time.Time
}

// AllowsSection reports whether the member's section passes the election's
// section restriction. An empty restriction allows every section, including
// unassigned members.
func (e *Election) AllowsSection(sectionID uuid.UUID) bool {
	if len(e.AllowedSectionIDs) == 0 {
		return true
	}
	for _, allowed := range e.AllowedSectionIDs {
		if allowed == sectionID {
			return true
		}
	}
	return false
}
