package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "amicale/pkg/domain-errors"
)

// Type classifies how a condition is evidenced.
type Type string

const (
	TypeCheckbox Type = "checkbox"
	TypeDate     Type = "date"
	TypeAmount   Type = "amount"
	TypeFile     Type = "file"
	TypeText     Type = "text"
)

func ValidType(t Type) bool {
	switch t {
	case TypeCheckbox, TypeDate, TypeAmount, TypeFile, TypeText:
		return true
	}
	return false
}

// Condition is a reusable eligibility prerequisite defined by a superadmin.
// A nil ValidityDays means a validation never expires.
type Condition struct {
	ID           uuid.UUID
	Name         string
	Description  string
	Type         Type
	ValidityDays *int
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateConditionParams is the payload for defining a new condition.
type CreateConditionParams struct {
	Name         string
	Description  string
	Type         Type
	ValidityDays *int
}

func (p *CreateConditionParams) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
}

func (p *CreateConditionParams) Validate() error {
	if p.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if !ValidType(p.Type) {
		return dErrors.New(dErrors.CodeValidation, "type must be checkbox, date, amount, file or text")
	}
	if p.ValidityDays != nil && *p.ValidityDays <= 0 {
		return dErrors.New(dErrors.CodeValidation, "validityDuration must be a positive number of days")
	}
	return nil
}

// UpdateConditionParams carries the condition fields a superadmin may change.
// ClearValidity removes the expiry entirely; it wins over ValidityDays.
type UpdateConditionParams struct {
	Name          *string
	Description   *string
	ValidityDays  *int
	ClearValidity bool
	IsActive      *bool
}

func (p *UpdateConditionParams) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "name cannot be empty")
	}
	if p.ValidityDays != nil && *p.ValidityDays <= 0 {
		return dErrors.New(dErrors.CodeValidation, "validityDuration must be a positive number of days")
	}
	return nil
}

func (p *UpdateConditionParams) Apply(c *Condition) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		c.Description = strings.TrimSpace(*p.Description)
	}
	if p.ClearValidity {
		c.ValidityDays = nil
	} else if p.ValidityDays != nil {
		days := *p.ValidityDays
		c.ValidityDays = &days
	}
	if p.IsActive != nil {
		c.IsActive = *p.IsActive
	}
}
