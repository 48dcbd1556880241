package models

import (
	"strings"

	"github.com/google/uuid"

	dErrors "amicale/pkg/domain-errors"
)

// Per-operation parameter structs replace dynamic update maps so the compiler
// enforces which fields each caller class may touch.

// CreateMemberParams is the admin-mediated member creation payload.
type CreateMemberParams struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
	SectionID uuid.UUID
	// Status defaults to pending when empty.
	Status Status
}

func (p *CreateMemberParams) Normalize() {
	p.Email = NormalizeEmail(p.Email)
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Phone = strings.TrimSpace(p.Phone)
	if p.Status == "" {
		p.Status = StatusPending
	}
}

func (p *CreateMemberParams) Validate() error {
	if err := ValidateEmail(p.Email); err != nil {
		return err
	}
	if p.FirstName == "" {
		return dErrors.New(dErrors.CodeValidation, "firstName is required")
	}
	if p.LastName == "" {
		return dErrors.New(dErrors.CodeValidation, "lastName is required")
	}
	if p.SectionID == uuid.Nil {
		return dErrors.New(dErrors.CodeValidation, "sectionId is required")
	}
	if !ValidStatus(p.Status) {
		return dErrors.New(dErrors.CodeValidation, "status is not a known status")
	}
	return nil
}

// SelfUpdateParams are the only member fields a caller may change on their
// own record. Nil means "leave unchanged".
type SelfUpdateParams struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

func (p *SelfUpdateParams) Validate() error {
	if p.FirstName != nil && strings.TrimSpace(*p.FirstName) == "" {
		return dErrors.New(dErrors.CodeValidation, "firstName cannot be blank")
	}
	if p.LastName != nil && strings.TrimSpace(*p.LastName) == "" {
		return dErrors.New(dErrors.CodeValidation, "lastName cannot be blank")
	}
	return nil
}

// Apply copies the set fields onto the member.
func (p *SelfUpdateParams) Apply(m *Member) {
	if p.FirstName != nil {
		m.FirstName = strings.TrimSpace(*p.FirstName)
	}
	if p.LastName != nil {
		m.LastName = strings.TrimSpace(*p.LastName)
	}
	if p.Phone != nil {
		m.Phone = strings.TrimSpace(*p.Phone)
	}
}

// AdminUpdateParams extends the self-mutable set with the fields only admins
// may change. Role is deliberately absent: role changes go through the
// dedicated operation.
type AdminUpdateParams struct {
	SelfUpdateParams
	SectionID *uuid.UUID
	Status    *Status
}

func (p *AdminUpdateParams) Validate() error {
	if err := p.SelfUpdateParams.Validate(); err != nil {
		return err
	}
	if p.SectionID != nil && *p.SectionID == uuid.Nil {
		return dErrors.New(dErrors.CodeValidation, "sectionId cannot be empty")
	}
	if p.Status != nil && !ValidStatus(*p.Status) {
		return dErrors.New(dErrors.CodeValidation, "status is not a known status")
	}
	return nil
}

// CreateSectionParams is the section creation payload.
type CreateSectionParams struct {
	Name   string
	City   string
	Region string
}

func (p *CreateSectionParams) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.City = strings.TrimSpace(p.City)
	p.Region = strings.TrimSpace(p.Region)
}

func (p *CreateSectionParams) Validate() error {
	if p.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if p.City == "" {
		return dErrors.New(dErrors.CodeValidation, "city is required")
	}
	return nil
}

// UpdateSectionParams carries the mutable section fields. Nil means "leave
// unchanged"; MemberCount is not settable from outside.
type UpdateSectionParams struct {
	Name   *string
	City   *string
	Region *string
}

func (p *UpdateSectionParams) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "name cannot be blank")
	}
	if p.City != nil && strings.TrimSpace(*p.City) == "" {
		return dErrors.New(dErrors.CodeValidation, "city cannot be blank")
	}
	return nil
}

func (p *UpdateSectionParams) Apply(s *Section) {
	if p.Name != nil {
		s.Name = strings.TrimSpace(*p.Name)
	}
	if p.City != nil {
		s.City = strings.TrimSpace(*p.City)
	}
	if p.Region != nil {
		s.Region = strings.TrimSpace(*p.Region)
	}
}
