package handler

import (
	"time"

	"github.com/google/uuid"

	"amicale/internal/directory/models"
	dErrors "amicale/pkg/domain-errors"
)

type createMemberRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	SectionID string `json:"sectionId"`
	Status    string `json:"status"`
}

func (r createMemberRequest) toParams() (models.CreateMemberParams, error) {
	sectionID, err := uuid.Parse(r.SectionID)
	if err != nil {
		return models.CreateMemberParams{}, dErrors.New(dErrors.CodeValidation, "invalid section id")
	}
	return models.CreateMemberParams{
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
		SectionID: sectionID,
		Status:    models.Status(r.Status),
	}, nil
}

type updateMemberRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Phone     *string `json:"phone"`
	SectionID *string `json:"sectionId"`
	Status    *string `json:"status"`
}

func (r updateMemberRequest) toParams() (models.AdminUpdateParams, error) {
	params := models.AdminUpdateParams{
		SelfUpdateParams: models.SelfUpdateParams{
			FirstName: r.FirstName,
			LastName:  r.LastName,
			Phone:     r.Phone,
		},
	}
	if r.SectionID != nil {
		sectionID, err := uuid.Parse(*r.SectionID)
		if err != nil {
			return models.AdminUpdateParams{}, dErrors.New(dErrors.CodeValidation, "invalid section id")
		}
		params.SectionID = &sectionID
	}
	if r.Status != nil {
		status := models.Status(*r.Status)
		params.Status = &status
	}
	return params, nil
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

type sectionRequest struct {
	Name   string `json:"name"`
	City   string `json:"city"`
	Region string `json:"region"`
}

type updateSectionRequest struct {
	Name   *string `json:"name"`
	City   *string `json:"city"`
	Region *string `json:"region"`
}

type memberDTO struct {
	UID                  string     `json:"uid"`
	Email                string     `json:"email"`
	FirstName            string     `json:"firstName"`
	LastName             string     `json:"lastName"`
	Phone                string     `json:"phone,omitempty"`
	SectionID            string     `json:"sectionId,omitempty"`
	Role                 string     `json:"role"`
	Status               string     `json:"status"`
	EmailVerified        bool       `json:"emailVerified"`
	ContributionUpToDate bool       `json:"contributionUpToDate"`
	JoinedAt             *time.Time `json:"joinedAt,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

func memberResponse(m *models.Member) memberDTO {
	dto := memberDTO{
		UID:                  m.UID,
		Email:                m.Email,
		FirstName:            m.FirstName,
		LastName:             m.LastName,
		Phone:                m.Phone,
		Role:                 string(m.Role),
		Status:               string(m.Status),
		EmailVerified:        m.EmailVerified,
		ContributionUpToDate: m.ContributionUpToDate,
		JoinedAt:             m.JoinedAt,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
	if m.SectionID != uuid.Nil {
		dto.SectionID = m.SectionID.String()
	}
	return dto
}

func membersResponse(members []*models.Member) []memberDTO {
	out := make([]memberDTO, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponse(m))
	}
	return out
}

type sectionDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	City        string    `json:"city"`
	Region      string    `json:"region,omitempty"`
	MemberCount int       `json:"memberCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func sectionResponse(s *models.Section) sectionDTO {
	return sectionDTO{
		ID:          s.ID.String(),
		Name:        s.Name,
		City:        s.City,
		Region:      s.Region,
		MemberCount: s.MemberCount,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func sectionsResponse(sections []*models.Section) []sectionDTO {
	out := make([]sectionDTO, 0, len(sections))
	for _, s := range sections {
		out = append(out, sectionResponse(s))
	}
	return out
}
