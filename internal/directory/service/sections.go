package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"amicale/internal/audit"
	"amicale/internal/directory/models"
	dErrors "amicale/pkg/domain-errors"
	"amicale/pkg/platform/sentinel"
	"amicale/pkg/requestcontext"
)

// CreateSection creates a section; admin+.
func (s *Service) CreateSection(ctx context.Context, params models.CreateSectionParams) (*models.Section, error) {
	actor, err := s.resolver.Require(ctx, models.RoleAdmin, models.RoleSuperadmin)
	if err != nil {
		return nil, err
	}

	params.Normalize()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	section := &models.Section{
		ID:        uuid.New(),
		Name:      params.Name,
		City:      params.City,
		Region:    params.Region,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.sections.Create(txCtx, section); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create section")
		}
		return s.appendAudit(txCtx, audit.ActionSectionCreated, actor, targetSection, section.ID.String(), map[string]any{
			"name": section.Name,
			"city": section.City,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.SectionsCreated.Inc()
	}
	return section, nil
}

// UpdateSection updates the mutable section fields; admin+.
func (s *Service) UpdateSection(ctx context.Context, sectionID uuid.UUID, params models.UpdateSectionParams) (*models.Section, error) {
	actor, err := s.resolver.Require(ctx, models.RoleAdmin, models.RoleSuperadmin)
	if err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	var updated *models.Section
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		section, err := s.sections.FindByID(txCtx, sectionID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "section not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load section")
		}

		params.Apply(section)
		section.UpdatedAt = requestcontext.Now(txCtx)
		if err := s.sections.Update(txCtx, section); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update section")
		}
		updated = section
		return s.appendAudit(txCtx, audit.ActionSectionUpdated, actor, targetSection, sectionID.String(), nil)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteSection removes an empty section; superadmin only. Emptiness is
// checked by a live membership query inside the transaction, never the
// cached counter, so a stale count cannot allow a non-empty delete.
func (s *Service) DeleteSection(ctx context.Context, sectionID uuid.UUID) error {
	actor, err := s.resolver.Require(ctx, models.RoleSuperadmin)
	if err != nil {
		return err
	}

	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.sections.FindByID(txCtx, sectionID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "section not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load section")
		}

		count, err := s.members.CountBySection(txCtx, sectionID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count section members")
		}
		if count > 0 {
			return dErrors.New(dErrors.CodeInvariantViolation, "section still has members")
		}

		if err := s.sections.Delete(txCtx, sectionID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete section")
		}
		return s.appendAudit(txCtx, audit.ActionSectionDeleted, actor, targetSection, sectionID.String(), nil)
	})
}

// GetSection returns one section; any authenticated caller.
func (s *Service) GetSection(ctx context.Context, sectionID uuid.UUID) (*models.Section, error) {
	if _, err := s.resolver.Resolve(ctx); err != nil {
		return nil, err
	}
	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "section not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load section")
	}
	return section, nil
}

// ListSections returns all sections; any authenticated caller.
func (s *Service) ListSections(ctx context.Context) ([]*models.Section, error) {
	if _, err := s.resolver.Resolve(ctx); err != nil {
		return nil, err
	}
	sections, err := s.sections.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sections")
	}
	return sections, nil
}
