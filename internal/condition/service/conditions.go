package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"amicale/internal/audit"
	"amicale/internal/condition/models"
	dirmodels "amicale/internal/directory/models"
	dErrors "amicale/pkg/domain-errors"
	"amicale/pkg/platform/sentinel"
	"amicale/pkg/requestcontext"
)

// CreateCondition defines a new condition; superadmin only. New conditions
// start active.
func (s *Service) CreateCondition(ctx context.Context, params models.CreateConditionParams) (*models.Condition, error) {
	actor, err := s.resolver.Require(ctx, dirmodels.RoleSuperadmin)
	if err != nil {
		return nil, err
	}

	params.Normalize()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	condition := &models.Condition{
		ID:           uuid.New(),
		Name:         params.Name,
		Description:  params.Description,
		Type:         params.Type,
		ValidityDays: params.ValidityDays,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.conditions.Create(txCtx, condition); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create condition")
		}
		return s.appendAudit(txCtx, audit.ActionConditionCreated, actor, targetCondition, condition.ID.String(), map[string]any{
			"name": condition.Name,
			"type": string(condition.Type),
		})
	})
	if err != nil {
		return nil, err
	}
	return condition, nil
}

// UpdateCondition changes a condition definition; superadmin only. Changing
// the validity duration does not rewrite existing validations, their expiry
// is recomputed on the next validation action.
func (s *Service) UpdateCondition(ctx context.Context, conditionID uuid.UUID, params models.UpdateConditionParams) (*models.Condition, error) {
	actor, err := s.resolver.Require(ctx, dirmodels.RoleSuperadmin)
	if err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	var updated *models.Condition
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		condition, err := s.conditions.FindByID(txCtx, conditionID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "condition not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load condition")
		}

		params.Apply(condition)
		condition.UpdatedAt = requestcontext.Now(txCtx)
		if err := s.conditions.Update(txCtx, condition); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update condition")
		}
		updated = condition
		return s.appendAudit(txCtx, audit.ActionConditionUpdated, actor, targetCondition, conditionID.String(), nil)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListConditions returns every condition; any authenticated caller.
func (s *Service) ListConditions(ctx context.Context) ([]*models.Condition, error) {
	if _, err := s.resolver.Resolve(ctx); err != nil {
		return nil, err
	}
	conditions, err := s.conditions.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list conditions")
	}
	return conditions, nil
}
