package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"amicale/internal/audit"
	"amicale/internal/contribution/models"
	dirmodels "amicale/internal/directory/models"
	dErrors "amicale/pkg/domain-errors"
	"amicale/pkg/platform/sentinel"
	"amicale/pkg/requestcontext"
)

// SetActivePolicy activates a new contribution policy; superadmin only. Every
// currently active policy is deactivated in the same transaction as the
// creation, so readers never observe zero or two active policies.
func (s *Service) SetActivePolicy(ctx context.Context, params models.SetPolicyParams) (*models.Policy, error) {
	actor, err := s.resolver.Require(ctx, dirmodels.RoleSuperadmin)
	if err != nil {
		return nil, err
	}

	params.Normalize()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	created := &models.Policy{
		ID:              uuid.New(),
		Name:            params.Name,
		Amount:          params.Amount,
		Currency:        params.Currency,
		Periodicity:     params.Periodicity,
		GracePeriodDays: params.GracePeriodDays,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		previous, err := s.policies.FindActive(txCtx)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load active policy")
		}

		if previous != nil {
			previous.IsActive = false
			previous.UpdatedAt = now
			if err := s.policies.Update(txCtx, previous); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate policy")
			}
			if err := s.appendAudit(txCtx, audit.ActionPolicyUpdated, actor, targetPolicy, previous.ID.String(), map[string]any{
				"isActive": false,
			}); err != nil {
				return err
			}
		}

		if err := s.policies.Create(txCtx, created); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create policy")
		}
		return s.appendAudit(txCtx, audit.ActionPolicyCreated, actor, targetPolicy, created.ID.String(), map[string]any{
			"name":        created.Name,
			"amount":      created.Amount,
			"currency":    created.Currency,
			"periodicity": string(created.Periodicity),
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.PoliciesActivated.Inc()
	}
	return created, nil
}

// GetActivePolicy returns the active policy; any authenticated caller.
func (s *Service) GetActivePolicy(ctx context.Context) (*models.Policy, error) {
	if _, err := s.resolver.Resolve(ctx); err != nil {
		return nil, err
	}
	p, err := s.policies.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no active contribution policy")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load active policy")
	}
	return p, nil
}

// ListPolicies returns every policy, active and retired; admin+.
func (s *Service) ListPolicies(ctx context.Context) ([]*models.Policy, error) {
	if _, err := s.resolver.Require(ctx, dirmodels.RoleAdmin, dirmodels.RoleSuperadmin); err != nil {
		return nil, err
	}
	policies, err := s.policies.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list policies")
	}
	return policies, nil
}
