package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"amicale/internal/audit"
	"amicale/internal/condition/models"
	dirmodels "amicale/internal/directory/models"
	dErrors "amicale/pkg/domain-errors"
	"amicale/pkg/platform/sentinel"
	"amicale/pkg/requestcontext"
)

// ValidateCondition records a validation decision for a (member, condition)
// pair; admin+. It is an upsert keyed by the deterministic composite id, so
// repeating the action is idempotent. A validated=true call stamps expiresAt
// from the condition's current validity duration; a validated=false call
// writes an explicit invalidation record with no expiry, even if a previous
// validation had set one.
func (s *Service) ValidateCondition(ctx context.Context, params models.ValidateConditionParams) (*models.MemberCondition, error) {
	actor, err := s.resolver.Require(ctx, dirmodels.RoleAdmin, dirmodels.RoleSuperadmin)
	if err != nil {
		return nil, err
	}

	params.Normalize()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.members.FindByUID(ctx, params.MemberUID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "member not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
	}
	condition, err := s.conditions.FindByID(ctx, params.ConditionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "condition not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load condition")
	}

	now := requestcontext.Now(ctx)
	state := &models.MemberCondition{
		MemberUID:   params.MemberUID,
		ConditionID: params.ConditionID,
		Validated:   params.Validated,
		ValidatedBy: actor.UID,
		ValidatedAt: now,
		ExpiresAt:   expiryFor(params.Validated, condition, now),
		Note:        params.Note,
		Evidence:    params.Evidence,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.states.Upsert(txCtx, state); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record validation")
		}
		return s.appendAudit(txCtx, audit.ActionConditionValidated, actor, targetMemberCondition,
			models.CompositeID(state.MemberUID, state.ConditionID), map[string]any{
				"memberId":    state.MemberUID,
				"conditionId": state.ConditionID.String(),
				"validated":   state.Validated,
			})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ConditionsChecked.Inc()
	}
	return state, nil
}

// ListMemberConditions returns a member's validation records; the member
// themselves or admin+.
func (s *Service) ListMemberConditions(ctx context.Context, memberUID string) ([]*models.MemberCondition, error) {
	if _, err := s.resolver.RequireSelfOr(ctx, memberUID, dirmodels.RoleAdmin, dirmodels.RoleSuperadmin); err != nil {
		return nil, err
	}
	states, err := s.states.ListByMember(ctx, memberUID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list member conditions")
	}
	return states, nil
}

// Satisfied reports whether the member currently satisfies the condition.
// A missing record means unsatisfied. Used by the eligibility evaluator.
func (s *Service) Satisfied(ctx context.Context, memberUID string, conditionID uuid.UUID) (bool, error) {
	state, err := s.states.Find(ctx, memberUID, conditionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member condition")
	}
	return state.SatisfiedAt(requestcontext.Now(ctx)), nil
}

// ActiveConditions returns the active condition definitions in deterministic
// order. Used by the eligibility evaluator when no election scopes the check.
func (s *Service) ActiveConditions(ctx context.Context) ([]*models.Condition, error) {
	conditions, err := s.conditions.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active conditions")
	}
	return conditions, nil
}

// ConditionByID loads one condition definition without a role gate. Used by
// the eligibility evaluator to label election-scoped condition reasons.
func (s *Service) ConditionByID(ctx context.Context, conditionID uuid.UUID) (*models.Condition, error) {
	condition, err := s.conditions.FindByID(ctx, conditionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "condition not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load condition")
	}
	return condition, nil
}

func expiryFor(validated bool, condition *models.Condition, now time.Time) *time.Time {
	if !validated || condition.ValidityDays == nil {
		return nil
	}
	expires := now.AddDate(0, 0, *condition.ValidityDays)
	return &expires
}
