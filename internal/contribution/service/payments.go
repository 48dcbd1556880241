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

// RecordPayment appends a payment to the ledger; admin+. The target member
// and an active policy must both exist. After the ledger write commits, the
// member's cached contribution flag is refreshed as a separate sequential
// write; a failure there is logged and does not undo the payment, since the
// ledger remains the source of truth.
func (s *Service) RecordPayment(ctx context.Context, params models.RecordPaymentParams) (*models.PaymentRecord, error) {
	actor, err := s.resolver.Require(ctx, dirmodels.RoleAdmin, dirmodels.RoleSuperadmin)
	if err != nil {
		return nil, err
	}

	params.Normalize()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	member, err := s.members.FindByUID(ctx, params.MemberUID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "member not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
	}

	active, err := s.policies.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "no active contribution policy")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load active policy")
	}

	now := requestcontext.Now(ctx)
	record := &models.PaymentRecord{
		ID:          uuid.New(),
		MemberUID:   member.UID,
		PolicyID:    active.ID,
		Amount:      params.Amount,
		Currency:    params.Currency,
		PeriodStart: params.PeriodStart,
		PeriodEnd:   params.PeriodEnd,
		Reference:   params.Reference,
		Note:        params.Note,
		RecordedBy:  actor.UID,
		RecordedAt:  now,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.payments.Append(txCtx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append payment")
		}
		return s.appendAudit(txCtx, audit.ActionPaymentRecorded, actor, targetPayment, record.ID.String(), map[string]any{
			"memberId":  record.MemberUID,
			"amount":    record.Amount,
			"currency":  record.Currency,
			"periodEnd": record.PeriodEnd,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.PaymentsRecorded.Inc()
	}
	s.refreshCachedFlag(ctx, member)
	return record, nil
}

// ListPayments returns a member's payment history; the member themselves or
// admin+.
func (s *Service) ListPayments(ctx context.Context, memberUID string) ([]*models.PaymentRecord, error) {
	if _, err := s.resolver.RequireSelfOr(ctx, memberUID, dirmodels.RoleAdmin, dirmodels.RoleSuperadmin); err != nil {
		return nil, err
	}
	records, err := s.payments.ListByMember(ctx, memberUID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list payments")
	}
	return records, nil
}

// UpToDate reports whether the member's latest payment still covers the
// current date under the active policy. The covered window is the payment's
// period end plus the policy's grace period, boundary inclusive. With no
// active policy or no payments the answer is false, never an error state
// that could be mistaken for compliance.
func (s *Service) UpToDate(ctx context.Context, memberUID string) (bool, error) {
	active, err := s.policies.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load active policy")
	}

	latest, err := s.payments.LatestByMember(ctx, memberUID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load latest payment")
	}

	deadline := latest.PeriodEnd.AddDate(0, 0, active.GracePeriodDays)
	now := requestcontext.Now(ctx)
	return !now.After(deadline), nil
}

// refreshCachedFlag recomputes the member's contribution flag and persists
// it. This is a denormalized convenience field; the ledger is authoritative
// and readers that need certainty recompute via UpToDate.
func (s *Service) refreshCachedFlag(ctx context.Context, member *dirmodels.Member) {
	upToDate, err := s.UpToDate(ctx, member.UID)
	if err != nil {
		s.logger.Warn("failed to recompute contribution flag",
			"memberId", member.UID, "error", err)
		return
	}
	if member.ContributionUpToDate == upToDate {
		return
	}
	member.ContributionUpToDate = upToDate
	member.UpdatedAt = requestcontext.Now(ctx)
	if err := s.members.Update(ctx, member); err != nil {
		s.logger.Warn("failed to persist contribution flag",
			"memberId", member.UID, "error", err)
	}
}
