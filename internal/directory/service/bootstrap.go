package service

import (
	"context"
	"errors"

	"amicale/internal/audit"
	"amicale/internal/directory/models"
	dErrors "amicale/pkg/domain-errors"
	"amicale/pkg/platform/sentinel"
	"amicale/pkg/requestcontext"
)

// EnsureProfile is the idempotent first-login bootstrap. When no member
// record exists for the authenticated principal one is created with
// role=member, status=pending; when one exists, only the identity-provider
// claims (email, emailVerified) are refreshed. An audit entry is written
// only on first creation.
func (s *Service) EnsureProfile(ctx context.Context) (*models.Member, error) {
	principal, ok := requestcontext.PrincipalFrom(ctx)
	if !ok || principal.UID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if principal.Email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "authenticated principal has no email")
	}

	var member *models.Member
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		existing, err := s.members.FindByUID(txCtx, principal.UID)
		if err == nil {
			changed := false
			if existing.Email != models.NormalizeEmail(principal.Email) {
				existing.Email = models.NormalizeEmail(principal.Email)
				changed = true
			}
			if existing.EmailVerified != principal.EmailVerified {
				existing.EmailVerified = principal.EmailVerified
				changed = true
			}
			if changed {
				existing.UpdatedAt = requestcontext.Now(txCtx)
				if err := s.members.Update(txCtx, existing); err != nil {
					return dErrors.Wrap(err, dErrors.CodeInternal, "failed to refresh member profile")
				}
			}
			member = existing
			return nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
		}

		now := requestcontext.Now(txCtx)
		created := &models.Member{
			UID:           principal.UID,
			Email:         models.NormalizeEmail(principal.Email),
			Role:          models.RoleMember,
			Status:        models.StatusPending,
			EmailVerified: principal.EmailVerified,
			JoinedAt:      &now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.members.Create(txCtx, created); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create member profile")
		}
		member = created

		actor := identityActorFor(principal, created)
		return s.appendAudit(txCtx, audit.ActionMemberProfileCreated, actor, targetMember, created.UID, map[string]any{
			"email": created.Email,
		})
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// BootstrapRole is the break-glass escalation to superadmin. It is gated by
// an email allow-list and a lock flag from external configuration; once
// locked it fails unconditionally. Success writes two audit entries: the
// role change and the privileged access.
func (s *Service) BootstrapRole(ctx context.Context) (*models.Member, error) {
	principal, ok := requestcontext.PrincipalFrom(ctx)
	if !ok || principal.UID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	if s.bootstrap.Locked {
		s.countBootstrap("locked")
		return nil, dErrors.New(dErrors.CodeForbidden, "bootstrap escalation is locked")
	}
	if !s.emailAllowed(principal.Email) {
		s.countBootstrap("denied")
		return nil, dErrors.New(dErrors.CodeForbidden, "email not on bootstrap allow-list")
	}

	var member *models.Member
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		existing, err := s.members.FindByUID(txCtx, principal.UID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "member profile not found; call ensureMemberProfile first")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
		}

		oldRole := existing.Role
		existing.Role = models.RoleSuperadmin
		existing.UpdatedAt = requestcontext.Now(txCtx)
		if err := s.members.Update(txCtx, existing); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to escalate role")
		}
		member = existing

		actor := identityActorFor(principal, existing)
		if err := s.appendAudit(txCtx, audit.ActionRoleChanged, actor, targetMember, existing.UID, map[string]any{
			"oldRole": string(oldRole),
			"newRole": string(models.RoleSuperadmin),
			"reason":  "bootstrap",
		}); err != nil {
			return err
		}
		return s.appendAudit(txCtx, audit.ActionPrivilegedAccess, actor, targetMember, existing.UID, map[string]any{
			"mechanism": "bootstrap_allowlist",
		})
	})
	if err != nil {
		return nil, err
	}

	s.countBootstrap("granted")
	return member, nil
}

func (s *Service) emailAllowed(email string) bool {
	normalized := models.NormalizeEmail(email)
	if normalized == "" {
		return false
	}
	for _, allowed := range s.bootstrap.AllowedEmails {
		if models.NormalizeEmail(allowed) == normalized {
			return true
		}
	}
	return false
}

func (s *Service) countBootstrap(outcome string) {
	if s.metrics != nil {
		s.metrics.BootstrapAttempts.WithLabelValues(outcome).Inc()
	}
}
