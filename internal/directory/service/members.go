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
	"amicale/pkg/secrets"
)

// CreateMember provisions an identity-provider account with a temporary
// credential, then creates the member record and bumps the section counter
// in one transaction. If the transaction fails after the account was
// created, the orphaned account is deleted best-effort.
func (s *Service) CreateMember(ctx context.Context, params models.CreateMemberParams) (*models.Member, error) {
	actor, err := s.resolver.Require(ctx, models.RoleAdmin, models.RoleSuperadmin)
	if err != nil {
		return nil, err
	}

	params.Normalize()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	// Section existence is checked before touching the identity provider so
	// a bad sectionId can never leave an orphaned account behind.
	if _, err := s.sections.FindByID(ctx, params.SectionID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "section not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load section")
	}
	if _, err := s.members.FindByEmail(ctx, params.Email); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check email")
	}

	tempCredential, err := secrets.Generate()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate credential")
	}
	uid, err := s.idp.CreateAccount(ctx, params.Email, tempCredential)
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "identity provider account creation failed")
	}

	now := requestcontext.Now(ctx)
	member := &models.Member{
		UID:           uid,
		Email:         params.Email,
		FirstName:     params.FirstName,
		LastName:      params.LastName,
		Phone:         params.Phone,
		SectionID:     params.SectionID,
		Role:          models.RoleMember,
		Status:        params.Status,
		EmailVerified: false,
		JoinedAt:      &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.members.Create(txCtx, member); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeConflict, "email already registered")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create member")
		}
		if err := s.sections.AdjustMemberCount(txCtx, params.SectionID, +1); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to adjust section counter")
		}
		return s.appendAudit(txCtx, audit.ActionMemberCreated, actor, targetMember, uid, map[string]any{
			"email":     params.Email,
			"sectionId": params.SectionID.String(),
			"status":    string(params.Status),
		})
	})
	if err != nil {
		// Compensation: the account exists but the directory write failed.
		// Failure to compensate is logged, not escalated; the caller sees
		// the original error.
		if delErr := s.idp.DeleteAccount(ctx, uid); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to delete orphaned identity account",
				"uid", uid, "error", delErr)
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.MembersCreated.Inc()
	}
	return member, nil
}

// UpdateMember applies field updates with the self/admin boundary: a member
// may change only their own name and phone; section and status moves require
// admin. Role is never settable here.
func (s *Service) UpdateMember(ctx context.Context, memberUID string, params models.AdminUpdateParams) (*models.Member, error) {
	actor, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	isAdmin := actor.HasRole(models.RoleAdmin, models.RoleSuperadmin)
	if !isAdmin {
		if !actor.IsSelf(memberUID) {
			return nil, dErrors.New(dErrors.CodeForbidden, "not allowed to update this member")
		}
		// The admin-only fields are rejected even when they match current
		// values; intent matters, not effect.
		if params.SectionID != nil || params.Status != nil {
			return nil, dErrors.New(dErrors.CodeForbidden, "field not self-mutable")
		}
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}

	var updated *models.Member
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		member, err := s.members.FindByUID(txCtx, memberUID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "member not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
		}

		details := map[string]any{}
		params.SelfUpdateParams.Apply(member)

		if params.Status != nil {
			details["status"] = string(*params.Status)
			member.Status = *params.Status
		}

		if params.SectionID != nil && *params.SectionID != member.SectionID {
			newSection := *params.SectionID
			if _, err := s.sections.FindByID(txCtx, newSection); err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return dErrors.New(dErrors.CodeNotFound, "section not found")
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load section")
			}
			if err := s.sections.AdjustMemberCount(txCtx, newSection, +1); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to adjust section counter")
			}
			if member.SectionID != uuid.Nil {
				if err := s.sections.AdjustMemberCount(txCtx, member.SectionID, -1); err != nil {
					return dErrors.Wrap(err, dErrors.CodeInternal, "failed to adjust section counter")
				}
			}
			details["sectionId"] = newSection.String()
			details["previousSectionId"] = member.SectionID.String()
			member.SectionID = newSection
		}

		member.UpdatedAt = requestcontext.Now(txCtx)
		if err := s.members.Update(txCtx, member); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update member")
		}
		updated = member
		return s.appendAudit(txCtx, audit.ActionMemberUpdated, actor, targetMember, memberUID, details)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ChangeRole is the dedicated superadmin-only role mutation. A superadmin
// cannot change their own role.
func (s *Service) ChangeRole(ctx context.Context, memberUID string, newRole models.Role) (*models.Member, error) {
	actor, err := s.resolver.Require(ctx, models.RoleSuperadmin)
	if err != nil {
		return nil, err
	}
	if actor.IsSelf(memberUID) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "cannot change own role")
	}
	if !models.ValidRole(newRole) {
		return nil, dErrors.New(dErrors.CodeValidation, "newRole is not a known role")
	}

	var updated *models.Member
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		member, err := s.members.FindByUID(txCtx, memberUID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "member not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
		}

		oldRole := member.Role
		member.Role = newRole
		member.UpdatedAt = requestcontext.Now(txCtx)
		if err := s.members.Update(txCtx, member); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update member")
		}
		updated = member
		return s.appendAudit(txCtx, audit.ActionRoleChanged, actor, targetMember, memberUID, map[string]any{
			"oldRole": string(oldRole),
			"newRole": string(newRole),
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RoleChanges.Inc()
	}
	return updated, nil
}

// GetMember returns one member record; self or admin+.
func (s *Service) GetMember(ctx context.Context, memberUID string) (*models.Member, error) {
	if _, err := s.resolver.RequireSelfOr(ctx, memberUID, models.RoleAdmin, models.RoleSuperadmin); err != nil {
		return nil, err
	}
	member, err := s.members.FindByUID(ctx, memberUID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "member not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
	}
	return member, nil
}

// ListMembers returns all members; admin+.
func (s *Service) ListMembers(ctx context.Context) ([]*models.Member, error) {
	if _, err := s.resolver.Require(ctx, models.RoleAdmin, models.RoleSuperadmin); err != nil {
		return nil, err
	}
	members, err := s.members.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list members")
	}
	return members, nil
}
