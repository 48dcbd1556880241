package identity

import (
	"context"
	"errors"

	"amicale/internal/directory/models"
	dErrors "amicale/pkg/domain-errors"
	"amicale/pkg/platform/sentinel"
	"amicale/pkg/requestcontext"
)

// MemberDirectory is the narrow lookup the resolver needs.
type MemberDirectory interface {
	FindByUID(ctx context.Context, uid string) (*models.Member, error)
}

// Actor is the resolved caller of an operation. Member is nil during the
// bootstrap window, before a member record exists; Role is empty in that
// case and every role check fails closed.
type Actor struct {
	UID       string
	Principal requestcontext.Principal
	Member    *models.Member
	Role      models.Role
}

// IsSelf reports whether the actor is operating on their own record.
func (a Actor) IsSelf(memberUID string) bool {
	return a.UID != "" && a.UID == memberUID
}

// HasRole reports whether the actor's stored role is in the allowed set.
func (a Actor) HasRole(allowed ...models.Role) bool {
	for _, r := range allowed {
		if a.Role == r {
			return true
		}
	}
	return false
}

// Resolver maps an authenticated principal to its stored role. The stored
// member role is the authoritative source; token claims are only carried
// along for the bootstrap operations.
type Resolver struct {
	members MemberDirectory
}

func NewResolver(members MemberDirectory) *Resolver {
	return &Resolver{members: members}
}

// Resolve returns the actor for the current request. Fails with
// CodeUnauthorized when no principal is attached to the context. A principal
// without a member record resolves to an actor with no role.
func (r *Resolver) Resolve(ctx context.Context) (Actor, error) {
	principal, ok := requestcontext.PrincipalFrom(ctx)
	if !ok || principal.UID == "" {
		return Actor{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	actor := Actor{UID: principal.UID, Principal: principal}
	member, err := r.members.FindByUID(ctx, principal.UID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return actor, nil
		}
		return Actor{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve caller")
	}
	actor.Member = member
	actor.Role = member.Role
	return actor, nil
}

// Require resolves the actor and enforces a minimum role set in one step.
// Every privileged operation calls this before any side effect.
func (r *Resolver) Require(ctx context.Context, allowed ...models.Role) (Actor, error) {
	actor, err := r.Resolve(ctx)
	if err != nil {
		return Actor{}, err
	}
	if !actor.HasRole(allowed...) {
		return Actor{}, dErrors.New(dErrors.CodeForbidden, "role insufficient for this operation")
	}
	return actor, nil
}

// RequireSelfOr resolves the actor and allows either the member themselves or
// any of the listed roles. Used by the read and eligibility surfaces.
func (r *Resolver) RequireSelfOr(ctx context.Context, memberUID string, allowed ...models.Role) (Actor, error) {
	actor, err := r.Resolve(ctx)
	if err != nil {
		return Actor{}, err
	}
	if actor.IsSelf(memberUID) || actor.HasRole(allowed...) {
		return actor, nil
	}
	return Actor{}, dErrors.New(dErrors.CodeForbidden, "not allowed to access this member")
}
