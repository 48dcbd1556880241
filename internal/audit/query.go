package audit

import (
	"context"

	dirmodels "amicale/internal/directory/models"
	"amicale/internal/identity"
	dErrors "amicale/pkg/domain-errors"
)

// Query is the role-gated read surface over the audit trail.
type Query struct {
	store    Store
	resolver *identity.Resolver
}

func NewQuery(store Store, resolver *identity.Resolver) *Query {
	return &Query{store: store, resolver: resolver}
}

// ByTarget returns the audit trail for one entity; admin+.
func (q *Query) ByTarget(ctx context.Context, targetType, targetID string) ([]Entry, error) {
	if _, err := q.resolver.Require(ctx, dirmodels.RoleAdmin, dirmodels.RoleSuperadmin); err != nil {
		return nil, err
	}
	entries, err := q.store.ListByTarget(ctx, targetType, targetID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	return entries, nil
}

// ByActor returns the actions performed by one principal; admin+.
func (q *Query) ByActor(ctx context.Context, actorID string) ([]Entry, error) {
	if _, err := q.resolver.Require(ctx, dirmodels.RoleAdmin, dirmodels.RoleSuperadmin); err != nil {
		return nil, err
	}
	entries, err := q.store.ListByActor(ctx, actorID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	return entries, nil
}
