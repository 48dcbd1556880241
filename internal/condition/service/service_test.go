package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amicale/internal/audit"
	auditmem "amicale/internal/audit/store/memory"
	"amicale/internal/condition/models"
	conditionstore "amicale/internal/condition/store/condition"
	"amicale/internal/condition/store/membercondition"
	dirmodels "amicale/internal/directory/models"
	dirservice "amicale/internal/directory/service"
	"amicale/internal/directory/store/member"
	"amicale/internal/identity"
	dErrors "amicale/pkg/domain-errors"
	"amicale/pkg/requestcontext"
)

type fixture struct {
	svc        *Service
	members    *member.InMemory
	conditions *conditionstore.InMemory
	states     *membercondition.InMemory
	auditlog   *auditmem.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	members := member.NewInMemory()
	conditions := conditionstore.NewInMemory()
	states := membercondition.NewInMemory()
	auditStore := auditmem.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := audit.NewRecorder(auditStore, logger)
	resolver := identity.NewResolver(members)

	svc := New(conditions, states, members, resolver, recorder, dirservice.NewInMemoryStoreTx(),
		WithLogger(logger))
	return &fixture{svc: svc, members: members, conditions: conditions, states: states, auditlog: auditStore}
}

func (f *fixture) seedMember(t *testing.T, uid string, role dirmodels.Role) {
	t.Helper()
	now := time.Now()
	err := f.members.Create(context.Background(), &dirmodels.Member{
		UID:       uid,
		Email:     uid + "@example.org",
		Role:      role,
		Status:    dirmodels.StatusActive,
		JoinedAt:  &now,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
}

func authedCtx(uid string) context.Context {
	return requestcontext.WithPrincipal(context.Background(), requestcontext.Principal{
		UID:   uid,
		Email: uid + "@example.org",
	})
}

func intPtr(v int) *int { return &v }

func TestCreateCondition(t *testing.T) {
	t.Run("admin is forbidden", func(t *testing.T) {
		f := newFixture(t)
		f.seedMember(t, "admin-1", dirmodels.RoleAdmin)

		_, err := f.svc.CreateCondition(authedCtx("admin-1"), models.CreateConditionParams{
			Name: "Signed charter", Type: models.TypeCheckbox,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("superadmin creates an active condition", func(t *testing.T) {
		f := newFixture(t)
		f.seedMember(t, "root-1", dirmodels.RoleSuperadmin)

		created, err := f.svc.CreateCondition(authedCtx("root-1"), models.CreateConditionParams{
			Name:         "Medical certificate",
			Type:         models.TypeFile,
			ValidityDays: intPtr(365),
		})
		require.NoError(t, err)
		assert.True(t, created.IsActive)
		require.NotNil(t, created.ValidityDays)
		assert.Equal(t, 365, *created.ValidityDays)
	})

	t.Run("rejects non-positive validity", func(t *testing.T) {
		f := newFixture(t)
		f.seedMember(t, "root-1", dirmodels.RoleSuperadmin)

		_, err := f.svc.CreateCondition(authedCtx("root-1"), models.CreateConditionParams{
			Name: "Bad", Type: models.TypeCheckbox, ValidityDays: intPtr(0),
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		f := newFixture(t)
		f.seedMember(t, "root-1", dirmodels.RoleSuperadmin)

		_, err := f.svc.CreateCondition(authedCtx("root-1"), models.CreateConditionParams{
			Name: "Bad", Type: models.Type("signature"),
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestUpdateCondition(t *testing.T) {
	f := newFixture(t)
	f.seedMember(t, "root-1", dirmodels.RoleSuperadmin)

	created, err := f.svc.CreateCondition(authedCtx("root-1"), models.CreateConditionParams{
		Name: "Signed charter", Type: models.TypeCheckbox, ValidityDays: intPtr(30),
	})
	require.NoError(t, err)

	t.Run("unknown condition is not found", func(t *testing.T) {
		_, err := f.svc.UpdateCondition(authedCtx("root-1"), uuid.New(), models.UpdateConditionParams{})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("clears validity", func(t *testing.T) {
		updated, err := f.svc.UpdateCondition(authedCtx("root-1"), created.ID, models.UpdateConditionParams{
			ClearValidity: true,
		})
		require.NoError(t, err)
		assert.Nil(t, updated.ValidityDays)
	})

	t.Run("deactivates", func(t *testing.T) {
		inactive := false
		updated, err := f.svc.UpdateCondition(authedCtx("root-1"), created.ID, models.UpdateConditionParams{
			IsActive: &inactive,
		})
		require.NoError(t, err)
		assert.False(t, updated.IsActive)

		active, err := f.conditions.ListActive(context.Background())
		require.NoError(t, err)
		assert.Empty(t, active)
	})
}

func TestValidateCondition(t *testing.T) {
	setup := func(t *testing.T, validityDays *int) (*fixture, *models.Condition) {
		t.Helper()
		f := newFixture(t)
		f.seedMember(t, "root-1", dirmodels.RoleSuperadmin)
		f.seedMember(t, "admin-1", dirmodels.RoleAdmin)
		f.seedMember(t, "member-1", dirmodels.RoleMember)
		created, err := f.svc.CreateCondition(authedCtx("root-1"), models.CreateConditionParams{
			Name: "Medical certificate", Type: models.TypeFile, ValidityDays: validityDays,
		})
		require.NoError(t, err)
		return f, created
	}

	t.Run("member role is forbidden", func(t *testing.T) {
		f, cond := setup(t, nil)
		_, err := f.svc.ValidateCondition(authedCtx("member-1"), models.ValidateConditionParams{
			MemberUID: "member-1", ConditionID: cond.ID, Validated: true,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("unknown member is not found", func(t *testing.T) {
		f, cond := setup(t, nil)
		_, err := f.svc.ValidateCondition(authedCtx("admin-1"), models.ValidateConditionParams{
			MemberUID: "ghost", ConditionID: cond.ID, Validated: true,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("unknown condition is not found", func(t *testing.T) {
		f, _ := setup(t, nil)
		_, err := f.svc.ValidateCondition(authedCtx("admin-1"), models.ValidateConditionParams{
			MemberUID: "member-1", ConditionID: uuid.New(), Validated: true,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("validation stamps expiry from current validity", func(t *testing.T) {
		f, cond := setup(t, intPtr(30))
		at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		ctx := requestcontext.WithTime(authedCtx("admin-1"), at)

		state, err := f.svc.ValidateCondition(ctx, models.ValidateConditionParams{
			MemberUID: "member-1", ConditionID: cond.ID, Validated: true, Note: "checked",
		})
		require.NoError(t, err)
		assert.True(t, state.Validated)
		assert.Equal(t, "admin-1", state.ValidatedBy)
		require.NotNil(t, state.ExpiresAt)
		assert.Equal(t, at.AddDate(0, 0, 30), *state.ExpiresAt)
	})

	t.Run("indefinite validity leaves expiry nil", func(t *testing.T) {
		f, cond := setup(t, nil)
		state, err := f.svc.ValidateCondition(authedCtx("admin-1"), models.ValidateConditionParams{
			MemberUID: "member-1", ConditionID: cond.ID, Validated: true,
		})
		require.NoError(t, err)
		assert.Nil(t, state.ExpiresAt)
	})

	t.Run("invalidation clears a previous expiry", func(t *testing.T) {
		f, cond := setup(t, intPtr(30))
		ctx := authedCtx("admin-1")

		_, err := f.svc.ValidateCondition(ctx, models.ValidateConditionParams{
			MemberUID: "member-1", ConditionID: cond.ID, Validated: true,
		})
		require.NoError(t, err)

		state, err := f.svc.ValidateCondition(ctx, models.ValidateConditionParams{
			MemberUID: "member-1", ConditionID: cond.ID, Validated: false, Note: "revoked",
		})
		require.NoError(t, err)
		assert.False(t, state.Validated)
		assert.Nil(t, state.ExpiresAt)

		stored, err := f.states.Find(context.Background(), "member-1", cond.ID)
		require.NoError(t, err)
		assert.False(t, stored.Validated)
		assert.Nil(t, stored.ExpiresAt)
	})

	t.Run("re-validation uses the condition's current validity", func(t *testing.T) {
		f, cond := setup(t, intPtr(30))
		f.seedMember(t, "member-2", dirmodels.RoleMember)

		at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		_, err := f.svc.ValidateCondition(requestcontext.WithTime(authedCtx("admin-1"), at),
			models.ValidateConditionParams{MemberUID: "member-2", ConditionID: cond.ID, Validated: true})
		require.NoError(t, err)

		_, err = f.svc.UpdateCondition(authedCtx("root-1"), cond.ID, models.UpdateConditionParams{
			ValidityDays: intPtr(10),
		})
		require.NoError(t, err)

		state, err := f.svc.ValidateCondition(requestcontext.WithTime(authedCtx("admin-1"), at),
			models.ValidateConditionParams{MemberUID: "member-2", ConditionID: cond.ID, Validated: true})
		require.NoError(t, err)
		require.NotNil(t, state.ExpiresAt)
		assert.Equal(t, at.AddDate(0, 0, 10), *state.ExpiresAt)
	})
}

func TestSatisfied(t *testing.T) {
	f := newFixture(t)
	f.seedMember(t, "root-1", dirmodels.RoleSuperadmin)
	f.seedMember(t, "admin-1", dirmodels.RoleAdmin)
	f.seedMember(t, "member-1", dirmodels.RoleMember)

	cond, err := f.svc.CreateCondition(authedCtx("root-1"), models.CreateConditionParams{
		Name: "Medical certificate", Type: models.TypeFile, ValidityDays: intPtr(30),
	})
	require.NoError(t, err)

	t.Run("missing record is unsatisfied", func(t *testing.T) {
		ok, err := f.svc.Satisfied(context.Background(), "member-1", cond.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	validatedAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.svc.ValidateCondition(requestcontext.WithTime(authedCtx("admin-1"), validatedAt),
		models.ValidateConditionParams{MemberUID: "member-1", ConditionID: cond.ID, Validated: true})
	require.NoError(t, err)

	t.Run("satisfied before expiry", func(t *testing.T) {
		now := requestcontext.WithTime(context.Background(), validatedAt.AddDate(0, 0, 10))
		ok, err := f.svc.Satisfied(now, "member-1", cond.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("expiry day itself still satisfies", func(t *testing.T) {
		now := requestcontext.WithTime(context.Background(), validatedAt.AddDate(0, 0, 30))
		ok, err := f.svc.Satisfied(now, "member-1", cond.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("unsatisfied after expiry", func(t *testing.T) {
		now := requestcontext.WithTime(context.Background(), validatedAt.AddDate(0, 0, 31))
		ok, err := f.svc.Satisfied(now, "member-1", cond.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
