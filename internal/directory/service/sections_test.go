package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amicale/internal/directory/models"
	dErrors "amicale/pkg/domain-errors"
	"amicale/pkg/platform/sentinel"
)

func TestCreateSection(t *testing.T) {
	t.Run("member role is forbidden", func(t *testing.T) {
		f := newFixture(t)
		f.seedMember(t, "member-1", models.RoleMember)
		_, err := f.svc.CreateSection(authedCtx("member-1"), models.CreateSectionParams{
			Name: "Lyon Centre", City: "Lyon",
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("missing city is invalid", func(t *testing.T) {
		f := newFixture(t)
		f.seedMember(t, "admin-1", models.RoleAdmin)
		_, err := f.svc.CreateSection(authedCtx("admin-1"), models.CreateSectionParams{Name: "Lyon Centre"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("admin creates a section", func(t *testing.T) {
		f := newFixture(t)
		f.seedMember(t, "admin-1", models.RoleAdmin)
		created, err := f.svc.CreateSection(authedCtx("admin-1"), models.CreateSectionParams{
			Name: "Lyon Centre", City: "Lyon", Region: "Auvergne-Rhône-Alpes",
		})
		require.NoError(t, err)
		assert.Equal(t, 0, created.MemberCount)

		stored, err := f.sections.FindByID(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Lyon Centre", stored.Name)
	})
}

func TestUpdateSection(t *testing.T) {
	f := newFixture(t)
	f.seedMember(t, "admin-1", models.RoleAdmin)
	sec := f.seedSection(t, "Lyon Centre")

	t.Run("unknown section is not found", func(t *testing.T) {
		_, err := f.svc.UpdateSection(authedCtx("admin-1"), uuid.New(), models.UpdateSectionParams{})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("renames", func(t *testing.T) {
		updated, err := f.svc.UpdateSection(authedCtx("admin-1"), sec.ID, models.UpdateSectionParams{
			Name: strPtr("Lyon Presqu'île"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Lyon Presqu'île", updated.Name)
	})
}

func TestDeleteSection(t *testing.T) {
	t.Run("admin is forbidden", func(t *testing.T) {
		f := newFixture(t)
		f.seedMember(t, "admin-1", models.RoleAdmin)
		sec := f.seedSection(t, "Lyon Centre")
		err := f.svc.DeleteSection(authedCtx("admin-1"), sec.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("refuses while members reference the section", func(t *testing.T) {
		f := newFixture(t)
		f.seedMember(t, "admin-1", models.RoleAdmin)
		f.seedMember(t, "root-1", models.RoleSuperadmin)
		sec := f.seedSection(t, "Lyon Centre")

		_, err := f.svc.CreateMember(authedCtx("admin-1"), validCreateParams(sec.ID))
		require.NoError(t, err)

		err = f.svc.DeleteSection(authedCtx("root-1"), sec.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("stale counter cannot block an empty delete", func(t *testing.T) {
		f := newFixture(t)
		f.seedMember(t, "root-1", models.RoleSuperadmin)
		sec := f.seedSection(t, "Lyon Centre")

		// Poison the cached counter; the live query is what decides.
		require.NoError(t, f.sections.AdjustMemberCount(context.Background(), sec.ID, 5))

		err := f.svc.DeleteSection(authedCtx("root-1"), sec.ID)
		require.NoError(t, err)

		_, err = f.sections.FindByID(context.Background(), sec.ID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("unknown section is not found", func(t *testing.T) {
		f := newFixture(t)
		f.seedMember(t, "root-1", models.RoleSuperadmin)
		err := f.svc.DeleteSection(authedCtx("root-1"), uuid.New())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
