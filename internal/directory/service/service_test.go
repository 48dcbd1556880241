package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"amicale/internal/audit"
	auditmem "amicale/internal/audit/store/memory"
	"amicale/internal/directory/models"
	"amicale/internal/directory/store/member"
	"amicale/internal/directory/store/section"
	"amicale/internal/identity"
	"amicale/pkg/requestcontext"
)

type fixture struct {
	svc      *Service
	members  *member.InMemory
	sections *section.InMemory
	idp      *identity.FakeProvider
	auditlog *auditmem.Store
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	members := member.NewInMemory()
	sections := section.NewInMemory()
	idp := identity.NewFakeProvider()
	auditStore := auditmem.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := audit.NewRecorder(auditStore, logger)
	resolver := identity.NewResolver(members)

	opts = append([]Option{WithLogger(logger)}, opts...)
	svc := New(members, sections, idp, resolver, recorder, opts...)
	return &fixture{svc: svc, members: members, sections: sections, idp: idp, auditlog: auditStore}
}

func (f *fixture) seedMember(t *testing.T, uid string, role models.Role) *models.Member {
	t.Helper()
	now := time.Now()
	m := &models.Member{
		UID:       uid,
		Email:     uid + "@example.org",
		FirstName: "Test",
		LastName:  "Member",
		Role:      role,
		Status:    models.StatusActive,
		JoinedAt:  &now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.members.Create(context.Background(), m))
	return m
}

func (f *fixture) seedSection(t *testing.T, name string) *models.Section {
	t.Helper()
	now := time.Now()
	s := &models.Section{
		ID:        uuid.New(),
		Name:      name,
		City:      "Lyon",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.sections.Create(context.Background(), s))
	return s
}

func authedCtx(uid string) context.Context {
	return requestcontext.WithPrincipal(context.Background(), requestcontext.Principal{
		UID:           uid,
		Email:         uid + "@example.org",
		EmailVerified: true,
	})
}

func strPtr(s string) *string { return &s }
