//go:build integration

package member_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"amicale/internal/directory/models"
	"amicale/internal/directory/store/member"
	"amicale/internal/directory/store/section"
	"amicale/pkg/platform/sentinel"
	"amicale/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *member.Postgres
	sections *section.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = member.NewPostgres(s.postgres.DB)
	s.sections = section.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "member_conditions", "payment_records", "members", "sections")
	s.Require().NoError(err)
}

func newTestMember(email string) *models.Member {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Member{
		UID:       uuid.NewString(),
		Email:     email,
		FirstName: "Ada",
		LastName:  "Martin",
		Role:      models.RoleMember,
		Status:    models.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TestConcurrentUniqueEmailViolation verifies that concurrent creates with the
// same email yield exactly one row.
func (s *PostgresStoreSuite) TestConcurrentUniqueEmailViolation() {
	ctx := context.Background()
	email := uuid.NewString() + "@example.org"
	const goroutines = 50

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := s.store.Create(ctx, newTestMember(email))
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrAlreadyUsed) {
				conflictCount.Add(1)
			}
		}()
	}

	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one create should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "all others should get conflict error")

	found, err := s.store.FindByEmail(ctx, email)
	s.Require().NoError(err)
	s.Equal(email, found.Email)
}

// TestEmailNormalization verifies lookups succeed regardless of case.
func (s *PostgresStoreSuite) TestEmailNormalization() {
	ctx := context.Background()
	base := uuid.NewString() + "@Example.ORG"

	m := newTestMember(base)
	s.Require().NoError(s.store.Create(ctx, m))

	for _, email := range []string{strings.ToUpper(base), strings.ToLower(base), "  " + base + "  "} {
		found, err := s.store.FindByEmail(ctx, email)
		s.Require().NoError(err, "FindByEmail(%q)", email)
		s.Equal(m.UID, found.UID)
	}

	dup := newTestMember(strings.ToUpper(base))
	s.ErrorIs(s.store.Create(ctx, dup), sentinel.ErrAlreadyUsed)
}

// TestUpdateRoundTrip verifies every column survives an update.
func (s *PostgresStoreSuite) TestUpdateRoundTrip() {
	ctx := context.Background()

	sec := &models.Section{
		ID:        uuid.New(),
		Name:      "Lyon",
		City:      "Lyon",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.sections.Create(ctx, sec))

	m := newTestMember(uuid.NewString() + "@example.org")
	s.Require().NoError(s.store.Create(ctx, m))

	joined := time.Now().UTC().Truncate(time.Microsecond).AddDate(-1, 0, 0)
	m.Phone = "+33600000000"
	m.SectionID = sec.ID
	m.Role = models.RoleAdmin
	m.Status = models.StatusSuspended
	m.EmailVerified = true
	m.ContributionUpToDate = true
	m.JoinedAt = &joined
	s.Require().NoError(s.store.Update(ctx, m))

	found, err := s.store.FindByUID(ctx, m.UID)
	s.Require().NoError(err)
	s.Equal(m.Phone, found.Phone)
	s.Equal(sec.ID, found.SectionID)
	s.Equal(models.RoleAdmin, found.Role)
	s.Equal(models.StatusSuspended, found.Status)
	s.True(found.EmailVerified)
	s.True(found.ContributionUpToDate)
	s.Require().NotNil(found.JoinedAt)
	s.WithinDuration(joined, *found.JoinedAt, time.Millisecond)
}

// TestCountBySection verifies the live count used to guard section deletes.
func (s *PostgresStoreSuite) TestCountBySection() {
	ctx := context.Background()

	sec := &models.Section{ID: uuid.New(), Name: "Nantes", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	other := &models.Section{ID: uuid.New(), Name: "Brest", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	s.Require().NoError(s.sections.Create(ctx, sec))
	s.Require().NoError(s.sections.Create(ctx, other))

	for i := 0; i < 3; i++ {
		m := newTestMember(uuid.NewString() + "@example.org")
		m.SectionID = sec.ID
		s.Require().NoError(s.store.Create(ctx, m))
	}
	unassigned := newTestMember(uuid.NewString() + "@example.org")
	s.Require().NoError(s.store.Create(ctx, unassigned))

	count, err := s.store.CountBySection(ctx, sec.ID)
	s.Require().NoError(err)
	s.Equal(3, count)

	count, err = s.store.CountBySection(ctx, other.ID)
	s.Require().NoError(err)
	s.Equal(0, count)
}

// TestConcurrentCounterAdjust verifies relative counter updates never lose
// writes under contention.
func (s *PostgresStoreSuite) TestConcurrentCounterAdjust() {
	ctx := context.Background()

	sec := &models.Section{ID: uuid.New(), Name: "Lille", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	s.Require().NoError(s.sections.Create(ctx, sec))

	const goroutines = 50
	var wg sync.WaitGroup
	var failures atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.sections.AdjustMemberCount(ctx, sec.ID, 1); err != nil {
				failures.Add(1)
			}
		}()
	}

	wg.Wait()

	s.Equal(int32(0), failures.Load())
	found, err := s.sections.FindByID(ctx, sec.ID)
	s.Require().NoError(err)
	s.Equal(goroutines, found.MemberCount)
}

// TestNotFoundError verifies sentinel translation for missing rows.
func (s *PostgresStoreSuite) TestNotFoundError() {
	ctx := context.Background()

	_, err := s.store.FindByUID(ctx, uuid.NewString())
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByEmail(ctx, uuid.NewString()+"@example.org")
	s.ErrorIs(err, sentinel.ErrNotFound)

	err = s.store.Update(ctx, newTestMember(uuid.NewString()+"@example.org"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}
