package eligibility

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
	condmodels "amicale/internal/condition/models"
	condservice "amicale/internal/condition/service"
	conditionstore "amicale/internal/condition/store/condition"
	"amicale/internal/condition/store/membercondition"
	contribmodels "amicale/internal/contribution/models"
	contribservice "amicale/internal/contribution/service"
	"amicale/internal/contribution/store/payment"
	"amicale/internal/contribution/store/policy"
	dirmodels "amicale/internal/directory/models"
	dirservice "amicale/internal/directory/service"
	"amicale/internal/directory/store/member"
	"amicale/internal/election"
	"amicale/internal/identity"
	dErrors "amicale/pkg/domain-errors"
	"amicale/pkg/requestcontext"
)

// The fixture wires the evaluator against the real in-memory services so the
// composition is exercised end to end, not against stubs.
type fixture struct {
	evaluator  *Evaluator
	members    *member.InMemory
	elections  *election.InMemory
	contrib    *contribservice.Service
	conditions *condservice.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	members := member.NewInMemory()
	elections := election.NewInMemory()
	policies := policy.NewInMemory()
	payments := payment.NewInMemory()
	condStore := conditionstore.NewInMemory()
	states := membercondition.NewInMemory()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := audit.NewRecorder(auditmem.NewStore(), logger)
	resolver := identity.NewResolver(members)
	tx := dirservice.NewInMemoryStoreTx()

	contrib := contribservice.New(policies, payments, members, resolver, recorder, tx,
		contribservice.WithLogger(logger))
	conditions := condservice.New(condStore, states, members, resolver, recorder, tx,
		condservice.WithLogger(logger))

	evaluator := New(members, elections, contrib, conditions, resolver, WithLogger(logger))
	return &fixture{
		evaluator:  evaluator,
		members:    members,
		elections:  elections,
		contrib:    contrib,
		conditions: conditions,
	}
}

func (f *fixture) seedMember(t *testing.T, uid string, role dirmodels.Role, status dirmodels.Status, joinedAt *time.Time, sectionID uuid.UUID) {
	t.Helper()
	now := time.Now()
	err := f.members.Create(context.Background(), &dirmodels.Member{
		UID:       uid,
		Email:     uid + "@example.org",
		Role:      role,
		Status:    status,
		SectionID: sectionID,
		JoinedAt:  joinedAt,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
}

func authedCtx(uid string, now time.Time) context.Context {
	ctx := requestcontext.WithPrincipal(context.Background(), requestcontext.Principal{
		UID:   uid,
		Email: uid + "@example.org",
	})
	return requestcontext.WithTime(ctx, now)
}

func timePtr(t time.Time) *time.Time { return &t }

func reasonNames(reasons []Reason) []string {
	out := make([]string, 0, len(reasons))
	for _, r := range reasons {
		out = append(out, r.Condition)
	}
	return out
}

func findReason(t *testing.T, reasons []Reason, name string) Reason {
	t.Helper()
	for _, r := range reasons {
		if r.Condition == name {
			return r
		}
	}
	t.Fatalf("reason %q not found in %v", name, reasonNames(reasons))
	return Reason{}
}

var evalDay = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func (f *fixture) activatePolicy(t *testing.T, graceDays int) {
	t.Helper()
	f.seedMember(t, "policy-root", dirmodels.RoleSuperadmin, dirmodels.StatusActive, timePtr(evalDay.AddDate(-1, 0, 0)), uuid.Nil)
	_, err := f.contrib.SetActivePolicy(authedCtx("policy-root", evalDay), contribmodels.SetPolicyParams{
		Name:            "Annual",
		Amount:          120,
		Currency:        "EUR",
		Periodicity:     contribmodels.PeriodicityYearly,
		GracePeriodDays: graceDays,
	})
	require.NoError(t, err)
}

func (f *fixture) payUntil(t *testing.T, memberUID string, periodEnd time.Time) {
	t.Helper()
	_, err := f.contrib.RecordPayment(authedCtx("policy-root", evalDay), contribmodels.RecordPaymentParams{
		MemberUID:   memberUID,
		Amount:      120,
		Currency:    "EUR",
		PeriodStart: periodEnd.AddDate(-1, 0, 0),
		PeriodEnd:   periodEnd,
	})
	require.NoError(t, err)
}

func TestComputeAccessControl(t *testing.T) {
	f := newFixture(t)
	joined := evalDay.AddDate(-2, 0, 0)
	f.seedMember(t, "member-1", dirmodels.RoleMember, dirmodels.StatusActive, &joined, uuid.Nil)
	f.seedMember(t, "member-2", dirmodels.RoleMember, dirmodels.StatusActive, &joined, uuid.Nil)
	f.seedMember(t, "admin-1", dirmodels.RoleAdmin, dirmodels.StatusActive, &joined, uuid.Nil)

	t.Run("unauthenticated is rejected", func(t *testing.T) {
		_, err := f.evaluator.Compute(context.Background(), "member-1", nil)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("another member is forbidden", func(t *testing.T) {
		_, err := f.evaluator.Compute(authedCtx("member-2", evalDay), "member-1", nil)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("self and admin pass", func(t *testing.T) {
		_, err := f.evaluator.Compute(authedCtx("member-1", evalDay), "member-1", nil)
		require.NoError(t, err)
		_, err = f.evaluator.Compute(authedCtx("admin-1", evalDay), "member-1", nil)
		require.NoError(t, err)
	})

	t.Run("unknown member is not found", func(t *testing.T) {
		_, err := f.evaluator.Compute(authedCtx("admin-1", evalDay), "ghost", nil)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestComputeWithoutElection(t *testing.T) {
	f := newFixture(t)
	f.activatePolicy(t, 7)
	joined := evalDay.AddDate(-2, 0, 0)
	f.seedMember(t, "member-1", dirmodels.RoleMember, dirmodels.StatusActive, &joined, uuid.Nil)
	f.payUntil(t, "member-1", evalDay.AddDate(0, 0, -5))

	t.Run("evaluates status and contribution only when no conditions exist", func(t *testing.T) {
		verdict, err := f.evaluator.Compute(authedCtx("member-1", evalDay), "member-1", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"member_status", "contribution"}, reasonNames(verdict.Reasons))
		assert.True(t, verdict.Eligible)
	})

	t.Run("active conditions each contribute a reason", func(t *testing.T) {
		cond, err := f.conditions.CreateCondition(authedCtx("policy-root", evalDay), condmodels.CreateConditionParams{
			Name: "Signed charter", Type: condmodels.TypeCheckbox,
		})
		require.NoError(t, err)

		verdict, err := f.evaluator.Compute(authedCtx("member-1", evalDay), "member-1", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"member_status", "contribution", "condition_" + cond.ID.String()},
			reasonNames(verdict.Reasons))
		assert.False(t, verdict.Eligible)

		_, err = f.conditions.ValidateCondition(authedCtx("policy-root", evalDay), condmodels.ValidateConditionParams{
			MemberUID: "member-1", ConditionID: cond.ID, Validated: true,
		})
		require.NoError(t, err)

		verdict, err = f.evaluator.Compute(authedCtx("member-1", evalDay), "member-1", nil)
		require.NoError(t, err)
		assert.True(t, verdict.Eligible)
	})

	t.Run("inactive status fails the status reason", func(t *testing.T) {
		f := newFixture(t)
		f.activatePolicy(t, 7)
		f.seedMember(t, "member-s", dirmodels.RoleMember, dirmodels.StatusSuspended, &joined, uuid.Nil)
		f.payUntil(t, "member-s", evalDay.AddDate(0, 0, -5))

		verdict, err := f.evaluator.Compute(authedCtx("member-s", evalDay), "member-s", nil)
		require.NoError(t, err)
		assert.False(t, verdict.Eligible)
		assert.False(t, findReason(t, verdict.Reasons, "member_status").Met)
		assert.True(t, findReason(t, verdict.Reasons, "contribution").Met)
	})
}

func TestComputeContributionGraceWindows(t *testing.T) {
	joined := evalDay.AddDate(-2, 0, 0)
	periodEnd := evalDay.AddDate(0, 0, -5)

	t.Run("grace of seven days covers a five day lapse", func(t *testing.T) {
		f := newFixture(t)
		f.activatePolicy(t, 7)
		f.seedMember(t, "member-1", dirmodels.RoleMember, dirmodels.StatusActive, &joined, uuid.Nil)
		f.payUntil(t, "member-1", periodEnd)

		verdict, err := f.evaluator.Compute(authedCtx("member-1", evalDay), "member-1", nil)
		require.NoError(t, err)
		assert.True(t, findReason(t, verdict.Reasons, "contribution").Met)
	})

	t.Run("grace of three days does not", func(t *testing.T) {
		f := newFixture(t)
		f.activatePolicy(t, 3)
		f.seedMember(t, "member-1", dirmodels.RoleMember, dirmodels.StatusActive, &joined, uuid.Nil)
		f.payUntil(t, "member-1", periodEnd)

		verdict, err := f.evaluator.Compute(authedCtx("member-1", evalDay), "member-1", nil)
		require.NoError(t, err)
		assert.False(t, findReason(t, verdict.Reasons, "contribution").Met)
		assert.False(t, verdict.Eligible)
	})
}

func TestComputeWithElection(t *testing.T) {
	sectionA := uuid.New()
	sectionB := uuid.New()
	joined := evalDay.AddDate(-2, 0, 0)

	seed := func(t *testing.T) (*fixture, *election.Election) {
		t.Helper()
		f := newFixture(t)
		f.activatePolicy(t, 7)
		f.seedMember(t, "member-1", dirmodels.RoleMember, dirmodels.StatusActive, &joined, sectionA)
		f.payUntil(t, "member-1", evalDay.AddDate(0, 1, 0))

		elec := &election.Election{
			ID:               uuid.New(),
			Name:             "Board 2026",
			MinSeniorityDays: 180,
			StartsAt:         evalDay,
			EndsAt:           evalDay.AddDate(0, 0, 7),
		}
		require.NoError(t, f.elections.Put(context.Background(), elec))
		return f, elec
	}

	t.Run("unknown election is not found", func(t *testing.T) {
		f, _ := seed(t)
		ghost := uuid.New()
		_, err := f.evaluator.Compute(authedCtx("member-1", evalDay), "member-1", &ghost)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("adds seniority and section reasons in order", func(t *testing.T) {
		f, elec := seed(t)
		verdict, err := f.evaluator.Compute(authedCtx("member-1", evalDay), "member-1", &elec.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"member_status", "contribution", "seniority", "section"},
			reasonNames(verdict.Reasons))
		assert.True(t, verdict.Eligible)
	})

	t.Run("seniority below the threshold fails", func(t *testing.T) {
		f, elec := seed(t)
		recent := evalDay.AddDate(0, 0, -30)
		f.seedMember(t, "member-new", dirmodels.RoleMember, dirmodels.StatusActive, &recent, sectionA)
		f.payUntil(t, "member-new", evalDay.AddDate(0, 1, 0))

		verdict, err := f.evaluator.Compute(authedCtx("member-new", evalDay), "member-new", &elec.ID)
		require.NoError(t, err)
		assert.False(t, findReason(t, verdict.Reasons, "seniority").Met)
	})

	t.Run("missing join date with a seniority requirement fails", func(t *testing.T) {
		f, elec := seed(t)
		f.seedMember(t, "member-nojoin", dirmodels.RoleMember, dirmodels.StatusActive, nil, sectionA)
		f.payUntil(t, "member-nojoin", evalDay.AddDate(0, 1, 0))

		verdict, err := f.evaluator.Compute(authedCtx("member-nojoin", evalDay), "member-nojoin", &elec.ID)
		require.NoError(t, err)
		assert.False(t, findReason(t, verdict.Reasons, "seniority").Met)
	})

	t.Run("section restriction", func(t *testing.T) {
		f, elec := seed(t)
		elec.AllowedSectionIDs = []uuid.UUID{sectionB}
		require.NoError(t, f.elections.Put(context.Background(), elec))

		verdict, err := f.evaluator.Compute(authedCtx("member-1", evalDay), "member-1", &elec.ID)
		require.NoError(t, err)
		assert.False(t, findReason(t, verdict.Reasons, "section").Met)

		elec.AllowedSectionIDs = []uuid.UUID{sectionA, sectionB}
		require.NoError(t, f.elections.Put(context.Background(), elec))
		verdict, err = f.evaluator.Compute(authedCtx("member-1", evalDay), "member-1", &elec.ID)
		require.NoError(t, err)
		assert.True(t, findReason(t, verdict.Reasons, "section").Met)
	})

	t.Run("voter conditions scope the condition reasons", func(t *testing.T) {
		f, elec := seed(t)
		required, err := f.conditions.CreateCondition(authedCtx("policy-root", evalDay), condmodels.CreateConditionParams{
			Name: "Signed charter", Type: condmodels.TypeCheckbox,
		})
		require.NoError(t, err)
		// Another active condition that the election does not require.
		_, err = f.conditions.CreateCondition(authedCtx("policy-root", evalDay), condmodels.CreateConditionParams{
			Name: "Medical certificate", Type: condmodels.TypeFile,
		})
		require.NoError(t, err)

		elec.VoterConditionIDs = []uuid.UUID{required.ID}
		require.NoError(t, f.elections.Put(context.Background(), elec))

		verdict, err := f.evaluator.Compute(authedCtx("member-1", evalDay), "member-1", &elec.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"member_status", "contribution", "seniority", "section",
			"condition_" + required.ID.String()}, reasonNames(verdict.Reasons))
		assert.False(t, verdict.Eligible)

		_, err = f.conditions.ValidateCondition(authedCtx("policy-root", evalDay), condmodels.ValidateConditionParams{
			MemberUID: "member-1", ConditionID: required.ID, Validated: true,
		})
		require.NoError(t, err)

		verdict, err = f.evaluator.Compute(authedCtx("member-1", evalDay), "member-1", &elec.ID)
		require.NoError(t, err)
		assert.True(t, verdict.Eligible)
	})
}
