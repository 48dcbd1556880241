package eligibility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	condmodels "amicale/internal/condition/models"
	dirmodels "amicale/internal/directory/models"
	"amicale/internal/election"
	"amicale/internal/identity"
	"amicale/internal/platform/metrics"
	dErrors "amicale/pkg/domain-errors"
	"amicale/pkg/platform/sentinel"
	"amicale/pkg/requestcontext"
)

// Reason is one evaluated eligibility factor. Condition is the factor name
// (member_status, contribution, seniority, section, or condition_<id>).
type Reason struct {
	Condition string `json:"condition"`
	Met       bool   `json:"met"`
	Detail    string `json:"detail,omitempty"`
}

// Verdict is the composed eligibility result. Eligible is true only when
// every reason is met.
type Verdict struct {
	MemberUID   string     `json:"memberId"`
	ElectionID  *uuid.UUID `json:"electionId,omitempty"`
	Eligible    bool       `json:"eligible"`
	Reasons     []Reason   `json:"reasons"`
	EvaluatedAt string     `json:"evaluatedAt"`
}

// MemberDirectory is the member lookup the evaluator needs.
type MemberDirectory interface {
	FindByUID(ctx context.Context, uid string) (*dirmodels.Member, error)
}

// ElectionStore reads election requirements.
type ElectionStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*election.Election, error)
}

// ContributionChecker answers the contribution factor.
type ContributionChecker interface {
	UpToDate(ctx context.Context, memberUID string) (bool, error)
}

// ConditionChecker answers the condition factors.
type ConditionChecker interface {
	Satisfied(ctx context.Context, memberUID string, conditionID uuid.UUID) (bool, error)
	ActiveConditions(ctx context.Context) ([]*condmodels.Condition, error)
	ConditionByID(ctx context.Context, conditionID uuid.UUID) (*condmodels.Condition, error)
}

// Evaluator composes status, contribution, seniority, section and condition
// checks into one verdict. It is a pure query: it mutates nothing and writes
// no audit entries.
type Evaluator struct {
	members       MemberDirectory
	elections     ElectionStore
	contributions ContributionChecker
	conditions    ConditionChecker
	resolver      *identity.Resolver
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
}

type Option func(*Evaluator)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) { e.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Evaluator) { e.metrics = m }
}

func New(members MemberDirectory, elections ElectionStore, contributions ContributionChecker, conditions ConditionChecker, resolver *identity.Resolver, opts ...Option) *Evaluator {
	e := &Evaluator{
		members:       members,
		elections:     elections,
		contributions: contributions,
		conditions:    conditions,
		resolver:      resolver,
		tracer:        otel.Tracer("amicale/eligibility"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Compute evaluates a member's eligibility, optionally scoped to one
// election's requirements. Callable by the member themselves or admin+.
//
// The reason list is ordered: member_status, contribution, then (with an
// election) seniority and section, then one condition_<id> reason per
// required condition. With an election the required conditions are its voter
// condition list in list order; without, every active condition in name
// order.
func (e *Evaluator) Compute(ctx context.Context, memberUID string, electionID *uuid.UUID) (*Verdict, error) {
	if _, err := e.resolver.RequireSelfOr(ctx, memberUID, dirmodels.RoleAdmin, dirmodels.RoleSuperadmin); err != nil {
		return nil, err
	}

	ctx, span := e.tracer.Start(ctx, "eligibility.Compute",
		trace.WithAttributes(attribute.String("member.uid", memberUID)))
	defer span.End()

	member, err := e.members.FindByUID(ctx, memberUID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "member not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
	}

	var elec *election.Election
	if electionID != nil {
		span.SetAttributes(attribute.String("election.id", electionID.String()))
		elec, err = e.elections.FindByID(ctx, *electionID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "election not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load election")
		}
	}

	conditionIDs, err := e.requiredConditionIDs(ctx, elec)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	reasons := make([]Reason, 0, 4+len(conditionIDs))
	reasons = append(reasons, statusReason(member))

	// The contribution and per-condition lookups hit independent stores, so
	// they fan out concurrently and are reassembled in reason order.
	var (
		contribution     Reason
		conditionReasons = make([]Reason, len(conditionIDs))
		mu               sync.Mutex
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		upToDate, err := e.contributions.UpToDate(gctx, memberUID)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		contribution = Reason{Condition: "contribution", Met: upToDate, Detail: contributionDetail(upToDate)}
		return nil
	})
	for i, conditionID := range conditionIDs {
		g.Go(func() error {
			r, err := e.conditionReason(gctx, memberUID, conditionID)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			conditionReasons[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to evaluate eligibility factors")
	}

	reasons = append(reasons, contribution)
	if elec != nil {
		reasons = append(reasons, seniorityReason(member, elec, now), sectionReason(member, elec))
	}
	reasons = append(reasons, conditionReasons...)

	verdict := &Verdict{
		MemberUID:   memberUID,
		ElectionID:  electionID,
		Reasons:     reasons,
		EvaluatedAt: now.UTC().Format(time.RFC3339),
		Eligible:    true,
	}
	for _, r := range reasons {
		if !r.Met {
			verdict.Eligible = false
			break
		}
	}

	span.SetAttributes(attribute.Bool("eligibility.eligible", verdict.Eligible))
	if e.metrics != nil {
		e.metrics.EligibilityChecks.Inc()
	}
	return verdict, nil
}

// requiredConditionIDs resolves which condition factors apply: the
// election's voter conditions, or every active condition when no election
// scopes the check.
func (e *Evaluator) requiredConditionIDs(ctx context.Context, elec *election.Election) ([]uuid.UUID, error) {
	if elec != nil {
		return elec.VoterConditionIDs, nil
	}
	active, err := e.conditions.ActiveConditions(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(active))
	for _, c := range active {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (e *Evaluator) conditionReason(ctx context.Context, memberUID string, conditionID uuid.UUID) (Reason, error) {
	satisfied, err := e.conditions.Satisfied(ctx, memberUID, conditionID)
	if err != nil {
		return Reason{}, err
	}
	detail := "condition not satisfied"
	if satisfied {
		detail = "condition satisfied"
	}
	if c, err := e.conditions.ConditionByID(ctx, conditionID); err == nil {
		detail = fmt.Sprintf("%s: %s", c.Name, detail)
	}
	return Reason{
		Condition: "condition_" + conditionID.String(),
		Met:       satisfied,
		Detail:    detail,
	}, nil
}

func statusReason(member *dirmodels.Member) Reason {
	met := member.Status == dirmodels.StatusActive
	return Reason{
		Condition: "member_status",
		Met:       met,
		Detail:    fmt.Sprintf("status is %s", member.Status),
	}
}

func contributionDetail(upToDate bool) string {
	if upToDate {
		return "contribution is up to date"
	}
	return "contribution is not up to date"
}

func seniorityReason(member *dirmodels.Member, elec *election.Election, now time.Time) Reason {
	if elec.MinSeniorityDays <= 0 {
		return Reason{Condition: "seniority", Met: true, Detail: "no seniority requirement"}
	}
	days := member.SeniorityDays(now)
	if days < 0 {
		return Reason{Condition: "seniority", Met: false, Detail: "join date unknown"}
	}
	return Reason{
		Condition: "seniority",
		Met:       days >= elec.MinSeniorityDays,
		Detail:    fmt.Sprintf("%d of %d required days", days, elec.MinSeniorityDays),
	}
}

func sectionReason(member *dirmodels.Member, elec *election.Election) Reason {
	if len(elec.AllowedSectionIDs) == 0 {
		return Reason{Condition: "section", Met: true, Detail: "all sections allowed"}
	}
	if elec.AllowsSection(member.SectionID) {
		return Reason{Condition: "section", Met: true, Detail: "section allowed"}
	}
	return Reason{Condition: "section", Met: false, Detail: "section not allowed for this election"}
}
