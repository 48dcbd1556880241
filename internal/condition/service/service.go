package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"amicale/internal/audit"
	"amicale/internal/condition/models"
	dirmodels "amicale/internal/directory/models"
	"amicale/internal/identity"
	"amicale/internal/platform/metrics"
)

// ConditionStore persists condition definitions.
type ConditionStore interface {
	Create(ctx context.Context, c *models.Condition) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Condition, error)
	Update(ctx context.Context, c *models.Condition) error
	List(ctx context.Context) ([]*models.Condition, error)
	ListActive(ctx context.Context) ([]*models.Condition, error)
}

// MemberConditionStore persists per-member validation state.
type MemberConditionStore interface {
	Upsert(ctx context.Context, mc *models.MemberCondition) error
	Find(ctx context.Context, memberUID string, conditionID uuid.UUID) (*models.MemberCondition, error)
	ListByMember(ctx context.Context, memberUID string) ([]*models.MemberCondition, error)
}

// MemberDirectory is the member lookup needed to verify validation targets.
type MemberDirectory interface {
	FindByUID(ctx context.Context, uid string) (*dirmodels.Member, error)
}

// StoreTx runs a function inside one storage transaction.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// Service manages the condition registry and per-member validations.
type Service struct {
	conditions ConditionStore
	states     MemberConditionStore
	members    MemberDirectory
	resolver   *identity.Resolver
	recorder   *audit.Recorder
	tx         StoreTx
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(conditions ConditionStore, states MemberConditionStore, members MemberDirectory, resolver *identity.Resolver, recorder *audit.Recorder, tx StoreTx, opts ...Option) *Service {
	s := &Service{
		conditions: conditions,
		states:     states,
		members:    members,
		resolver:   resolver,
		recorder:   recorder,
		tx:         tx,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

const (
	targetCondition       = "condition"
	targetMemberCondition = "member_condition"
)

func (s *Service) appendAudit(ctx context.Context, action audit.Action, actor identity.Actor, targetType, targetID string, details map[string]any) error {
	return s.recorder.Append(ctx, audit.Entry{
		Action:     action,
		ActorID:    actor.UID,
		ActorRole:  string(actor.Role),
		TargetType: targetType,
		TargetID:   targetID,
		Details:    details,
	})
}
