package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"amicale/internal/audit"
	"amicale/internal/contribution/models"
	dirmodels "amicale/internal/directory/models"
	"amicale/internal/identity"
	"amicale/internal/platform/metrics"
)

// PolicyStore persists contribution policies.
type PolicyStore interface {
	Create(ctx context.Context, p *models.Policy) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Policy, error)
	FindActive(ctx context.Context) (*models.Policy, error)
	Update(ctx context.Context, p *models.Policy) error
	List(ctx context.Context) ([]*models.Policy, error)
}

// PaymentStore persists the append-only payment ledger.
type PaymentStore interface {
	Append(ctx context.Context, r *models.PaymentRecord) error
	ListByMember(ctx context.Context, memberUID string) ([]*models.PaymentRecord, error)
	LatestByMember(ctx context.Context, memberUID string) (*models.PaymentRecord, error)
}

// MemberDirectory is the slice of the member store this service needs to
// verify payment targets and refresh the cached contribution flag.
type MemberDirectory interface {
	FindByUID(ctx context.Context, uid string) (*dirmodels.Member, error)
	Update(ctx context.Context, m *dirmodels.Member) error
}

// StoreTx runs a function inside one storage transaction.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// Service manages contribution policies and the payment ledger.
type Service struct {
	policies PolicyStore
	payments PaymentStore
	members  MemberDirectory
	resolver *identity.Resolver
	recorder *audit.Recorder
	tx       StoreTx
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(policies PolicyStore, payments PaymentStore, members MemberDirectory, resolver *identity.Resolver, recorder *audit.Recorder, tx StoreTx, opts ...Option) *Service {
	s := &Service{
		policies: policies,
		payments: payments,
		members:  members,
		resolver: resolver,
		recorder: recorder,
		tx:       tx,
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
	targetPolicy  = "contribution_policy"
	targetPayment = "payment_record"
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
