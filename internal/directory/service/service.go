package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"amicale/internal/audit"
	"amicale/internal/directory/models"
	"amicale/internal/identity"
	"amicale/internal/platform/metrics"
	"amicale/pkg/requestcontext"
)

// MemberStore persists member records.
type MemberStore interface {
	Create(ctx context.Context, m *models.Member) error
	FindByUID(ctx context.Context, uid string) (*models.Member, error)
	FindByEmail(ctx context.Context, email string) (*models.Member, error)
	Update(ctx context.Context, m *models.Member) error
	List(ctx context.Context) ([]*models.Member, error)
	CountBySection(ctx context.Context, sectionID uuid.UUID) (int, error)
}

// SectionStore persists sections and their cached member counter.
type SectionStore interface {
	Create(ctx context.Context, s *models.Section) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Section, error)
	Update(ctx context.Context, s *models.Section) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*models.Section, error)
	AdjustMemberCount(ctx context.Context, id uuid.UUID, delta int) error
}

// BootstrapConfig gates the break-glass superadmin escalation.
type BootstrapConfig struct {
	AllowedEmails []string
	Locked        bool
}

// Service orchestrates member and section lifecycle management. Every
// mutating operation resolves the caller's role first, runs its writes inside
// the store transaction, and appends audit entries in the same transaction.
type Service struct {
	members   MemberStore
	sections  SectionStore
	idp       identity.Provider
	resolver  *identity.Resolver
	recorder  *audit.Recorder
	tx        StoreTx
	bootstrap BootstrapConfig
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithStoreTx(tx StoreTx) Option {
	return func(s *Service) { s.tx = tx }
}

func WithBootstrap(cfg BootstrapConfig) Option {
	return func(s *Service) { s.bootstrap = cfg }
}

func New(members MemberStore, sections SectionStore, idp identity.Provider, resolver *identity.Resolver, recorder *audit.Recorder, opts ...Option) *Service {
	s := &Service{
		members:  members,
		sections: sections,
		idp:      idp,
		resolver: resolver,
		recorder: recorder,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = NewInMemoryStoreTx()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

const (
	targetMember  = "member"
	targetSection = "section"
)

// identityActorFor builds the audit actor for the bootstrap operations,
// where the caller acts on their own record using their stored role.
func identityActorFor(principal requestcontext.Principal, member *models.Member) identity.Actor {
	actor := identity.Actor{UID: principal.UID, Principal: principal}
	if member != nil {
		actor.Member = member
		actor.Role = member.Role
	}
	return actor
}

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
