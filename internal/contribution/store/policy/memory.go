package policy

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"amicale/internal/contribution/models"
	"amicale/pkg/platform/sentinel"
)

// InMemory is the map-backed policy store used in tests and single-instance
// deployments.
type InMemory struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*models.Policy
}

func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[uuid.UUID]*models.Policy)}
}

func (s *InMemory) Create(_ context.Context, p *models.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[p.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *p
	s.byID[p.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// FindActive returns the single active policy, or sentinel.ErrNotFound when
// no policy has been activated yet.
func (s *InMemory) FindActive(_ context.Context) (*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.byID {
		if p.IsActive {
			cp := *p
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Update(_ context.Context, p *models.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *p
	s.byID[p.ID] = &cp
	return nil
}

func (s *InMemory) List(_ context.Context) ([]*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Policy, 0, len(s.byID))
	for _, p := range s.byID {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
