package section

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"amicale/internal/directory/models"
	"amicale/pkg/platform/sentinel"
)

// InMemory is the map-backed section store.
type InMemory struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*models.Section
}

func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[uuid.UUID]*models.Section)}
}

func (s *InMemory) Create(_ context.Context, sec *models.Section) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[sec.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *sec
	s.byID[sec.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sec, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *sec
	return &cp, nil
}

func (s *InMemory) Update(_ context.Context, sec *models.Section) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[sec.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *sec
	s.byID[sec.ID] = &cp
	return nil
}

func (s *InMemory) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *InMemory) List(_ context.Context) ([]*models.Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Section, 0, len(s.byID))
	for _, sec := range s.byID {
		cp := *sec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// AdjustMemberCount moves the cached counter by delta. Callers must hold the
// directory transaction so the adjustment commits with the member write that
// caused it.
func (s *InMemory) AdjustMemberCount(_ context.Context, id uuid.UUID, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, ok := s.byID[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	sec.MemberCount += delta
	if sec.MemberCount < 0 {
		sec.MemberCount = 0
	}
	return nil
}
