package election

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"amicale/pkg/platform/sentinel"
)

// InMemory is the map-backed election store used in tests and
// single-instance deployments. Put exists so tests and external sync jobs
// can seed elections; this core never calls it from request paths.
type InMemory struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*Election
}

func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[uuid.UUID]*Election)}
}

func (s *InMemory) Put(_ context.Context, e *Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := clone(e)
	s.byID[e.ID] = cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(e), nil
}

func clone(e *Election) *Election {
	cp := *e
	cp.AllowedSectionIDs = append([]uuid.UUID(nil), e.AllowedSectionIDs...)
	cp.VoterConditionIDs = append([]uuid.UUID(nil), e.VoterConditionIDs...)
	return &cp
}
