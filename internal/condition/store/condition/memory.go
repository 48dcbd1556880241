package condition

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"amicale/internal/condition/models"
	"amicale/pkg/platform/sentinel"
)

// InMemory is the map-backed condition store used in tests and
// single-instance deployments.
type InMemory struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*models.Condition
}

func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[uuid.UUID]*models.Condition)}
}

func (s *InMemory) Create(_ context.Context, c *models.Condition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[c.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := clone(c)
	s.byID[c.ID] = cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.Condition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(c), nil
}

func (s *InMemory) Update(_ context.Context, c *models.Condition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[c.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.byID[c.ID] = clone(c)
	return nil
}

func (s *InMemory) List(_ context.Context) ([]*models.Condition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Condition, 0, len(s.byID))
	for _, c := range s.byID {
		out = append(out, clone(c))
	}
	sortByName(out)
	return out, nil
}

// ListActive returns the active conditions, name sorted so eligibility
// reason ordering is deterministic.
func (s *InMemory) ListActive(_ context.Context) ([]*models.Condition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Condition
	for _, c := range s.byID {
		if c.IsActive {
			out = append(out, clone(c))
		}
	}
	sortByName(out)
	return out, nil
}

func sortByName(conditions []*models.Condition) {
	sort.Slice(conditions, func(i, j int) bool {
		if conditions[i].Name == conditions[j].Name {
			return conditions[i].ID.String() < conditions[j].ID.String()
		}
		return conditions[i].Name < conditions[j].Name
	})
}

func clone(c *models.Condition) *models.Condition {
	cp := *c
	if c.ValidityDays != nil {
		days := *c.ValidityDays
		cp.ValidityDays = &days
	}
	return &cp
}
