package membercondition

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"amicale/internal/condition/models"
	"amicale/pkg/platform/sentinel"
)

// InMemory is the map-backed member-condition store used in tests and
// single-instance deployments, keyed by the deterministic composite id.
type InMemory struct {
	mu    sync.RWMutex
	byKey map[string]*models.MemberCondition
}

func NewInMemory() *InMemory {
	return &InMemory{byKey: make(map[string]*models.MemberCondition)}
}

// Upsert writes the validation state for the (member, condition) pair,
// replacing any previous record.
func (s *InMemory) Upsert(_ context.Context, mc *models.MemberCondition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey[models.CompositeID(mc.MemberUID, mc.ConditionID)] = clone(mc)
	return nil
}

func (s *InMemory) Find(_ context.Context, memberUID string, conditionID uuid.UUID) (*models.MemberCondition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mc, ok := s.byKey[models.CompositeID(memberUID, conditionID)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(mc), nil
}

func (s *InMemory) ListByMember(_ context.Context, memberUID string) ([]*models.MemberCondition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.MemberCondition
	for _, mc := range s.byKey {
		if mc.MemberUID == memberUID {
			out = append(out, clone(mc))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ConditionID.String() < out[j].ConditionID.String()
	})
	return out, nil
}

func clone(mc *models.MemberCondition) *models.MemberCondition {
	cp := *mc
	if mc.ExpiresAt != nil {
		t := *mc.ExpiresAt
		cp.ExpiresAt = &t
	}
	return &cp
}
