package payment

import (
	"context"
	"sort"
	"sync"

	"amicale/internal/contribution/models"
	"amicale/pkg/platform/sentinel"
)

// InMemory is the slice-backed payment ledger used in tests and
// single-instance deployments. Records are append-only.
type InMemory struct {
	mu      sync.RWMutex
	records []*models.PaymentRecord
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, r *models.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.records = append(s.records, &cp)
	return nil
}

func (s *InMemory) ListByMember(_ context.Context, memberUID string) ([]*models.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.PaymentRecord
	for _, r := range s.records {
		if r.MemberUID == memberUID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

// LatestByMember returns the member's payment with the latest covered period
// end, or sentinel.ErrNotFound when the member has no payments.
func (s *InMemory) LatestByMember(_ context.Context, memberUID string) (*models.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.PaymentRecord
	for _, r := range s.records {
		if r.MemberUID != memberUID {
			continue
		}
		if latest == nil || r.PeriodEnd.After(latest.PeriodEnd) {
			latest = r
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}
