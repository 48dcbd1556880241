package member

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"amicale/internal/directory/models"
	"amicale/pkg/platform/sentinel"
)

// InMemory is the map-backed member store used in tests and single-instance
// deployments. Email uniqueness is enforced case-insensitively.
type InMemory struct {
	mu      sync.RWMutex
	byUID   map[string]*models.Member
	byEmail map[string]string // normalized email -> uid
}

func NewInMemory() *InMemory {
	return &InMemory{
		byUID:   make(map[string]*models.Member),
		byEmail: make(map[string]string),
	}
}

func (s *InMemory) Create(_ context.Context, m *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUID[m.UID]; exists {
		return sentinel.ErrConflict
	}
	email := models.NormalizeEmail(m.Email)
	if _, taken := s.byEmail[email]; taken {
		return sentinel.ErrAlreadyUsed
	}

	cp := *m
	s.byUID[m.UID] = &cp
	s.byEmail[email] = m.UID
	return nil
}

func (s *InMemory) FindByUID(_ context.Context, uid string) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byUID[uid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uid, ok := s.byEmail[models.NormalizeEmail(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byUID[uid]
	return &cp, nil
}

func (s *InMemory) Update(_ context.Context, m *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.byUID[m.UID]
	if !ok {
		return sentinel.ErrNotFound
	}

	prevEmail := models.NormalizeEmail(prev.Email)
	newEmail := models.NormalizeEmail(m.Email)
	if prevEmail != newEmail {
		if _, taken := s.byEmail[newEmail]; taken {
			return sentinel.ErrAlreadyUsed
		}
		delete(s.byEmail, prevEmail)
		s.byEmail[newEmail] = m.UID
	}

	cp := *m
	s.byUID[m.UID] = &cp
	return nil
}

func (s *InMemory) List(_ context.Context) ([]*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Member, 0, len(s.byUID))
	for _, m := range s.byUID {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

// CountBySection is the live membership query backing section deletion; it
// never trusts the cached counter.
func (s *InMemory) CountBySection(_ context.Context, sectionID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, m := range s.byUID {
		if m.SectionID == sectionID {
			count++
		}
	}
	return count, nil
}
