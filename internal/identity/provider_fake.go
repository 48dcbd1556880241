package identity

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"amicale/pkg/platform/sentinel"
	"amicale/pkg/secrets"
)

// FakeProvider is the in-process identity provider used in tests and local
// development. Credentials are bcrypt-hashed like a real provider would.
type FakeProvider struct {
	mu       sync.Mutex
	accounts map[string]fakeAccount // uid -> account
	byEmail  map[string]string      // email -> uid

	// FailCreate and FailDelete force errors to exercise compensation paths.
	FailCreate bool
	FailDelete bool
}

type fakeAccount struct {
	email          string
	credentialHash string
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		accounts: make(map[string]fakeAccount),
		byEmail:  make(map[string]string),
	}
}

func (p *FakeProvider) CreateAccount(_ context.Context, email, tempCredential string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FailCreate {
		return "", sentinel.ErrUnavailable
	}
	if _, taken := p.byEmail[email]; taken {
		return "", sentinel.ErrAlreadyUsed
	}

	hash, err := secrets.Hash(tempCredential)
	if err != nil {
		return "", err
	}

	uid := uuid.NewString()
	p.accounts[uid] = fakeAccount{email: email, credentialHash: hash}
	p.byEmail[email] = uid
	return uid, nil
}

func (p *FakeProvider) DeleteAccount(_ context.Context, uid string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FailDelete {
		return sentinel.ErrUnavailable
	}
	acct, ok := p.accounts[uid]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(p.accounts, uid)
	delete(p.byEmail, acct.email)
	return nil
}

// Has reports whether an account exists. Test helper.
func (p *FakeProvider) Has(uid string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.accounts[uid]
	return ok
}
