package mocks

import (
	"context"
	"strings"
	"sync"

	"pillflow-service/internal/domain/account"
	xerrors "pillflow-service/internal/pkg/errors"
)

// MockAccountStore is an in-memory account store for testing
type MockAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]account.Account
}

func NewMockAccountStore() *MockAccountStore {
	return &MockAccountStore{accounts: make(map[string]account.Account)}
}

func (m *MockAccountStore) Create(ctx context.Context, a *account.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a.Email = strings.ToLower(a.Email)
	for _, existing := range m.accounts {
		if existing.Email == a.Email {
			return xerrors.ErrDuplicateEntry
		}
	}
	m.accounts[a.ID] = *a
	return nil
}

func (m *MockAccountStore) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.accounts {
		if strings.EqualFold(a.Email, email) {
			found := a
			return &found, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (m *MockAccountStore) FindByID(ctx context.Context, id string) (*account.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return &a, nil
}
