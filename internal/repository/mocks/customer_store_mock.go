package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"

	"pillflow-service/internal/domain/customer"
	xerrors "pillflow-service/internal/pkg/errors"
)

// MockCustomerStore is an in-memory customer store for testing
type MockCustomerStore struct {
	mu        sync.RWMutex
	customers map[string]customer.Customer

	CreateErr error
	StatsErr  error
}

func NewMockCustomerStore() *MockCustomerStore {
	return &MockCustomerStore{customers: make(map[string]customer.Customer)}
}

// Seed adds customers without going through Create
func (m *MockCustomerStore) Seed(customers ...customer.Customer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range customers {
		m.customers[c.ID] = c
	}
}

func (m *MockCustomerStore) Create(ctx context.Context, c *customer.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.customers[c.ID] = *c
	return nil
}

func (m *MockCustomerStore) FindByID(ctx context.Context, id string) (*customer.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.customers[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return &c, nil
}

func (m *MockCustomerStore) Update(ctx context.Context, c *customer.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.customers[c.ID]
	if !ok || existing.AccountID != c.AccountID {
		return xerrors.ErrNotFound
	}
	m.customers[c.ID] = *c
	return nil
}

func (m *MockCustomerStore) UpdateStatus(ctx context.Context, accountID, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.customers[id]
	if !ok || c.AccountID != accountID {
		return xerrors.ErrNotFound
	}
	c.Status = status
	m.customers[id] = c
	return nil
}

func (m *MockCustomerStore) List(ctx context.Context, accountID string, filters *customer.CustomerListFilters) ([]customer.Customer, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []customer.Customer{}
	for _, c := range m.customers {
		if c.AccountID != accountID {
			continue
		}
		if filters.Status != "" && c.Status != filters.Status {
			continue
		}
		if filters.Search != "" && !strings.Contains(strings.ToLower(c.FullName), strings.ToLower(filters.Search)) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, int64(len(out)), nil
}

func (m *MockCustomerStore) GetStats(ctx context.Context, accountID string) (*customer.CustomerStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.StatsErr != nil {
		return nil, m.StatsErr
	}

	stats := &customer.CustomerStats{}
	for _, c := range m.customers {
		if c.AccountID != accountID {
			continue
		}
		stats.TotalCustomers++
		if c.IsActive() {
			stats.ActiveCustomers++
		} else {
			stats.InactiveCustomers++
		}
	}
	return stats, nil
}

func (m *MockCustomerStore) OwnersOf(ctx context.Context, ids []string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	owners := make(map[string]string, len(ids))
	for _, id := range ids {
		if c, ok := m.customers[id]; ok {
			owners[id] = c.AccountID
		}
	}
	return owners, nil
}
