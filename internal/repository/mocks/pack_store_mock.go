package mocks

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"pillflow-service/internal/domain/pack"
	xerrors "pillflow-service/internal/pkg/errors"
)

// MockPackStore is an in-memory pack store for testing
type MockPackStore struct {
	mu    sync.RWMutex
	packs map[string]pack.Pack

	UpdateScheduleErr error

	ScheduleCalls []ScheduleCall
}

// ScheduleCall records parameters passed to UpdateSchedule
type ScheduleCall struct {
	PackID string
	Last   *time.Time
	Next   *time.Time
}

func NewMockPackStore() *MockPackStore {
	return &MockPackStore{packs: make(map[string]pack.Pack)}
}

func (m *MockPackStore) Seed(packs ...pack.Pack) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range packs {
		m.packs[p.ID] = p
	}
}

func (m *MockPackStore) Create(ctx context.Context, p *pack.Pack) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packs[p.ID] = *p
	return nil
}

func (m *MockPackStore) FindByID(ctx context.Context, id string) (*pack.Pack, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.packs[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return &p, nil
}

func (m *MockPackStore) FindByCode(ctx context.Context, accountID, code string) (*pack.Pack, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p, ok := m.packs[code]; ok && p.AccountID == accountID {
		return &p, nil
	}
	for _, p := range m.packs {
		if p.AccountID == accountID && strings.EqualFold(p.PackName, code) {
			found := p
			return &found, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (m *MockPackStore) Update(ctx context.Context, p *pack.Pack) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.packs[p.ID]
	if !ok || existing.AccountID != p.AccountID {
		return xerrors.ErrNotFound
	}
	m.packs[p.ID] = *p
	return nil
}

func (m *MockPackStore) UpdateSchedule(ctx context.Context, accountID, id string, last, next *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ScheduleCalls = append(m.ScheduleCalls, ScheduleCall{PackID: id, Last: last, Next: next})
	if m.UpdateScheduleErr != nil {
		return m.UpdateScheduleErr
	}

	p, ok := m.packs[id]
	if !ok || p.AccountID != accountID {
		return xerrors.ErrNotFound
	}
	p.LastCollectionDate = nullTime(last)
	p.NextCollectionDate = nullTime(next)
	m.packs[id] = p
	return nil
}

func (m *MockPackStore) List(ctx context.Context, accountID string, filters *pack.PackListFilters) ([]pack.Pack, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []pack.Pack{}
	for _, p := range m.packs {
		if p.AccountID != accountID {
			continue
		}
		if filters.CustomerID != "" && p.CustomerID.String != filters.CustomerID {
			continue
		}
		if filters.Status != "" && p.Status != filters.Status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PackName < out[j].PackName })
	return out, int64(len(out)), nil
}

func (m *MockPackStore) ListDue(ctx context.Context, accountID string, from, to time.Time) ([]pack.DuePack, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []pack.DuePack{}
	for _, p := range m.packs {
		if p.AccountID != accountID || p.Status != pack.StatusActive || !p.NextCollectionDate.Valid {
			continue
		}
		next := p.NextCollectionDate.Time
		if next.Before(from) || next.After(to) {
			continue
		}
		out = append(out, pack.DuePack{Pack: p})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NextCollectionDate.Time.Before(out[j].NextCollectionDate.Time)
	})
	return out, nil
}

func (m *MockPackStore) Count(ctx context.Context, accountID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, p := range m.packs {
		if p.AccountID == accountID && p.Status == pack.StatusActive {
			n++
		}
	}
	return n, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
