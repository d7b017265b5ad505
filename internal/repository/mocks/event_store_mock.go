package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"pillflow-service/internal/domain/event"
	"pillflow-service/internal/domain/report"
	xerrors "pillflow-service/internal/pkg/errors"
)

// MockEventStore is an in-memory event store for testing
type MockEventStore struct {
	mu     sync.RWMutex
	events []event.Event

	// CustomerNames backs CustomerActivity
	CustomerNames map[string]string

	// Injected failures
	InsertErr error
	ListErr   error

	// For tracking calls in tests
	InsertCalls     []event.Event
	StatusCalls     []StatusCall
	ListByPackCalls []string
	ListRangeCalls  int
}

// StatusCall records parameters passed to UpdateStatus
type StatusCall struct {
	Kind   event.Kind
	ID     string
	Status string
}

func NewMockEventStore() *MockEventStore {
	return &MockEventStore{CustomerNames: map[string]string{}}
}

// Seed adds events without recording calls
func (m *MockEventStore) Seed(events ...event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
}

// All returns a copy of every stored event
func (m *MockEventStore) All() []event.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]event.Event(nil), m.events...)
}

func (m *MockEventStore) Insert(ctx context.Context, e *event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InsertCalls = append(m.InsertCalls, *e)
	if m.InsertErr != nil {
		return xerrors.NewPersistenceError("failed to insert "+string(e.Kind), m.InsertErr)
	}

	e.CreatedAt = e.OccurredAt
	e.UpdatedAt = e.OccurredAt
	m.events = append(m.events, *e)
	return nil
}

func (m *MockEventStore) FindByID(ctx context.Context, kind event.Kind, id string) (*event.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.events {
		if e.Kind == kind && e.ID == id {
			found := e
			return &found, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (m *MockEventStore) UpdateStatus(ctx context.Context, kind event.Kind, accountID, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StatusCalls = append(m.StatusCalls, StatusCall{Kind: kind, ID: id, Status: status})
	for i := range m.events {
		e := &m.events[i]
		if e.Kind == kind && e.ID == id && e.AccountID == accountID {
			e.Status = status
			return nil
		}
	}
	return xerrors.ErrNotFound
}

func (m *MockEventStore) List(ctx context.Context, accountID string, filters *event.EventListFilters) ([]event.Event, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ListErr != nil {
		return nil, 0, m.ListErr
	}

	kind := filters.Kind
	if kind == "" {
		kind = event.KindCollection
	}
	types := map[string]bool{}
	for _, t := range filters.PackTypes {
		types[t] = true
	}

	matched := []event.Event{}
	for _, e := range m.events {
		switch {
		case e.AccountID != accountID, e.Kind != kind:
			continue
		case filters.CustomerID != "" && e.CustomerID.String != filters.CustomerID:
			continue
		case filters.PackCode != "" && e.PackCode != filters.PackCode:
			continue
		case filters.PackID != "" && e.PackID.String != filters.PackID:
			continue
		case len(types) > 0 && !types[string(e.PackType)]:
			continue
		case filters.From != nil && e.OccurredAt.Before(*filters.From):
			continue
		case filters.To != nil && e.OccurredAt.After(*filters.To):
			continue
		}
		matched = append(matched, e)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if filters.SortOrder == "asc" {
			return matched[i].OccurredAt.Before(matched[j].OccurredAt)
		}
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})

	total := int64(len(matched))
	page, size := filters.Page, filters.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 50
	}
	start := (page - 1) * size
	if start > len(matched) {
		start = len(matched)
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}

	return matched[start:end], total, nil
}

func (m *MockEventStore) ListRange(ctx context.Context, accountID string, kind event.Kind, from, to time.Time) ([]event.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ListRangeCalls++

	if m.ListErr != nil {
		return nil, m.ListErr
	}

	out := []event.Event{}
	for _, e := range m.events {
		if e.AccountID != accountID || e.Kind != kind || e.Status == event.StatusVoided {
			continue
		}
		// zero timestamps are returned so callers see bad rows
		if !e.OccurredAt.IsZero() && (e.OccurredAt.Before(from) || e.OccurredAt.After(to)) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *MockEventStore) ListCollectionsByPack(ctx context.Context, accountID, packID string) ([]event.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ListByPackCalls = append(m.ListByPackCalls, packID)
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	out := []event.Event{}
	for _, e := range m.events {
		if e.AccountID == accountID && e.Kind == event.KindCollection &&
			e.PackID.Valid && e.PackID.String == packID && e.Status != event.StatusVoided {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

func (m *MockEventStore) Recent(ctx context.Context, accountID string, limit int) ([]event.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []event.Event{}
	for _, e := range m.events {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockEventStore) CountChecks(ctx context.Context, accountID string, from, to time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, e := range m.events {
		if e.AccountID == accountID && e.Kind == event.KindCheck && e.Status != event.StatusVoided &&
			!e.OccurredAt.Before(from) && e.OccurredAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (m *MockEventStore) CountDistinctCheckedPacks(ctx context.Context, accountID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := map[string]struct{}{}
	for _, e := range m.events {
		if e.AccountID != accountID || e.Kind != event.KindCheck || e.Status == event.StatusVoided {
			continue
		}
		key := e.PackCode
		if e.PackID.Valid {
			key = e.PackID.String
		}
		seen[key] = struct{}{}
	}
	return len(seen), nil
}

func (m *MockEventStore) CustomerActivity(ctx context.Context, accountID string) ([]report.CustomerActivity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byCustomer := map[string]*report.CustomerActivity{}
	for _, e := range m.events {
		if e.AccountID != accountID || e.Kind != event.KindCollection || !e.HasCustomer() || e.Status == event.StatusVoided {
			continue
		}
		a, ok := byCustomer[e.CustomerID.String]
		if !ok {
			a = &report.CustomerActivity{
				CustomerID: e.CustomerID.String,
				FullName:   m.CustomerNames[e.CustomerID.String],
			}
			byCustomer[e.CustomerID.String] = a
		}
		a.Collections++
		if e.OccurredAt.After(a.LastCollectionAt) {
			a.LastCollectionAt = e.OccurredAt
		}
	}

	out := make([]report.CustomerActivity, 0, len(byCustomer))
	for _, a := range byCustomer {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out, nil
}
