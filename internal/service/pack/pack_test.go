package pack

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"pillflow-service/internal/domain/customer"
	"pillflow-service/internal/domain/event"
	"pillflow-service/internal/domain/pack"
	"pillflow-service/internal/pkg/clock"
	xerrors "pillflow-service/internal/pkg/errors"
	"pillflow-service/internal/repository/mocks"
	"pillflow-service/internal/service/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc       *PackService
	packs     *mocks.MockPackStore
	customers *mocks.MockCustomerStore
	events    *mocks.MockEventStore
	clock     *clock.Fixed
}

func newFixture() *fixture {
	f := &fixture{
		packs:     mocks.NewMockPackStore(),
		customers: mocks.NewMockCustomerStore(),
		events:    mocks.NewMockEventStore(),
		clock:     clock.NewFixed(time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)),
	}
	f.svc = NewPackService(f.packs, f.customers, f.events, schedule.NewProjector(0, 0), f.clock, zap.NewNop())
	f.customers.Seed(
		customer.Customer{ID: "cus-1", AccountID: "acc-1", FullName: "Ann"},
		customer.Customer{ID: "cus-9", AccountID: "acc-2", FullName: "Zed"},
	)
	return f
}

func TestCreatePack(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	p, err := f.svc.CreatePack(ctx, "acc-1", &pack.CreatePackRequest{PackName: " Weekly A ", CustomerID: "cus-1"})
	require.NoError(t, err)
	assert.Equal(t, "Weekly A", p.PackName)
	assert.Equal(t, "cus-1", p.CustomerID.String)
	assert.Equal(t, pack.StatusActive, p.Status)

	_, err = f.svc.CreatePack(ctx, "acc-1", &pack.CreatePackRequest{PackName: "X", CustomerID: "cus-9"})
	assert.ErrorIs(t, err, xerrors.ErrForbidden)

	_, err = f.svc.CreatePack(ctx, "acc-1", &pack.CreatePackRequest{PackName: "X", CustomerID: "nope"})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	_, err = f.svc.CreatePack(ctx, "acc-1", &pack.CreatePackRequest{PackName: ""})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestGetPackOwnership(t *testing.T) {
	f := newFixture()
	f.packs.Seed(pack.Pack{ID: "p1", AccountID: "acc-2", PackName: "theirs", Status: pack.StatusActive})

	_, err := f.svc.GetPack(context.Background(), "acc-1", "p1")
	assert.ErrorIs(t, err, xerrors.ErrForbidden)

	_, err = f.svc.Schedule(context.Background(), "acc-1", "p1")
	assert.ErrorIs(t, err, xerrors.ErrForbidden)
}

func TestUpdatePack(t *testing.T) {
	f := newFixture()
	f.packs.Seed(pack.Pack{ID: "p1", AccountID: "acc-1", PackName: "old", Status: pack.StatusActive})

	name := "new"
	status := pack.StatusInactive
	p, err := f.svc.UpdatePack(context.Background(), "acc-1", "p1", &pack.UpdatePackRequest{PackName: &name, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "new", p.PackName)
	assert.Equal(t, pack.StatusInactive, p.Status)

	bad := "archived"
	_, err = f.svc.UpdatePack(context.Background(), "acc-1", "p1", &pack.UpdatePackRequest{Status: &bad})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestScheduleWithoutHistory(t *testing.T) {
	f := newFixture()
	f.packs.Seed(pack.Pack{ID: "p1", AccountID: "acc-1", PackName: "p", Status: pack.StatusActive})

	s, err := f.svc.Schedule(context.Background(), "acc-1", "p1")
	require.NoError(t, err)
	assert.Nil(t, s.LastCollected)
	assert.Nil(t, s.NextDue)
	assert.Equal(t, "never", s.Status)
}

func TestScheduleFromHistory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.packs.Seed(pack.Pack{ID: "p1", AccountID: "acc-1", PackName: "p", Status: pack.StatusActive})

	collect := func(id string, at time.Time, typ event.PackType, count int) event.Event {
		return event.Event{
			ID:         id,
			Kind:       event.KindCollection,
			AccountID:  "acc-1",
			PackCode:   "p",
			PackID:     sql.NullString{String: "p1", Valid: true},
			OccurredAt: at,
			PackType:   typ,
			PackCount:  count,
			Status:     event.StatusCompleted,
		}
	}
	f.events.Seed(
		collect("a", time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), event.PackTypeBlister, 1),
		collect("b", time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC), event.PackTypeSachet, 2),
	)

	s, err := f.svc.Schedule(ctx, "acc-1", "p1")
	require.NoError(t, err)
	require.NotNil(t, s.NextDue)
	assert.Equal(t, time.Date(2024, time.January, 22, 0, 0, 0, 0, time.UTC), *s.NextDue)
	assert.Equal(t, "upcoming", s.Status)

	stored, err := f.packs.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, stored.NextCollectionDate.Valid)
	assert.Equal(t, *s.NextDue, stored.NextCollectionDate.Time)

	f.clock.Set(time.Date(2024, time.February, 12, 0, 0, 0, 0, time.UTC))
	s, err = f.svc.Schedule(ctx, "acc-1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "overdue", s.Status)
	assert.Equal(t, 3, s.OverdueWeeks)
}

func TestListCustomerPacks(t *testing.T) {
	f := newFixture()
	f.packs.Seed(
		pack.Pack{ID: "p1", AccountID: "acc-1", PackName: "a", CustomerID: sql.NullString{String: "cus-1", Valid: true}, Status: pack.StatusActive},
		pack.Pack{ID: "p2", AccountID: "acc-1", PackName: "b", Status: pack.StatusActive},
	)

	resp, err := f.svc.ListCustomerPacks(context.Background(), "acc-1", "cus-1", &pack.PackListFilters{})
	require.NoError(t, err)
	require.Len(t, resp.Packs, 1)
	assert.Equal(t, "p1", resp.Packs[0].ID)

	_, err = f.svc.ListCustomerPacks(context.Background(), "acc-1", "cus-9", &pack.PackListFilters{})
	assert.ErrorIs(t, err, xerrors.ErrForbidden)
}
