package report

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"pillflow-service/internal/domain/event"
	"pillflow-service/internal/domain/report"
	xerrors "pillflow-service/internal/pkg/errors"
	"pillflow-service/internal/pkg/timewindow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const account = "acc-1"

func newCollection(id string, at time.Time, customerID string, packType event.PackType, count int) event.Event {
	e := event.Event{
		ID:         id,
		Kind:       event.KindCollection,
		AccountID:  account,
		PackCode:   "WP-" + id,
		OccurredAt: at,
		Operator:   "tech",
		PackType:   packType,
		PackCount:  count,
		Status:     event.StatusCompleted,
	}
	if customerID != "" {
		e.CustomerID = sql.NullString{String: customerID, Valid: true}
	}
	return e
}

func jan(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeEmpty(t *testing.T) {
	engine := NewEngine(4, nil)
	now := jan(10)

	snap, err := engine.Compute(Input{
		AccountID: account,
		Kind:      event.KindCollection,
		Window:    timewindow.ThisMonth(),
		Now:       now,
	})
	require.NoError(t, err)

	assert.Zero(t, snap.Total)
	assert.Zero(t, snap.DistinctCustomers)
	assert.Zero(t, snap.CompletionRate)
	assert.Equal(t, report.WeekOverWeek{}, snap.WeekOverWeek)
	assert.Equal(t, map[event.PackType]int{"blister": 0, "sachet": 0, "other": 0}, snap.PerType)
	assert.Equal(t, []report.MonthBucket{{Month: "2024-01"}}, snap.Months)
	assert.Len(t, snap.ByWeekday, 7)
	assert.Empty(t, snap.TopCustomers)
	assert.False(t, snap.Incomplete)
}

func TestComputeScenario(t *testing.T) {
	engine := NewEngine(4, nil)
	events := []event.Event{
		newCollection("a", jan(1), "cus-1", event.PackTypeBlister, 1),
		newCollection("b", jan(8), "cus-1", event.PackTypeSachet, 2),
	}

	snap, err := engine.Compute(Input{
		AccountID:      account,
		Kind:           event.KindCollection,
		Window:         timewindow.LastNMonths(1),
		Now:            jan(10),
		Events:         events,
		TotalCustomers: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, snap.Total)
	assert.Equal(t, 1, snap.DistinctCustomers)
	assert.Equal(t, 1, snap.PerType[event.PackTypeBlister])
	assert.Equal(t, 1, snap.PerType[event.PackTypeSachet])
	assert.Equal(t, 2, snap.PackUnitsByType[event.PackTypeSachet])
	assert.Equal(t, 50, snap.CompletionRate)
	assert.Equal(t, 1, snap.WeekOverWeek.ThisWeek)
	assert.Equal(t, 1, snap.WeekOverWeek.LastWeek)
	assert.Equal(t, 0, snap.WeekOverWeek.ChangePercent)
	assert.Equal(t, []report.MonthBucket{{Month: "2024-01", Total: 2, Customers: 1}}, snap.Months)
	assert.Equal(t, []report.CustomerCount{{CustomerID: "cus-1", Total: 2}}, snap.TopCustomers)

	// both dates are Mondays
	assert.Equal(t, report.WeekdayBucket{Day: "Monday", Total: 2}, snap.ByWeekday[0])
}

func TestComputeWeekOverWeek(t *testing.T) {
	engine := NewEngine(4, nil)
	now := time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)

	var events []event.Event
	for i := 0; i < 10; i++ {
		events = append(events, newCollection(fmt.Sprintf("tw-%d", i), now.Add(-time.Duration(i+1)*time.Hour), "", "", 1))
	}
	for i := 0; i < 5; i++ {
		events = append(events, newCollection(fmt.Sprintf("lw-%d", i), now.Add(-8*24*time.Hour-time.Duration(i)*time.Hour), "", "", 1))
	}

	snap, err := engine.Compute(Input{
		AccountID: account,
		Kind:      event.KindCollection,
		Window:    timewindow.ThisWeek(),
		Now:       now,
		Events:    events,
	})
	require.NoError(t, err)

	assert.Equal(t, 10, snap.WeekOverWeek.ThisWeek)
	assert.Equal(t, 5, snap.WeekOverWeek.LastWeek)
	assert.Equal(t, 100, snap.WeekOverWeek.ChangePercent)
	assert.Equal(t, 20, snap.WeekOverWeek.ProjectedNextWeek)
	assert.Equal(t, 10, snap.Total)
}

func TestComputeNoChangeWithoutLastWeek(t *testing.T) {
	engine := NewEngine(4, nil)
	now := jan(10)

	snap, err := engine.Compute(Input{
		AccountID: account,
		Kind:      event.KindCollection,
		Window:    timewindow.ThisWeek(),
		Now:       now,
		Events:    []event.Event{newCollection("a", jan(9), "", "", 1)},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, snap.WeekOverWeek.ThisWeek)
	assert.Equal(t, 0, snap.WeekOverWeek.ChangePercent)
	assert.Equal(t, 1, snap.WeekOverWeek.ProjectedNextWeek)
}

func TestComputeNullCustomerCountsTowardTotalsOnly(t *testing.T) {
	engine := NewEngine(4, nil)

	snap, err := engine.Compute(Input{
		AccountID: account,
		Kind:      event.KindCollection,
		Window:    timewindow.ThisMonth(),
		Now:       jan(20),
		Events: []event.Event{
			newCollection("a", jan(2), "", event.PackTypeOther, 1),
			newCollection("b", jan(3), "cus-2", event.PackTypeOther, 1),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, snap.Total)
	assert.Equal(t, 1, snap.DistinctCustomers)
	assert.Equal(t, 2, snap.PerType[event.PackTypeOther])
	assert.Equal(t, 1, snap.Months[0].Customers)
	assert.Equal(t, []report.CustomerCount{{CustomerID: "cus-2", Total: 1}}, snap.TopCustomers)
}

func TestComputeMissingTypeIsBlister(t *testing.T) {
	engine := NewEngine(4, nil)

	snap, err := engine.Compute(Input{
		AccountID: account,
		Kind:      event.KindCollection,
		Window:    timewindow.ThisMonth(),
		Now:       jan(20),
		Events:    []event.Event{newCollection("a", jan(2), "", "", 3)},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, snap.PerType[event.PackTypeBlister])
	assert.Equal(t, 3, snap.PackUnitsByType[event.PackTypeBlister])
}

func TestComputeRejectsForeignData(t *testing.T) {
	engine := NewEngine(4, nil)
	foreign := newCollection("x", jan(2), "", "", 1)
	foreign.AccountID = "acc-2"

	t.Run("missing account", func(t *testing.T) {
		_, err := engine.Compute(Input{Window: timewindow.ThisMonth(), Now: jan(10)})
		assert.ErrorIs(t, err, xerrors.ErrForbidden)
	})

	t.Run("event of another account", func(t *testing.T) {
		_, err := engine.Compute(Input{
			AccountID: account,
			Window:    timewindow.ThisMonth(),
			Now:       jan(10),
			Events:    []event.Event{newCollection("a", jan(1), "", "", 1), foreign},
		})
		var authErr *xerrors.AuthorizationError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, account, authErr.AccountID)
	})

	t.Run("customer of another account", func(t *testing.T) {
		_, err := engine.Compute(Input{
			AccountID:      account,
			Window:         timewindow.ThisMonth(),
			Now:            jan(10),
			Events:         []event.Event{newCollection("a", jan(1), "cus-9", "", 1)},
			CustomerOwners: map[string]string{"cus-9": "acc-2"},
		})
		assert.ErrorIs(t, err, xerrors.ErrForbidden)
	})
}

func TestComputeSkipsInvalidTimestamps(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	engine := NewEngine(4, zap.New(core))

	snap, err := engine.Compute(Input{
		AccountID: account,
		Kind:      event.KindCollection,
		Window:    timewindow.ThisMonth(),
		Now:       jan(20),
		Events: []event.Event{
			newCollection("a", jan(2), "", "", 1),
			newCollection("broken", time.Time{}, "", "", 1),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, snap.Total)
	assert.Equal(t, 1, snap.SkippedEvents)
	assert.True(t, snap.Incomplete)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "broken", logs.All()[0].ContextMap()["event_id"])
}

func TestComputeIsIdempotentAndOrderIndependent(t *testing.T) {
	engine := NewEngine(4, nil)
	events := []event.Event{
		newCollection("a", jan(2), "cus-1", event.PackTypeBlister, 1),
		newCollection("b", jan(5), "cus-2", event.PackTypeSachet, 2),
		newCollection("c", jan(9), "cus-1", event.PackTypeOther, 1),
	}
	reversed := []event.Event{events[2], events[1], events[0]}
	in := Input{
		AccountID:      account,
		Kind:           event.KindCollection,
		Window:         timewindow.LastNMonths(2),
		Now:            jan(10),
		Events:         events,
		TotalCustomers: 2,
	}

	first, err := engine.Compute(in)
	require.NoError(t, err)
	second, err := engine.Compute(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	in.Events = reversed
	third, err := engine.Compute(in)
	require.NoError(t, err)
	assert.Equal(t, first, third)

	// input slice is not reordered
	assert.Equal(t, "c", reversed[0].ID)
}

func TestComputeCompletionRate(t *testing.T) {
	engine := NewEngine(4, nil)
	var events []event.Event
	for i := 1; i <= 8; i++ {
		events = append(events, newCollection(fmt.Sprintf("e%d", i), jan(i), "cus-1", "", 1))
	}

	snap, err := engine.Compute(Input{
		AccountID:      account,
		Kind:           event.KindCollection,
		Window:         timewindow.ThisMonth(),
		Now:            jan(20),
		Events:         events,
		TotalCustomers: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, snap.CompletionRate)

	snap, err = NewEngine(0, nil).Compute(Input{
		AccountID:      account,
		Kind:           event.KindCollection,
		Window:         timewindow.ThisMonth(),
		Now:            jan(20),
		Events:         events[:3],
		TotalCustomers: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 75, snap.CompletionRate)
	assert.Equal(t, DefaultExpectedCadence, snap.ExpectedCadence)
}

func TestComputeMonthBuckets(t *testing.T) {
	engine := NewEngine(4, nil)
	now := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

	snap, err := engine.Compute(Input{
		AccountID: account,
		Kind:      event.KindCollection,
		Window:    timewindow.LastNMonths(3),
		Now:       now,
		Events: []event.Event{
			newCollection("old", time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC), "cus-1", "", 1),
			newCollection("jan", jan(15), "cus-1", "", 1),
			newCollection("mar1", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), "cus-1", "", 1),
			newCollection("mar2", time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC), "cus-2", "", 1),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, []report.MonthBucket{
		{Month: "2024-01", Total: 1, Customers: 1},
		{Month: "2024-02", Total: 0, Customers: 0},
		{Month: "2024-03", Total: 2, Customers: 2},
	}, snap.Months)
}

func TestComputeBucketsInClockLocation(t *testing.T) {
	engine := NewEngine(4, nil)
	eat := time.FixedZone("EAT", 3*60*60)
	now := time.Date(2024, time.February, 10, 12, 0, 0, 0, eat)

	// 22:00 UTC on Jan 31 is already Feb 1 in EAT
	snap, err := engine.Compute(Input{
		AccountID: account,
		Kind:      event.KindCollection,
		Window:    timewindow.ThisMonth(),
		Now:       now,
		Events:    []event.Event{newCollection("a", time.Date(2024, time.January, 31, 22, 0, 0, 0, time.UTC), "", "", 1)},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, snap.Total)
	assert.Equal(t, "2024-02", snap.Months[0].Month)
	assert.Equal(t, 1, snap.Months[0].Total)
}

func TestComputeIgnoresOtherKindsAndVoided(t *testing.T) {
	engine := NewEngine(4, nil)
	check := newCollection("chk", jan(3), "", "", 0)
	check.Kind = event.KindCheck
	voided := newCollection("void", jan(4), "", "", 1)
	voided.Status = event.StatusVoided

	snap, err := engine.Compute(Input{
		AccountID: account,
		Kind:      event.KindCollection,
		Window:    timewindow.ThisMonth(),
		Now:       jan(20),
		Events:    []event.Event{newCollection("a", jan(2), "", "", 1), check, voided},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Total)
}

func TestTopCustomersLimit(t *testing.T) {
	counts := map[string]int{"a": 1, "b": 5, "c": 3, "d": 3, "e": 2, "f": 4, "g": 1}

	top := topCustomers(counts, 5)
	require.Len(t, top, 5)
	assert.Equal(t, []report.CustomerCount{
		{CustomerID: "b", Total: 5},
		{CustomerID: "f", Total: 4},
		{CustomerID: "c", Total: 3},
		{CustomerID: "d", Total: 3},
		{CustomerID: "e", Total: 2},
	}, top)
}
