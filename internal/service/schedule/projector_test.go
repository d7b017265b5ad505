package schedule

import (
	"testing"
	"time"

	"pillflow-service/internal/domain/event"
	"pillflow-service/internal/domain/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collection(id string, at time.Time, count int) event.Event {
	return event.Event{
		ID:         id,
		Kind:       event.KindCollection,
		AccountID:  "acc-1",
		PackCode:   "WP-1",
		OccurredAt: at,
		PackType:   event.PackTypeBlister,
		PackCount:  count,
		Status:     event.StatusCompleted,
	}
}

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func TestProjectNoEvents(t *testing.T) {
	p := NewProjector(0, 0)

	proj := p.Project(nil)
	assert.Nil(t, proj.LastCollected)
	assert.Nil(t, proj.NextDue)
	assert.Equal(t, schedule.StatusNever, p.Evaluate(proj, day(1)).Status)
}

func TestProjectMultipliesPackCount(t *testing.T) {
	p := NewProjector(0, 0)
	at := time.Date(2024, time.March, 4, 9, 30, 0, 0, time.UTC)

	proj := p.Project([]event.Event{collection("a", at, 2)})
	require.NotNil(t, proj.NextDue)
	assert.Equal(t, at, *proj.LastCollected)
	assert.Equal(t, at.Add(14*24*time.Hour), *proj.NextDue)
}

func TestProjectScenario(t *testing.T) {
	p := NewProjector(0, 0)
	events := []event.Event{
		collection("a", day(1), 1),
		collection("b", day(8), 2),
	}
	events[1].PackType = event.PackTypeSachet

	proj := p.Project(events)
	require.NotNil(t, proj.NextDue)
	assert.Equal(t, day(8), *proj.LastCollected)
	assert.Equal(t, day(22), *proj.NextDue)
}

func TestLatestIgnoresChecksAndInvalidTimes(t *testing.T) {
	check := collection("chk", day(20), 1)
	check.Kind = event.KindCheck
	broken := collection("zero", time.Time{}, 5)

	latest := Latest([]event.Event{collection("a", day(3), 1), check, broken})
	require.NotNil(t, latest)
	assert.Equal(t, "a", latest.ID)

	assert.Nil(t, Latest([]event.Event{check, broken}))
}

func TestLatestTieBreak(t *testing.T) {
	events := []event.Event{
		collection("a", day(8), 1),
		collection("b", day(8), 3),
		collection("c", day(8), 2),
	}

	latest := Latest(events)
	require.NotNil(t, latest)
	assert.Equal(t, "b", latest.ID)

	// order of input does not matter
	latest = Latest([]event.Event{events[2], events[1], events[0]})
	assert.Equal(t, "b", latest.ID)
}

func TestLatestTreatsMissingCountAsOne(t *testing.T) {
	p := NewProjector(0, 0)

	proj := p.Project([]event.Event{collection("legacy", day(1), 0)})
	require.NotNil(t, proj.NextDue)
	assert.Equal(t, day(8), *proj.NextDue)
}

func TestCustomInterval(t *testing.T) {
	p := NewProjector(14*24*time.Hour, 0)

	proj := p.Project([]event.Event{collection("a", day(1), 1)})
	assert.Equal(t, day(15), *proj.NextDue)
}

func TestEvaluate(t *testing.T) {
	p := NewProjector(0, 0)
	proj := p.Project([]event.Event{collection("a", day(1), 1)}) // due day 8

	tests := []struct {
		name  string
		now   time.Time
		state schedule.State
	}{
		{"well before", day(1), schedule.State{Status: schedule.StatusDue}},
		{"exact due", day(8), schedule.State{Status: schedule.StatusDue}},
		{"just overdue", day(9), schedule.State{Status: schedule.StatusOverdue, OverdueWeeks: 0}},
		{"three weeks late", day(29), schedule.State{Status: schedule.StatusOverdue, OverdueWeeks: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.state, p.Evaluate(proj, tt.now))
		})
	}

	longer := p.Project([]event.Event{collection("b", day(1), 4)}) // due day 29
	assert.Equal(t, schedule.StatusUpcoming, p.Evaluate(longer, day(2)).Status)
}
