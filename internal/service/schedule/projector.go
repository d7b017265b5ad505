// internal/service/schedule/projector.go
package schedule

import (
	"time"

	"pillflow-service/internal/domain/event"
	"pillflow-service/internal/domain/schedule"
	"pillflow-service/internal/pkg/timewindow"
)

const (
	DefaultInterval = timewindow.Week
	DefaultHorizon  = timewindow.Week
)

// Projector derives collection schedules from event history. It does no I/O.
type Projector struct {
	interval time.Duration
	horizon  time.Duration
}

// NewProjector builds a projector. A pack collected with count n is due
// again n intervals later; a pack is "due" once its next date is within
// horizon. Non-positive values fall back to one week.
func NewProjector(interval, horizon time.Duration) *Projector {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	return &Projector{interval: interval, horizon: horizon}
}

func (p *Projector) Interval() time.Duration { return p.interval }

// Latest returns the most recent collection among events. Checks and events
// with invalid timestamps are ignored. On identical timestamps the event
// with the larger pack count wins, then the larger id.
func Latest(events []event.Event) *event.Event {
	var latest *event.Event
	for i := range events {
		e := &events[i]
		if e.Kind != event.KindCollection {
			continue
		}
		if timewindow.Validate(e.OccurredAt) != nil {
			continue
		}
		if latest == nil || supersedes(e, latest) {
			latest = e
		}
	}
	return latest
}

func supersedes(a, b *event.Event) bool {
	if !a.OccurredAt.Equal(b.OccurredAt) {
		return a.OccurredAt.After(b.OccurredAt)
	}
	if a.Units() != b.Units() {
		return a.Units() > b.Units()
	}
	return a.ID > b.ID
}

// ProjectNextDue computes the schedule from the latest collection. A nil
// event yields an empty projection.
func (p *Projector) ProjectNextDue(latest *event.Event) schedule.Projection {
	if latest == nil {
		return schedule.Projection{}
	}
	last := latest.OccurredAt
	next := last.Add(time.Duration(latest.Units()) * p.interval)
	return schedule.Projection{LastCollected: &last, NextDue: &next}
}

// Project is Latest followed by ProjectNextDue.
func (p *Projector) Project(events []event.Event) schedule.Projection {
	return p.ProjectNextDue(Latest(events))
}

// Evaluate classifies a projection at now.
func (p *Projector) Evaluate(proj schedule.Projection, now time.Time) schedule.State {
	if proj.NextDue == nil {
		return schedule.State{Status: schedule.StatusNever}
	}
	next := *proj.NextDue
	if next.Before(now) {
		weeks, err := timewindow.WeeksBetween(next, now)
		if err != nil {
			weeks = 0
		}
		return schedule.State{Status: schedule.StatusOverdue, OverdueWeeks: weeks}
	}
	if !next.After(now.Add(p.horizon)) {
		return schedule.State{Status: schedule.StatusDue}
	}
	return schedule.State{Status: schedule.StatusUpcoming}
}
