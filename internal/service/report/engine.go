// internal/service/report/engine.go
package report

import (
	"fmt"
	"math"
	"sort"
	"time"

	"pillflow-service/internal/domain/event"
	"pillflow-service/internal/domain/report"
	xerrors "pillflow-service/internal/pkg/errors"
	"pillflow-service/internal/pkg/timewindow"

	"go.uber.org/zap"
)

const (
	DefaultExpectedCadence = 4
	topCustomersLimit      = 5
)

var weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// Input is everything a snapshot is computed from. Events must cover the
// window and the two weeks before Now for the week-over-week figures.
type Input struct {
	AccountID string
	Kind      event.Kind
	Window    timewindow.Window
	Now       time.Time
	Events    []event.Event

	// CustomerOwners maps known customer ids to their owning account.
	CustomerOwners map[string]string
	TotalCustomers int
}

// Engine computes aggregate snapshots. Compute is deterministic and does no
// I/O.
type Engine struct {
	cadence int
	logger  *zap.Logger
}

func NewEngine(expectedCadence int, logger *zap.Logger) *Engine {
	if expectedCadence < 1 {
		expectedCadence = DefaultExpectedCadence
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cadence: expectedCadence, logger: logger}
}

func (e *Engine) ExpectedCadence() int { return e.cadence }

func (e *Engine) Compute(in Input) (*report.Snapshot, error) {
	if in.AccountID == "" {
		return nil, xerrors.NewAuthorizationError("", "aggregate")
	}
	if err := timewindow.Validate(in.Now); err != nil {
		return nil, err
	}
	start, end, err := in.Window.Bounds(in.Now)
	if err != nil {
		return nil, err
	}

	valid, skipped, err := e.admit(in)
	if err != nil {
		return nil, err
	}

	loc := in.Now.Location()
	snap := &report.Snapshot{
		AccountID:       in.AccountID,
		Kind:            in.Kind,
		Window:          in.Window,
		Start:           start,
		End:             end,
		GeneratedAt:     in.Now,
		PerType:         emptyTypeCounts(),
		PackUnitsByType: emptyTypeCounts(),
		TotalCustomers:  in.TotalCustomers,
		ExpectedCadence: e.cadence,
		SkippedEvents:   skipped,
		Incomplete:      skipped > 0,
		TopCustomers:    []report.CustomerCount{},
	}

	months := make(map[string]*monthAcc)
	for _, key := range in.Window.MonthKeys(in.Now) {
		months[key] = &monthAcc{customers: map[string]struct{}{}}
	}
	customers := make(map[string]int)
	weekdayTotals := make(map[time.Weekday]int)

	weekAgo := in.Now.Add(-timewindow.Week)
	twoWeeksAgo := in.Now.Add(-2 * timewindow.Week)

	for i := range valid {
		ev := &valid[i]
		at := ev.OccurredAt.In(loc)

		if !at.Before(twoWeeksAgo) && at.Before(weekAgo) {
			snap.WeekOverWeek.LastWeek++
		} else if ok, _ := timewindow.IsWithin(at, weekAgo, in.Now); ok {
			snap.WeekOverWeek.ThisWeek++
		}

		inWindow, err := in.Window.Contains(at, in.Now)
		if err != nil || !inWindow {
			continue
		}

		snap.Total++
		weekdayTotals[at.Weekday()]++

		if ev.Kind == event.KindCollection {
			t := ev.PackType.Normalize()
			snap.PerType[t]++
			snap.PackUnitsByType[t] += ev.Units()
		}

		if ev.HasCustomer() {
			customers[ev.CustomerID.String]++
		}

		if key, err := timewindow.MonthKey(at); err == nil {
			if m, ok := months[key]; ok {
				m.total++
				if ev.HasCustomer() {
					m.customers[ev.CustomerID.String] = struct{}{}
				}
			}
		}
	}

	snap.DistinctCustomers = len(customers)
	snap.WeekOverWeek.ChangePercent = changePercent(snap.WeekOverWeek.ThisWeek, snap.WeekOverWeek.LastWeek)
	snap.WeekOverWeek.ProjectedNextWeek = int(math.Round(
		float64(snap.WeekOverWeek.ThisWeek) * (1 + float64(snap.WeekOverWeek.ChangePercent)/100),
	))
	snap.CompletionRate = completionRate(snap.Total, in.TotalCustomers, e.cadence)

	for _, key := range in.Window.MonthKeys(in.Now) {
		m := months[key]
		snap.Months = append(snap.Months, report.MonthBucket{
			Month:     key,
			Total:     m.total,
			Customers: len(m.customers),
		})
	}

	snap.ByWeekday = make([]report.WeekdayBucket, 0, len(weekdays))
	for _, d := range weekdays {
		snap.ByWeekday = append(snap.ByWeekday, report.WeekdayBucket{Day: d.String(), Total: weekdayTotals[d]})
	}

	snap.TopCustomers = topCustomers(customers, topCustomersLimit)

	return snap, nil
}

type monthAcc struct {
	total     int
	customers map[string]struct{}
}

// admit checks ownership of every event and drops the ones that cannot be
// placed in time. The returned slice is a sorted copy.
func (e *Engine) admit(in Input) ([]event.Event, int, error) {
	valid := make([]event.Event, 0, len(in.Events))
	skipped := 0

	for _, ev := range in.Events {
		if ev.AccountID != in.AccountID {
			return nil, 0, xerrors.NewAuthorizationError(in.AccountID, fmt.Sprintf("%s %s", ev.Kind, ev.ID))
		}
		if ev.HasCustomer() {
			if owner, ok := in.CustomerOwners[ev.CustomerID.String]; ok && owner != in.AccountID {
				return nil, 0, xerrors.NewAuthorizationError(in.AccountID, "customer "+ev.CustomerID.String)
			}
		}
		if in.Kind != "" && ev.Kind != in.Kind {
			continue
		}
		if ev.Status == event.StatusVoided {
			continue
		}
		if err := timewindow.Validate(ev.OccurredAt); err != nil {
			skipped++
			e.logger.Warn("skipping event with invalid timestamp",
				zap.String("account_id", in.AccountID),
				zap.String("event_id", ev.ID),
				zap.String("kind", string(ev.Kind)),
				zap.Error(err),
			)
			continue
		}
		valid = append(valid, ev)
	}

	sort.SliceStable(valid, func(i, j int) bool {
		if !valid[i].OccurredAt.Equal(valid[j].OccurredAt) {
			return valid[i].OccurredAt.Before(valid[j].OccurredAt)
		}
		return valid[i].ID < valid[j].ID
	})

	return valid, skipped, nil
}

func emptyTypeCounts() map[event.PackType]int {
	return map[event.PackType]int{
		event.PackTypeBlister: 0,
		event.PackTypeSachet:  0,
		event.PackTypeOther:   0,
	}
}

func changePercent(thisWeek, lastWeek int) int {
	if lastWeek == 0 {
		return 0
	}
	return int(math.Round(float64(thisWeek-lastWeek) / float64(lastWeek) * 100))
}

func completionRate(total, customers, cadence int) int {
	denominator := customers * cadence
	if denominator <= 0 {
		return 0
	}
	return int(math.Round(float64(total) / float64(denominator) * 100))
}

func topCustomers(counts map[string]int, limit int) []report.CustomerCount {
	out := make([]report.CustomerCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, report.CustomerCount{CustomerID: id, Total: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].CustomerID < out[j].CustomerID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
