// Package timewindow holds the calendar and rolling-window helpers shared by
// the schedule projector and the aggregation engine. Everything here is pure.
package timewindow

import (
	"fmt"
	"strings"
	"time"

	xerrors "pillflow-service/internal/pkg/errors"
)

const (
	Day  = 24 * time.Hour
	Week = 7 * Day

	monthKeyLayout = "2006-01"
)

var minValid = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

type Kind string

const (
	KindToday       Kind = "today"
	KindThisWeek    Kind = "this_week"
	KindThisMonth   Kind = "this_month"
	KindLastNMonths Kind = "last_n_months"
)

// Window selects the slice of event history a snapshot covers.
type Window struct {
	Kind   Kind `json:"kind"`
	Months int  `json:"months,omitempty"`
}

func Today() Window     { return Window{Kind: KindToday} }
func ThisWeek() Window  { return Window{Kind: KindThisWeek} }
func ThisMonth() Window { return Window{Kind: KindThisMonth} }

func LastNMonths(n int) Window {
	return Window{Kind: KindLastNMonths, Months: n}
}

// ParseWindow builds a window from API parameters. months is only read for
// last_n_months.
func ParseWindow(kind string, months int) (Window, error) {
	w := Window{Kind: Kind(strings.ToLower(strings.TrimSpace(kind)))}
	if w.Kind == "" {
		w.Kind = KindThisMonth
	}
	if w.Kind == KindLastNMonths {
		w.Months = months
	}
	return w, w.Validate()
}

func (w Window) Validate() error {
	switch w.Kind {
	case KindToday, KindThisWeek, KindThisMonth:
		return nil
	case KindLastNMonths:
		if w.Months < 1 {
			return xerrors.NewValidationError("months", "must be at least 1")
		}
		if w.Months > 120 {
			return xerrors.NewValidationError("months", "must be at most 120")
		}
		return nil
	default:
		return xerrors.NewValidationError("window", fmt.Sprintf("unknown window %q", w.Kind))
	}
}

// IsMonthBased reports whether the window is bucketed by calendar month.
func (w Window) IsMonthBased() bool {
	return w.Kind == KindThisMonth || w.Kind == KindLastNMonths
}

// Key is a stable identifier used for cache keys and logs.
func (w Window) Key() string {
	if w.Kind == KindLastNMonths {
		return fmt.Sprintf("%s:%d", w.Kind, w.Months)
	}
	return string(w.Kind)
}

// Bounds returns the window's start and end relative to now, in now's
// location. Calendar windows are half-open [start, end); the rolling week is
// closed [now-7d, now].
func (w Window) Bounds(now time.Time) (time.Time, time.Time, error) {
	if err := w.Validate(); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if err := Validate(now); err != nil {
		return time.Time{}, time.Time{}, err
	}

	switch w.Kind {
	case KindToday:
		start := StartOfDay(now)
		return start, start.AddDate(0, 0, 1), nil
	case KindThisWeek:
		return now.Add(-Week), now, nil
	case KindThisMonth:
		start := StartOfMonth(now)
		return start, start.AddDate(0, 1, 0), nil
	default:
		current := StartOfMonth(now)
		return current.AddDate(0, -(w.Months - 1), 0), current.AddDate(0, 1, 0), nil
	}
}

// Contains reports whether t falls inside the window evaluated at now.
func (w Window) Contains(t, now time.Time) (bool, error) {
	start, end, err := w.Bounds(now)
	if err != nil {
		return false, err
	}
	if w.Kind == KindThisWeek {
		return IsWithin(t, start, end)
	}
	if err := Validate(t); err != nil {
		return false, err
	}
	return !t.Before(start) && t.Before(end), nil
}

// MonthKeys lists the calendar month keys covered by a month-based window,
// oldest first. Other windows return nil.
func (w Window) MonthKeys(now time.Time) []string {
	if !w.IsMonthBased() {
		return nil
	}
	n := 1
	if w.Kind == KindLastNMonths {
		n = w.Months
	}
	current := StartOfMonth(now)
	keys := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		keys = append(keys, current.AddDate(0, -i, 0).Format(monthKeyLayout))
	}
	return keys
}

// Validate rejects zero and out-of-range times.
func Validate(t time.Time) error {
	if t.IsZero() || t.Before(minValid) || t.Year() > 9999 {
		return xerrors.NewInvalidTimestampError(t)
	}
	return nil
}

// MonthKey returns the YYYY-MM calendar bucket of t in t's own location.
func MonthKey(t time.Time) (string, error) {
	if err := Validate(t); err != nil {
		return "", err
	}
	return t.Format(monthKeyLayout), nil
}

// IsWithin reports start <= t <= end.
func IsWithin(t, start, end time.Time) (bool, error) {
	for _, v := range []time.Time{t, start, end} {
		if err := Validate(v); err != nil {
			return false, err
		}
	}
	return !t.Before(start) && !t.After(end), nil
}

// WeeksBetween returns the number of whole weeks from a to b, truncated
// toward zero. It is negative when b is before a.
func WeeksBetween(a, b time.Time) (int, error) {
	if err := Validate(a); err != nil {
		return 0, err
	}
	if err := Validate(b); err != nil {
		return 0, err
	}
	return int(b.Sub(a) / Week), nil
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

var parseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Parse reads an API timestamp. Layouts without a zone are read in loc.
func Parse(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range parseLayouts {
		t, err := time.ParseInLocation(layout, raw, loc)
		if err != nil {
			continue
		}
		if err := Validate(t); err != nil {
			return time.Time{}, err
		}
		return t, nil
	}
	return time.Time{}, &xerrors.InvalidTimestampError{Value: raw}
}
