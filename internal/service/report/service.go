// internal/service/report/service.go
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"pillflow-service/internal/domain/customer"
	"pillflow-service/internal/domain/event"
	"pillflow-service/internal/domain/pack"
	"pillflow-service/internal/domain/report"
	"pillflow-service/internal/pkg/clock"
	xerrors "pillflow-service/internal/pkg/errors"
	"pillflow-service/internal/pkg/timewindow"

	"go.uber.org/zap"
)

const (
	defaultUpcomingDays = 7
	maxUpcomingDays     = 90
	defaultRecentLimit  = 10
	maxRecentLimit      = 100
)

type EventStore interface {
	ListRange(ctx context.Context, accountID string, kind event.Kind, from, to time.Time) ([]event.Event, error)
	Recent(ctx context.Context, accountID string, limit int) ([]event.Event, error)
	CountChecks(ctx context.Context, accountID string, from, to time.Time) (int, error)
	CountDistinctCheckedPacks(ctx context.Context, accountID string) (int, error)
	CustomerActivity(ctx context.Context, accountID string) ([]report.CustomerActivity, error)
}

type CustomerStore interface {
	GetStats(ctx context.Context, accountID string) (*customer.CustomerStats, error)
	OwnersOf(ctx context.Context, ids []string) (map[string]string, error)
}

type PackStore interface {
	ListDue(ctx context.Context, accountID string, from, to time.Time) ([]pack.DuePack, error)
	Count(ctx context.Context, accountID string) (int, error)
}

type ReportService struct {
	events    EventStore
	customers CustomerStore
	packs     PackStore
	engine    *Engine
	cache     SnapshotCache
	clock     clock.Clock
	logger    *zap.Logger
}

func NewReportService(
	events EventStore,
	customers CustomerStore,
	packs PackStore,
	engine *Engine,
	cache SnapshotCache,
	clk clock.Clock,
	logger *zap.Logger,
) *ReportService {
	if cache == nil {
		cache = NoopCache{}
	}
	return &ReportService{
		events:    events,
		customers: customers,
		packs:     packs,
		engine:    engine,
		cache:     cache,
		clock:     clk,
		logger:    logger,
	}
}

// Aggregate returns the snapshot of one event stream over a window, served
// from the cache when an earlier complete snapshot is still held.
func (s *ReportService) Aggregate(ctx context.Context, accountID string, kind event.Kind, window timewindow.Window) (*report.Snapshot, error) {
	if accountID == "" {
		return nil, xerrors.NewAuthorizationError("", "aggregate")
	}
	if !kind.Valid() {
		return nil, xerrors.NewValidationError("kind", fmt.Sprintf("unknown event kind %q", kind))
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	start, end, err := window.Bounds(now)
	if err != nil {
		return nil, err
	}

	// generation before events: an Invalidate landing in between leaves
	// this snapshot under a generation that is never read again
	field := cacheField(kind, window, start, now)
	gen, err := s.cache.Generation(ctx, accountID)
	cacheable := err == nil
	if err != nil {
		s.logger.Warn("aggregate cache generation read failed", zap.String("account_id", accountID), zap.Error(err))
	}
	if cacheable {
		cached, ok, err := s.cache.Get(ctx, accountID, gen, field)
		if err != nil {
			s.logger.Warn("aggregate cache read failed", zap.String("account_id", accountID), zap.Error(err))
		}
		if ok {
			return cached, nil
		}
	}

	// the week-over-week figures need the two weeks before now
	from := start
	if cmp := now.Add(-2 * timewindow.Week); cmp.Before(from) {
		from = cmp
	}
	to := end
	if now.After(to) {
		to = now
	}

	events, err := s.events.ListRange(ctx, accountID, kind, from, to)
	if err != nil {
		return nil, err
	}

	owners, err := s.customers.OwnersOf(ctx, customerIDs(events))
	if err != nil {
		return nil, err
	}

	stats, err := s.customers.GetStats(ctx, accountID)
	if err != nil {
		return nil, err
	}

	snap, err := s.engine.Compute(Input{
		AccountID:      accountID,
		Kind:           kind,
		Window:         window,
		Now:            now,
		Events:         events,
		CustomerOwners: owners,
		TotalCustomers: int(stats.TotalCustomers),
	})
	if err != nil {
		if xerrors.Is(err, xerrors.ErrForbidden) {
			s.logger.Error("aggregate rejected foreign data",
				zap.String("account_id", accountID),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
		}
		return nil, err
	}

	if cacheable && !snap.Incomplete {
		if err := s.cache.Set(ctx, accountID, gen, field, snap, untilBoundary(window, end, now)); err != nil {
			s.logger.Warn("aggregate cache write failed", zap.String("account_id", accountID), zap.Error(err))
		}
	}

	return snap, nil
}

// cacheField names a snapshot by the resolved window. Calendar windows are
// keyed by their start; the rolling week by the day it is evaluated on.
func cacheField(kind event.Kind, window timewindow.Window, start, now time.Time) string {
	slot := start
	if window.Kind == timewindow.KindThisWeek {
		slot = timewindow.StartOfDay(now)
	}
	return fmt.Sprintf("%s:%s:%s", kind, window.Key(), slot.UTC().Format(time.RFC3339))
}

// untilBoundary is how long a snapshot computed at now stays on the same
// calendar window.
func untilBoundary(window timewindow.Window, end, now time.Time) time.Duration {
	if window.Kind == timewindow.KindThisWeek {
		return timewindow.StartOfDay(now).AddDate(0, 0, 1).Sub(now)
	}
	return end.Sub(now)
}

// Invalidate drops every cached snapshot of an account
func (s *ReportService) Invalidate(ctx context.Context, accountID string) error {
	return s.cache.Invalidate(ctx, accountID)
}

// Dashboard returns the headline numbers. Collections and the collection
// rate cover the current calendar month.
func (s *ReportService) Dashboard(ctx context.Context, accountID string) (*report.Dashboard, error) {
	snap, err := s.Aggregate(ctx, accountID, event.KindCollection, timewindow.ThisMonth())
	if err != nil {
		return nil, err
	}

	stats, err := s.customers.GetStats(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	due, err := s.packs.ListDue(ctx, accountID, now, now.Add(timewindow.Week))
	if err != nil {
		return nil, err
	}

	return &report.Dashboard{
		TotalCustomers:   stats.TotalCustomers,
		ActiveCustomers:  stats.ActiveCustomers,
		TotalCollections: snap.Total,
		DueCollections:   len(due),
		CollectionRate:   snap.CompletionRate,
		Incomplete:       snap.Incomplete,
		GeneratedAt:      now,
	}, nil
}

// Upcoming lists packs due in the next days, earliest first
func (s *ReportService) Upcoming(ctx context.Context, accountID string, days int) ([]pack.DuePack, error) {
	if accountID == "" {
		return nil, xerrors.NewAuthorizationError("", "upcoming collections")
	}
	if days == 0 {
		days = defaultUpcomingDays
	}
	if days < 0 || days > maxUpcomingDays {
		return nil, xerrors.NewValidationError("days", fmt.Sprintf("must be between 1 and %d", maxUpcomingDays))
	}

	now := s.clock.Now()
	return s.packs.ListDue(ctx, accountID, now, now.AddDate(0, 0, days))
}

// CustomerActivity lists customers with at least one collection, most
// recently active first
func (s *ReportService) CustomerActivity(ctx context.Context, accountID string) ([]report.CustomerActivity, error) {
	if accountID == "" {
		return nil, xerrors.NewAuthorizationError("", "customer activity")
	}

	activity, err := s.events.CustomerActivity(ctx, accountID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(activity, func(i, j int) bool {
		return activity[i].LastCollectionAt.After(activity[j].LastCollectionAt)
	})

	return activity, nil
}

// CheckStats summarises pack checks. A pack counts as checked once any
// check exists for it.
func (s *ReportService) CheckStats(ctx context.Context, accountID string) (*report.CheckStats, error) {
	if accountID == "" {
		return nil, xerrors.NewAuthorizationError("", "check stats")
	}

	now := s.clock.Now()
	start := timewindow.StartOfDay(now)

	today, err := s.events.CountChecks(ctx, accountID, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	checked, err := s.events.CountDistinctCheckedPacks(ctx, accountID)
	if err != nil {
		return nil, err
	}

	total, err := s.packs.Count(ctx, accountID)
	if err != nil {
		return nil, err
	}

	stats := &report.CheckStats{
		TodayChecks:       today,
		CheckedPacksCount: checked,
		TotalPacks:        total,
	}
	if pending := total - checked; pending > 0 {
		stats.PendingChecks = pending
	}
	if total > 0 {
		stats.CompletionRate = completionRate(checked, total, 1)
		if stats.CompletionRate > 100 {
			stats.CompletionRate = 100
		}
	}

	return stats, nil
}

// RecentActivity returns the newest collections and checks, merged
func (s *ReportService) RecentActivity(ctx context.Context, accountID string, limit int) (*report.RecentActivity, error) {
	if accountID == "" {
		return nil, xerrors.NewAuthorizationError("", "recent activity")
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	events, err := s.events.Recent(ctx, accountID, limit)
	if err != nil {
		return nil, err
	}

	for _, e := range events {
		if e.AccountID != accountID {
			return nil, xerrors.NewAuthorizationError(accountID, fmt.Sprintf("%s %s", e.Kind, e.ID))
		}
	}

	return &report.RecentActivity{Events: events}, nil
}

func customerIDs(events []event.Event) []string {
	seen := make(map[string]struct{})
	ids := []string{}
	for _, e := range events {
		if !e.HasCustomer() {
			continue
		}
		if _, ok := seen[e.CustomerID.String]; ok {
			continue
		}
		seen[e.CustomerID.String] = struct{}{}
		ids = append(ids, e.CustomerID.String)
	}
	return ids
}
