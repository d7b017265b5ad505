// internal/domain/report/entity.go
package report

import (
	"time"

	"pillflow-service/internal/domain/event"
	"pillflow-service/internal/pkg/timewindow"
)

// Snapshot is the aggregate view of one event stream over a window. It is a
// pure function of the events, the clock and the window.
type Snapshot struct {
	AccountID   string            `json:"account_id"`
	Kind        event.Kind        `json:"kind"`
	Window      timewindow.Window `json:"window"`
	Start       time.Time         `json:"start"`
	End         time.Time         `json:"end"`
	GeneratedAt time.Time         `json:"generated_at"`

	Total             int                    `json:"total"`
	DistinctCustomers int                    `json:"distinct_customers"`
	PerType           map[event.PackType]int `json:"per_type"`
	PackUnitsByType   map[event.PackType]int `json:"pack_units_by_type"`
	WeekOverWeek      WeekOverWeek           `json:"week_over_week"`
	CompletionRate    int                    `json:"completion_rate"`
	TotalCustomers    int                    `json:"total_customers"`
	ExpectedCadence   int                    `json:"expected_cadence"`

	Months       []MonthBucket   `json:"months,omitempty"`
	ByWeekday    []WeekdayBucket `json:"by_weekday"`
	TopCustomers []CustomerCount `json:"top_customers"`

	SkippedEvents int  `json:"skipped_events"`
	Incomplete    bool `json:"incomplete"`
}

type WeekOverWeek struct {
	ThisWeek          int `json:"this_week"`
	LastWeek          int `json:"last_week"`
	ChangePercent     int `json:"change_percent"`
	ProjectedNextWeek int `json:"projected_next_week"`
}

type MonthBucket struct {
	Month     string `json:"month"` // YYYY-MM
	Total     int    `json:"total"`
	Customers int    `json:"customers"`
}

type WeekdayBucket struct {
	Day   string `json:"day"`
	Total int    `json:"total"`
}

type CustomerCount struct {
	CustomerID string `json:"customer_id"`
	Total      int    `json:"total"`
}

// Dashboard is the headline numbers of the home page.
type Dashboard struct {
	TotalCustomers   int64     `json:"total_customers"`
	ActiveCustomers  int64     `json:"active_customers"`
	TotalCollections int       `json:"total_collections"`
	DueCollections   int       `json:"due_collections"`
	CollectionRate   int       `json:"collection_rate"`
	Incomplete       bool      `json:"incomplete"`
	GeneratedAt      time.Time `json:"generated_at"`
}

type CustomerActivity struct {
	CustomerID       string    `json:"customer_id"`
	FullName         string    `json:"full_name"`
	Collections      int       `json:"collections"`
	LastCollectionAt time.Time `json:"last_collection_at"`
}

type CheckStats struct {
	TodayChecks       int `json:"today_checks"`
	CheckedPacksCount int `json:"checked_packs_count"`
	TotalPacks        int `json:"total_packs"`
	PendingChecks     int `json:"pending_checks"`
	CompletionRate    int `json:"completion_rate"`
}

type RecentActivity struct {
	Events []event.Event `json:"events"`
}
