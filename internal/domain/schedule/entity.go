// internal/domain/schedule/entity.go
package schedule

import "time"

type Status string

const (
	StatusNever    Status = "never"
	StatusUpcoming Status = "upcoming"
	StatusDue      Status = "due"
	StatusOverdue  Status = "overdue"
)

// Projection is a pack's last collection and the date the next one is
// expected. Both are nil when the pack has never been collected.
type Projection struct {
	LastCollected *time.Time `json:"last_collected"`
	NextDue       *time.Time `json:"next_due"`
}

// State is a projection evaluated against the clock.
type State struct {
	Status       Status `json:"status"`
	OverdueWeeks int    `json:"overdue_weeks"`
}
