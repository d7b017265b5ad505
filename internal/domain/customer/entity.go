// internal/domain/customer/entity.go
package customer

import (
	"database/sql"
	"time"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type Customer struct {
	ID        string `json:"id" db:"id"`
	AccountID string `json:"owner_id" db:"owner_id"`

	// Customer details
	FullName  string         `json:"full_name" db:"full_name"`
	Email     sql.NullString `json:"email,omitempty" db:"email"`
	Phone     sql.NullString `json:"phone,omitempty" db:"phone"`
	Address   sql.NullString `json:"address,omitempty" db:"address"`
	AvatarURL sql.NullString `json:"avatar_url,omitempty" db:"avatar_url"`

	Status string `json:"status" db:"status"`

	// Timestamps
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsActive treats a missing status as active, matching rows created before
// the column existed.
func (c *Customer) IsActive() bool {
	return c.Status == "" || c.Status == StatusActive
}

type CustomerStats struct {
	TotalCustomers    int64 `json:"total_customers"`
	ActiveCustomers   int64 `json:"active_customers"`
	InactiveCustomers int64 `json:"inactive_customers"`
	NewThisMonth      int64 `json:"new_this_month"`
}
