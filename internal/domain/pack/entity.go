// internal/domain/pack/entity.go
package pack

import (
	"database/sql"
	"time"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Pack is a webster pack definition. LastCollectionDate and
// NextCollectionDate cache the schedule projection and are rewritten after
// every collection recorded against the pack.
type Pack struct {
	ID         string         `json:"id" db:"id"`
	AccountID  string         `json:"owner_id" db:"owner_id"`
	PackName   string         `json:"pack_name" db:"pack_name"`
	CustomerID sql.NullString `json:"customer_id,omitempty" db:"customer_id"`
	Status     string         `json:"status" db:"status"`

	LastCollectionDate sql.NullTime `json:"last_collection_date,omitempty" db:"last_collection_date"`
	NextCollectionDate sql.NullTime `json:"next_collection_date,omitempty" db:"next_collection_date"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DuePack is a pack joined with its customer's name for the upcoming
// collections list.
type DuePack struct {
	Pack
	CustomerName sql.NullString `json:"customer_name,omitempty" db:"customer_name"`
}
