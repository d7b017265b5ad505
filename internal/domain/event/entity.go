// internal/domain/event/entity.go
package event

import (
	"database/sql"
	"time"
)

type Kind string

const (
	KindCollection Kind = "collection"
	KindCheck      Kind = "check"
)

func (k Kind) Valid() bool {
	return k == KindCollection || k == KindCheck
}

type PackType string

const (
	PackTypeBlister PackType = "blister"
	PackTypeSachet  PackType = "sachet"
	PackTypeOther   PackType = "other"
)

func (t PackType) Valid() bool {
	switch t {
	case PackTypeBlister, PackTypeSachet, PackTypeOther:
		return true
	}
	return false
}

// Normalize buckets missing types under blister.
func (t PackType) Normalize() PackType {
	if t == "" {
		return PackTypeBlister
	}
	return t
}

const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
	StatusVoided    = "voided"

	DefaultPackCount = 1
)

func ValidStatus(s string) bool {
	switch s {
	case StatusCompleted, StatusPending, StatusVoided:
		return true
	}
	return false
}

// Event is a collection or pack check. Both streams share this shape; the
// collection-only and check-only fields are zero for the other kind.
type Event struct {
	ID        string         `json:"id" db:"id"`
	Kind      Kind           `json:"kind" db:"-"`
	AccountID string         `json:"owner_id" db:"owner_id"`
	PackCode  string         `json:"pack_code" db:"pack_code"`
	PackID    sql.NullString `json:"pack_id,omitempty" db:"pack_id"`

	CustomerID sql.NullString `json:"customer_id,omitempty" db:"customer_id"`

	OccurredAt time.Time `json:"occurred_at" db:"occurred_at"`
	Operator   string    `json:"operator" db:"operator"`

	// Collections only
	PackType  PackType `json:"pack_type,omitempty" db:"pack_type"`
	PackCount int      `json:"pack_count,omitempty" db:"pack_count"`

	// Checks only
	Notes sql.NullString `json:"notes,omitempty" db:"notes"`

	Status string `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasCustomer reports whether the event is attached to a customer.
func (e *Event) HasCustomer() bool {
	return e.CustomerID.Valid && e.CustomerID.String != ""
}

// Units is the number of weekly units the event covers. Checks and legacy
// rows without a count cover one.
func (e *Event) Units() int {
	if e.PackCount < 1 {
		return DefaultPackCount
	}
	return e.PackCount
}
