// internal/domain/account/entity.go
package account

import "time"

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Account is the tenant boundary. Every customer, pack and event row
// carries the owning account's id.
type Account struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	FullName     string    `json:"full_name" db:"full_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
