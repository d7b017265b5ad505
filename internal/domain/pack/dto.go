// internal/domain/pack/dto.go
package pack

import "time"

type CreatePackRequest struct {
	PackName   string `json:"pack_name" binding:"required,max=255"`
	CustomerID string `json:"customer_id"`
}

type UpdatePackRequest struct {
	PackName   *string `json:"pack_name" binding:"omitempty,max=255"`
	CustomerID *string `json:"customer_id"`
	Status     *string `json:"status" binding:"omitempty,oneof=active inactive"`
}

type PackListFilters struct {
	CustomerID string `form:"customer_id"`
	Status     string `form:"status" binding:"omitempty,oneof=active inactive"`
	Search     string `form:"search"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type PackListResponse struct {
	Packs      []Pack `json:"packs"`
	Total      int64  `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalPages int    `json:"total_pages"`
}

// ScheduleResponse is the derived schedule of one pack.
type ScheduleResponse struct {
	PackID        string     `json:"pack_id"`
	LastCollected *time.Time `json:"last_collected"`
	NextDue       *time.Time `json:"next_due"`
	Status        string     `json:"status"`
	OverdueWeeks  int        `json:"overdue_weeks"`
}
