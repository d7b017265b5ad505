// internal/domain/event/dto.go
package event

import "time"

type RecordEventRequest struct {
	Kind       Kind     `json:"kind"`
	PackCode   string   `json:"pack_code"`
	CustomerID string   `json:"customer_id"`
	Operator   string   `json:"operator"`
	PackType   PackType `json:"pack_type"`
	PackCount  *int     `json:"pack_count"`
	Notes      string   `json:"notes"`
}

type CorrectStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=completed pending voided"`
}

type EventListFilters struct {
	Kind       Kind       `form:"kind"`
	CustomerID string     `form:"customer_id"`
	PackCode   string     `form:"pack_code"`
	PackID     string     `form:"pack_id"`
	PackTypes  []string   `form:"pack_types"`
	From       *time.Time `form:"-"`
	To         *time.Time `form:"-"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=500"`
	SortOrder  string     `form:"sort_order" binding:"omitempty,oneof=asc desc"`
}

type EventListResponse struct {
	Events     []Event `json:"events"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalPages int     `json:"total_pages"`
}
