// internal/domain/customer/dto.go
package customer

type CreateCustomerRequest struct {
	FullName  string `json:"full_name" binding:"required,max=255"`
	Email     string `json:"email" binding:"omitempty,email,max=255"`
	Phone     string `json:"phone" binding:"max=20"`
	Address   string `json:"address" binding:"max=500"`
	AvatarURL string `json:"avatar_url" binding:"omitempty,url"`
}

type UpdateCustomerRequest struct {
	FullName  *string `json:"full_name" binding:"omitempty,max=255"`
	Email     *string `json:"email" binding:"omitempty,email,max=255"`
	Phone     *string `json:"phone" binding:"omitempty,max=20"`
	Address   *string `json:"address" binding:"omitempty,max=500"`
	AvatarURL *string `json:"avatar_url" binding:"omitempty,url"`
}

type CustomerListFilters struct {
	Status    string `form:"status" binding:"omitempty,oneof=active inactive"`
	Search    string `form:"search"` // name, email, phone
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	SortBy    string `form:"sort_by" binding:"omitempty,oneof=created_at full_name updated_at"`
	SortOrder string `form:"sort_order" binding:"omitempty,oneof=asc desc"`
}

type CustomerListResponse struct {
	Customers  []Customer `json:"customers"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}
