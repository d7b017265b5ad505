// internal/handlers/customer/customer.go
package customer

import (
	"net/http"

	"pillflow-service/internal/domain/customer"
	"pillflow-service/internal/domain/pack"
	"pillflow-service/internal/middleware"
	"pillflow-service/internal/pkg/response"
	service "pillflow-service/internal/service/customer"
	packsvc "pillflow-service/internal/service/pack"

	"github.com/gin-gonic/gin"
)

type CustomerHandler struct {
	customerService *service.CustomerService
	packService     *packsvc.PackService
}

func NewCustomerHandler(customerService *service.CustomerService, packService *packsvc.PackService) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
		packService:     packService,
	}
}

// CreateCustomer creates a new customer
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	accountID, err := middleware.GetAccountID(c)
	if err != nil {
		response.FromError(c, "not authenticated", err)
		return
	}

	var req customer.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.customerService.CreateCustomer(c.Request.Context(), accountID, &req)
	if err != nil {
		response.FromError(c, "failed to create customer", err)
		return
	}

	response.Success(c, http.StatusCreated, "customer created successfully", result)
}

// GetCustomer retrieves a customer by ID
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	accountID, err := middleware.GetAccountID(c)
	if err != nil {
		response.FromError(c, "not authenticated", err)
		return
	}

	result, err := h.customerService.GetCustomer(c.Request.Context(), accountID, c.Param("id"))
	if err != nil {
		response.FromError(c, "customer not found", err)
		return
	}

	response.Success(c, http.StatusOK, "customer retrieved", result)
}

// ListCustomers lists customers with filters
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	accountID, err := middleware.GetAccountID(c)
	if err != nil {
		response.FromError(c, "not authenticated", err)
		return
	}

	var filters customer.CustomerListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid filters", err)
		return
	}

	result, err := h.customerService.ListCustomers(c.Request.Context(), accountID, &filters)
	if err != nil {
		response.FromError(c, "failed to list customers", err)
		return
	}

	response.Success(c, http.StatusOK, "customers retrieved", result)
}

// UpdateCustomer updates customer information
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	accountID, err := middleware.GetAccountID(c)
	if err != nil {
		response.FromError(c, "not authenticated", err)
		return
	}

	var req customer.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.customerService.UpdateCustomer(c.Request.Context(), accountID, c.Param("id"), &req)
	if err != nil {
		response.FromError(c, "failed to update customer", err)
		return
	}

	response.Success(c, http.StatusOK, "customer updated successfully", result)
}

// ActivateCustomer activates a customer
func (h *CustomerHandler) ActivateCustomer(c *gin.Context) {
	accountID, err := middleware.GetAccountID(c)
	if err != nil {
		response.FromError(c, "not authenticated", err)
		return
	}

	if err := h.customerService.ActivateCustomer(c.Request.Context(), accountID, c.Param("id")); err != nil {
		response.FromError(c, "failed to activate customer", err)
		return
	}

	response.Success(c, http.StatusOK, "customer activated successfully", nil)
}

// DeactivateCustomer deactivates a customer
func (h *CustomerHandler) DeactivateCustomer(c *gin.Context) {
	accountID, err := middleware.GetAccountID(c)
	if err != nil {
		response.FromError(c, "not authenticated", err)
		return
	}

	if err := h.customerService.DeactivateCustomer(c.Request.Context(), accountID, c.Param("id")); err != nil {
		response.FromError(c, "failed to deactivate customer", err)
		return
	}

	response.Success(c, http.StatusOK, "customer deactivated successfully", nil)
}

// GetCustomerStats retrieves customer statistics
func (h *CustomerHandler) GetCustomerStats(c *gin.Context) {
	accountID, err := middleware.GetAccountID(c)
	if err != nil {
		response.FromError(c, "not authenticated", err)
		return
	}

	stats, err := h.customerService.GetCustomerStats(c.Request.Context(), accountID)
	if err != nil {
		response.FromError(c, "failed to get statistics", err)
		return
	}

	response.Success(c, http.StatusOK, "statistics retrieved", stats)
}

// ListCustomerPacks lists the webster packs of one customer
func (h *CustomerHandler) ListCustomerPacks(c *gin.Context) {
	accountID, err := middleware.GetAccountID(c)
	if err != nil {
		response.FromError(c, "not authenticated", err)
		return
	}

	var filters pack.PackListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid filters", err)
		return
	}

	result, err := h.packService.ListCustomerPacks(c.Request.Context(), accountID, c.Param("id"), &filters)
	if err != nil {
		response.FromError(c, "failed to list packs", err)
		return
	}

	response.Success(c, http.StatusOK, "packs retrieved", result)
}
