// internal/handlers/pack/pack.go
package pack

import (
	"net/http"

	"pillflow-service/internal/domain/pack"
	"pillflow-service/internal/middleware"
	"pillflow-service/internal/pkg/response"
	service "pillflow-service/internal/service/pack"

	"github.com/gin-gonic/gin"
)

type PackHandler struct {
	packService *service.PackService
}

func NewPackHandler(packService *service.PackService) *PackHandler {
	return &PackHandler{packService: packService}
}

// CreatePack registers a webster pack
func (h *PackHandler) CreatePack(c *gin.Context) {
	accountID, err := middleware.GetAccountID(c)
	if err != nil {
		response.FromError(c, "not authenticated", err)
		return
	}

	var req pack.CreatePackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.packService.CreatePack(c.Request.Context(), accountID, &req)
	if err != nil {
		response.FromError(c, "failed to create pack", err)
		return
	}

	response.Success(c, http.StatusCreated, "pack created successfully", result)
}

func (h *PackHandler) GetPack(c *gin.Context) {
	accountID, err := middleware.GetAccountID(c)
	if err != nil {
		response.FromError(c, "not authenticated", err)
		return
	}

	result, err := h.packService.GetPack(c.Request.Context(), accountID, c.Param("id"))
	if err != nil {
		response.FromError(c, "pack not found", err)
		return
	}

	response.Success(c, http.StatusOK, "pack retrieved", result)
}

func (h *PackHandler) ListPacks(c *gin.Context) {
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

	result, err := h.packService.ListPacks(c.Request.Context(), accountID, &filters)
	if err != nil {
		response.FromError(c, "failed to list packs", err)
		return
	}

	response.Success(c, http.StatusOK, "packs retrieved", result)
}

func (h *PackHandler) UpdatePack(c *gin.Context) {
	accountID, err := middleware.GetAccountID(c)
	if err != nil {
		response.FromError(c, "not authenticated", err)
		return
	}

	var req pack.UpdatePackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.packService.UpdatePack(c.Request.Context(), accountID, c.Param("id"), &req)
	if err != nil {
		response.FromError(c, "failed to update pack", err)
		return
	}

	response.Success(c, http.StatusOK, "pack updated successfully", result)
}

// GetSchedule re-derives the pack's next due date from its history
func (h *PackHandler) GetSchedule(c *gin.Context) {
	accountID, err := middleware.GetAccountID(c)
	if err != nil {
		response.FromError(c, "not authenticated", err)
		return
	}

	result, err := h.packService.Schedule(c.Request.Context(), accountID, c.Param("id"))
	if err != nil {
		response.FromError(c, "failed to project schedule", err)
		return
	}

	response.Success(c, http.StatusOK, "schedule retrieved", result)
}
