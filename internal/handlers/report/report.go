// internal/handlers/report/report.go
package report

import (
	"net/http"
	"strconv"

	"pillflow-service/internal/domain/event"
	"pillflow-service/internal/middleware"
	xerrors "pillflow-service/internal/pkg/errors"
	"pillflow-service/internal/pkg/response"
	"pillflow-service/internal/pkg/timewindow"
	service "pillflow-service/internal/service/report"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService *service.ReportService
}

func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// Aggregate returns the snapshot of one event kind over a window.
// Query: kind=collection|check, window=today|this_week|this_month|last_n_months, months=N.
func (h *ReportHandler) Aggregate(c *gin.Context) {
	accountID, err := middleware.GetAccountID(c)
	if err != nil {
		response.FromError(c, "not authenticated", err)
		return
	}

	kind := event.Kind(c.DefaultQuery("kind", string(event.KindCollection)))
	if !kind.Valid() {
		response.FromError(c, "invalid kind", xerrors.NewValidationError("kind", "must be collection or check"))
		return
	}

	months, err := queryInt(c, "months", 0)
	if err != nil {
		response.FromError(c, "invalid months", err)
		return
	}

	window, err := timewindow.ParseWindow(c.Query("window"), months)
	if err != nil {
		response.FromError(c, "invalid window", err)
		return
	}

	snap, err := h.reportService.Aggregate(c.Request.Context(), accountID, kind, window)
	if err != nil {
		response.FromError(c, "failed to compute aggregate", err)
		return
	}

	response.Success(c, http.StatusOK, "aggregate computed", snap)
}

func (h *ReportHandler) Dashboard(c *gin.Context) {
	accountID, err := middleware.GetAccountID(c)
	if err != nil {
		response.FromError(c, "not authenticated", err)
		return
	}

	result, err := h.reportService.Dashboard(c.Request.Context(), accountID)
	if err != nil {
		response.FromError(c, "failed to load dashboard", err)
		return
	}

	response.Success(c, http.StatusOK, "dashboard retrieved", result)
}

// Upcoming lists packs due within ?days= (default 7)
func (h *ReportHandler) Upcoming(c *gin.Context) {
	accountID, err := middleware.GetAccountID(c)
	if err != nil {
		response.FromError(c, "not authenticated", err)
		return
	}

	days, err := queryInt(c, "days", 0)
	if err != nil {
		response.FromError(c, "invalid days", err)
		return
	}

	result, err := h.reportService.Upcoming(c.Request.Context(), accountID, days)
	if err != nil {
		response.FromError(c, "failed to list upcoming collections", err)
		return
	}

	response.Success(c, http.StatusOK, "upcoming collections retrieved", result)
}

func (h *ReportHandler) CustomerActivity(c *gin.Context) {
	accountID, err := middleware.GetAccountID(c)
	if err != nil {
		response.FromError(c, "not authenticated", err)
		return
	}

	result, err := h.reportService.CustomerActivity(c.Request.Context(), accountID)
	if err != nil {
		response.FromError(c, "failed to load customer activity", err)
		return
	}

	response.Success(c, http.StatusOK, "customer activity retrieved", result)
}

func (h *ReportHandler) CheckStats(c *gin.Context) {
	accountID, err := middleware.GetAccountID(c)
	if err != nil {
		response.FromError(c, "not authenticated", err)
		return
	}

	result, err := h.reportService.CheckStats(c.Request.Context(), accountID)
	if err != nil {
		response.FromError(c, "failed to load check stats", err)
		return
	}

	response.Success(c, http.StatusOK, "check stats retrieved", result)
}

func (h *ReportHandler) RecentActivity(c *gin.Context) {
	accountID, err := middleware.GetAccountID(c)
	if err != nil {
		response.FromError(c, "not authenticated", err)
		return
	}

	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		response.FromError(c, "invalid limit", err)
		return
	}

	result, err := h.reportService.RecentActivity(c.Request.Context(), accountID, limit)
	if err != nil {
		response.FromError(c, "failed to load recent activity", err)
		return
	}

	response.Success(c, http.StatusOK, "recent activity retrieved", result)
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, xerrors.NewValidationError(key, "must be an integer")
	}
	return n, nil
}
