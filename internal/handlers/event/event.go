// internal/handlers/event/event.go
package event

import (
	"net/http"
	"strings"
	"time"

	"pillflow-service/internal/domain/event"
	"pillflow-service/internal/middleware"
	"pillflow-service/internal/pkg/response"
	"pillflow-service/internal/pkg/timewindow"
	service "pillflow-service/internal/service/event"

	"github.com/gin-gonic/gin"
)

// EventHandler serves both event streams. Each route is bound to one kind
// so the same handlers back /collections and /checks.
type EventHandler struct {
	eventService *service.EventService
	location     *time.Location
}

func NewEventHandler(eventService *service.EventService, location *time.Location) *EventHandler {
	if location == nil {
		location = time.UTC
	}
	return &EventHandler{
		eventService: eventService,
		location:     location,
	}
}

// Record stores one scan
func (h *EventHandler) Record(kind event.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, err := middleware.GetAccountID(c)
		if err != nil {
			response.FromError(c, "not authenticated", err)
			return
		}

		var req event.RecordEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, "invalid request", err)
			return
		}
		req.Kind = kind

		result, err := h.eventService.Record(c.Request.Context(), accountID, &req)
		if err != nil {
			response.FromError(c, "failed to record "+string(kind), err)
			return
		}

		response.Success(c, http.StatusCreated, string(kind)+" recorded", result)
	}
}

func (h *EventHandler) Get(kind event.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, err := middleware.GetAccountID(c)
		if err != nil {
			response.FromError(c, "not authenticated", err)
			return
		}

		result, err := h.eventService.GetEvent(c.Request.Context(), accountID, kind, c.Param("id"))
		if err != nil {
			response.FromError(c, string(kind)+" not found", err)
			return
		}

		response.Success(c, http.StatusOK, string(kind)+" retrieved", result)
	}
}

// List pages through events; from/to accept a date or an RFC 3339 time.
func (h *EventHandler) List(kind event.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, err := middleware.GetAccountID(c)
		if err != nil {
			response.FromError(c, "not authenticated", err)
			return
		}

		var filters event.EventListFilters
		if err := c.ShouldBindQuery(&filters); err != nil {
			response.Error(c, http.StatusBadRequest, "invalid filters", err)
			return
		}
		filters.Kind = kind
		filters.PackTypes = splitList(filters.PackTypes)

		if raw := c.Query("from"); raw != "" {
			from, err := timewindow.Parse(raw, h.location)
			if err != nil {
				response.FromError(c, "invalid from", err)
				return
			}
			filters.From = &from
		}
		if raw := c.Query("to"); raw != "" {
			to, err := timewindow.Parse(raw, h.location)
			if err != nil {
				response.FromError(c, "invalid to", err)
				return
			}
			filters.To = &to
		}

		result, err := h.eventService.ListEvents(c.Request.Context(), accountID, &filters)
		if err != nil {
			response.FromError(c, "failed to list "+string(kind)+"s", err)
			return
		}

		response.Success(c, http.StatusOK, string(kind)+"s retrieved", result)
	}
}

// CorrectStatus voids or restores an event
func (h *EventHandler) CorrectStatus(kind event.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, err := middleware.GetAccountID(c)
		if err != nil {
			response.FromError(c, "not authenticated", err)
			return
		}

		var req event.CorrectStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, "invalid request", err)
			return
		}

		result, err := h.eventService.CorrectStatus(c.Request.Context(), accountID, kind, c.Param("id"), req.Status)
		if err != nil {
			response.FromError(c, "failed to update status", err)
			return
		}

		response.Success(c, http.StatusOK, "status updated", result)
	}
}

// splitList accepts both repeated and comma separated query values
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
