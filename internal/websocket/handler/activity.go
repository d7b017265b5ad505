// internal/websocket/handler/activity.go
package handler

import (
	"context"
	"fmt"

	"pillflow-service/internal/domain/report"
	wstypes "pillflow-service/internal/domain/websocket"
	ws "pillflow-service/internal/websocket"
)

type RecentActivityReader interface {
	RecentActivity(ctx context.Context, accountID string, limit int) (*report.RecentActivity, error)
}

// ActivityHandler answers dashboard requests for the latest events over the
// socket so a client can refresh after an activity:recorded signal.
type ActivityHandler struct {
	reports RecentActivityReader
}

func NewActivityHandler(reports RecentActivityReader) *ActivityHandler {
	return &ActivityHandler{reports: reports}
}

// SupportedEvents returns events this handler supports
func (h *ActivityHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{wstypes.EventTypeActivityRecent}
}

// HandleMessage processes activity-related messages
func (h *ActivityHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	switch msg.Type {
	case wstypes.EventTypeActivityRecent:
		return h.handleRecent(ctx, client, msg)
	default:
		return fmt.Errorf("unsupported event type: %s", msg.Type)
	}
}

func (h *ActivityHandler) handleRecent(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	var req struct {
		Limit int `json:"limit"`
	}

	if err := ws.MapToStruct(msg.Data, &req); err != nil {
		client.SendError("invalid_request", "Invalid recent activity request", err.Error())
		return nil
	}

	recent, err := h.reports.RecentActivity(ctx, client.GetAccountID(), req.Limit)
	if err != nil {
		client.SendError("recent_failed", "Failed to load recent activity", err.Error())
		return nil
	}

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeActivityRecent, recent))
	return nil
}
