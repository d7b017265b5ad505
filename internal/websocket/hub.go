// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	"pillflow-service/internal/domain/event"
	wstypes "pillflow-service/internal/domain/websocket"
	xerrors "pillflow-service/internal/pkg/errors"
	"pillflow-service/internal/pkg/jwt"

	"go.uber.org/zap"
)

// TokenValidator verifies a bearer token and its server-side session.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*jwt.Claims, error)
}

type Hub struct {
	// Registered clients by account ID
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	// Registration/unregistration
	Register   chan *Client
	unregister chan *Client

	// Broadcasting
	broadcast chan *BroadcastMessage
	done      chan struct{}

	// Handler registry for modular message handling
	handlerRegistry *HandlerRegistry

	validator TokenValidator
	logger    *zap.Logger
}

type BroadcastMessage struct {
	AccountIDs []string
	Channel    wstypes.ChannelType
	Message    *wstypes.WSMessage
}

func NewHub(validator TokenValidator, logger *zap.Logger) *Hub {
	return &Hub{
		clients:         make(map[string]map[*Client]bool),
		Register:        make(chan *Client),
		unregister:      make(chan *Client),
		broadcast:       make(chan *BroadcastMessage, 256),
		done:            make(chan struct{}),
		handlerRegistry: NewHandlerRegistry(),
		validator:       validator,
		logger:          logger,
	}
}

// AuthenticateClient validates the token and its session
func (h *Hub) AuthenticateClient(ctx context.Context, token string) (*ClientAuth, error) {
	if token == "" {
		return nil, xerrors.ErrUnauthorized
	}

	claims, err := h.validator.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if claims.AccountID == "" {
		return nil, xerrors.ErrUnauthorized
	}

	return &ClientAuth{
		AccountID: claims.AccountID,
		SessionID: claims.ID,
		Email:     claims.Email,
	}, nil
}

// RegisterHandler registers a message handler
func (h *Hub) RegisterHandler(handler MessageHandler) error {
	return h.handlerRegistry.Register(handler)
}

// HandleClientMessage processes a message from a client using registered handlers
func (h *Hub) HandleClientMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) error {
	handler, exists := h.handlerRegistry.GetHandler(msg.Type)
	if !exists {
		return nil // falls through to the client's built-in handling
	}

	return handler.HandleMessage(ctx, client, msg)
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.accountID] == nil {
		h.clients[client.accountID] = make(map[*Client]bool)
	}
	h.clients[client.accountID][client] = true

	// every client hears about its own account's activity until it opts out
	client.Subscribe(wstypes.ChannelActivity)
	client.Subscribe(wstypes.ChannelSystem)

	h.logger.Info("websocket client connected",
		zap.String("account_id", client.accountID),
		zap.String("session_id", client.sessionID),
		zap.Int("total", h.totalClients()),
	)

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"account_id": client.accountID,
		"session_id": client.sessionID,
		"channels":   []wstypes.ChannelType{wstypes.ChannelActivity, wstypes.ChannelSystem},
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.accountID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			client.Close()

			if len(clients) == 0 {
				delete(h.clients, client.accountID)
			}

			h.logger.Info("websocket client disconnected",
				zap.String("account_id", client.accountID),
				zap.String("session_id", client.sessionID),
				zap.Int("total", h.totalClients()),
			)
		}
	}
}

// BroadcastMessage delivers to the listed accounts, or to everyone when
// AccountIDs is nil.
func (h *Hub) BroadcastMessage(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if msg.AccountIDs == nil {
		for _, clients := range h.clients {
			for client := range clients {
				if client.IsSubscribed(msg.Channel) {
					client.SendMessage(msg.Message)
				}
			}
		}
		return
	}

	for _, accountID := range msg.AccountIDs {
		for client := range h.clients[accountID] {
			if client.IsSubscribed(msg.Channel) {
				client.SendMessage(msg.Message)
			}
		}
	}
}

func (h *Hub) GetConnectedClients(accountID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[accountID])
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClients()
}

// NotifyActivity tells an account's dashboards that an event was recorded
// or corrected. It never blocks the caller; when the queue is full the
// signal is dropped.
func (h *Hub) NotifyActivity(accountID string, e *event.Event) {
	msg := wstypes.NewMessage(wstypes.EventTypeActivityRecorded, wstypes.ActivityData{
		EventID:    e.ID,
		Kind:       string(e.Kind),
		PackCode:   e.PackCode,
		PackID:     e.PackID.String,
		CustomerID: e.CustomerID.String,
		Status:     e.Status,
		OccurredAt: e.OccurredAt,
	})
	h.enqueue(&BroadcastMessage{
		AccountIDs: []string{accountID},
		Channel:    wstypes.ChannelActivity,
		Message:    msg,
	})
}

// ForceLogout tells the clients of a closed session to go away
func (h *Hub) ForceLogout(accountID, sessionID, reason string) {
	msg := wstypes.NewMessage(wstypes.EventTypeForceLogout, wstypes.SessionEventData{
		SessionID: sessionID,
		Reason:    reason,
		Message:   "You have been logged out",
	})
	h.enqueue(&BroadcastMessage{
		AccountIDs: []string{accountID},
		Channel:    wstypes.ChannelSystem,
		Message:    msg,
	})
}

func (h *Hub) enqueue(msg *BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping message",
			zap.String("type", string(msg.Message.Type)),
		)
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for accountID, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
		delete(h.clients, accountID)
	}
}
