package websocket

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pillflow-service/internal/domain/event"
	wstypes "pillflow-service/internal/domain/websocket"
	xerrors "pillflow-service/internal/pkg/errors"
	"pillflow-service/internal/pkg/jwt"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type tokenTable map[string]string

func (t tokenTable) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	accountID, ok := t[token]
	if !ok {
		return nil, xerrors.ErrSessionExpired
	}
	claims := &jwt.Claims{AccountID: accountID}
	claims.ID = "jti-" + token
	return claims, nil
}

var testUpgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(tokenTable{"t1": "acc-1", "t2": "acc-2"}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, err := hub.AuthenticateClient(r.Context(), r.URL.Query().Get("token"))
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, auth)
		hub.Register <- client
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(srv.Close)

	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) *wstypes.WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := wstypes.ParseMessage(data)
	require.NoError(t, err)
	return msg
}

func TestNotifyActivityReachesOnlyOwnAccount(t *testing.T) {
	hub, srv := startHub(t)

	own := dial(t, srv, "t1")
	other := dial(t, srv, "t2")
	assert.Equal(t, wstypes.EventTypeConnected, readMessage(t, own).Type)
	assert.Equal(t, wstypes.EventTypeConnected, readMessage(t, other).Type)

	require.Eventually(t, func() bool { return hub.TotalClients() == 2 }, time.Second, 10*time.Millisecond)

	hub.NotifyActivity("acc-1", &event.Event{
		ID:       "evt-1",
		Kind:     event.KindCollection,
		PackCode: "WP-001",
		PackID:   sql.NullString{String: "pack-1", Valid: true},
		Status:   event.StatusCompleted,
	})

	msg := readMessage(t, own)
	assert.Equal(t, wstypes.EventTypeActivityRecorded, msg.Type)

	raw, err := json.Marshal(msg.Data)
	require.NoError(t, err)
	var data wstypes.ActivityData
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Equal(t, "evt-1", data.EventID)
	assert.Equal(t, "pack-1", data.PackID)

	require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = other.ReadMessage()
	assert.Error(t, err)
}

func TestUnsubscribedClientMissesActivity(t *testing.T) {
	hub, srv := startHub(t)

	conn := dial(t, srv, "t1")
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(wstypes.NewMessage(wstypes.EventTypeUnsubscribe, wstypes.UnsubscribeRequest{
		Channels: []wstypes.ChannelType{wstypes.ChannelActivity},
	})))
	assert.Equal(t, wstypes.EventTypeUnsubscribe, readMessage(t, conn).Type)

	hub.NotifyActivity("acc-1", &event.Event{ID: "evt-2", Kind: event.KindCheck})
	hub.ForceLogout("acc-1", "jti-t1", "logged out")

	// the system message arrives, the activity one was filtered
	assert.Equal(t, wstypes.EventTypeForceLogout, readMessage(t, conn).Type)
}

func TestPingPong(t *testing.T) {
	_, srv := startHub(t)

	conn := dial(t, srv, "t1")
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(wstypes.NewMessage(wstypes.EventTypePing, nil)))
	assert.Equal(t, wstypes.EventTypePong, readMessage(t, conn).Type)
}

func TestAuthenticateClientRejectsUnknownToken(t *testing.T) {
	hub := NewHub(tokenTable{}, zap.NewNop())

	_, err := hub.AuthenticateClient(context.Background(), "nope")
	assert.ErrorIs(t, err, xerrors.ErrSessionExpired)

	_, err = hub.AuthenticateClient(context.Background(), "")
	assert.ErrorIs(t, err, xerrors.ErrUnauthorized)
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, srv := startHub(t)

	conn := dial(t, srv, "t1")
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.GetConnectedClients("acc-1") == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.GetConnectedClients("acc-1") == 0 }, time.Second, 10*time.Millisecond)
}

type stubHandler struct{ events []wstypes.EventType }

func (s stubHandler) HandleMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) error {
	return nil
}

func (s stubHandler) SupportedEvents() []wstypes.EventType { return s.events }

func TestRegistryRejectsClaimedEvent(t *testing.T) {
	r := NewHandlerRegistry()
	require.NoError(t, r.Register(stubHandler{events: []wstypes.EventType{wstypes.EventTypeActivityRecent}}))

	err := r.Register(stubHandler{events: []wstypes.EventType{wstypes.EventTypePing, wstypes.EventTypeActivityRecent}})
	assert.Error(t, err)

	_, ok := r.GetHandler(wstypes.EventTypePing)
	assert.False(t, ok)
	_, ok = r.GetHandler(wstypes.EventTypeActivityRecent)
	assert.True(t, ok)
}
