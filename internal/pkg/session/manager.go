// internal/pkg/session/manager.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	xerrors "pillflow-service/internal/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// Manager keeps sessions in Redis. A token whose session is gone is
// rejected even if its signature is still valid.
type Manager struct {
	client *redis.Client
}

func NewManager(client *redis.Client) *Manager {
	return &Manager{client: client}
}

// CreateSession stores a new session until it expires
func (m *Manager) CreateSession(ctx context.Context, session *SessionData) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := m.client.Set(ctx, m.sessionKey(session.AccountID, session.JTI), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session in redis: %w", err)
	}

	return nil
}

// GetSession returns ErrSessionExpired when the session is missing
func (m *Manager) GetSession(ctx context.Context, accountID, jti string) (*SessionData, error) {
	data, err := m.client.Get(ctx, m.sessionKey(accountID, jti)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, xerrors.ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session SessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

// InvalidateSession removes a single session
func (m *Manager) InvalidateSession(ctx context.Context, accountID, jti string) error {
	return m.client.Del(ctx, m.sessionKey(accountID, jti)).Err()
}

// InvalidateAllSessions removes every session of an account
func (m *Manager) InvalidateAllSessions(ctx context.Context, accountID string) error {
	iter := m.client.Scan(ctx, 0, fmt.Sprintf("session:%s:*", accountID), 0).Iterator()
	for iter.Next(ctx) {
		if err := m.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete session %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}

func (m *Manager) sessionKey(accountID, jti string) string {
	return fmt.Sprintf("session:%s:%s", accountID, jti)
}
