package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// SessionDuration is 7 days
	SessionDuration = 7 * 24 * time.Hour
	// SessionKeyPrefix is the Redis key prefix for sessions
	SessionKeyPrefix = "session:"
	// UserSessionKeyPrefix is the Redis key prefix for user->session mapping
	UserSessionKeyPrefix = "user_session:"
)

// SessionManager issues and validates opaque session tokens backed by Redis.
// Handlers depend on it through an interface so tests can swap in a double.
type SessionManager struct {
	rdb *redis.Client
}

func NewSessionManager(rdb *redis.Client) *SessionManager {
	return &SessionManager{rdb: rdb}
}

// Create starts a new session for a user. Any existing session for the same
// user is invalidated first so the 7-day timer always resets from this login.
func (m *SessionManager) Create(ctx context.Context, userID string) (string, error) {
	m.InvalidateUserSessions(ctx, userID)

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	if err := m.rdb.Set(ctx, SessionKeyPrefix+token, userID, SessionDuration).Err(); err != nil {
		return "", err
	}
	if err := m.rdb.Set(ctx, UserSessionKeyPrefix+userID, token, SessionDuration).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Validate resolves a session token to a user id. An empty, unknown or
// expired token is simply "not authenticated", never an error.
func (m *SessionManager) Validate(ctx context.Context, token string) (string, bool, error) {
	if token == "" {
		return "", false, nil
	}

	userID, err := m.rdb.Get(ctx, SessionKeyPrefix+token).Result()
	if err != nil {
		return "", false, nil
	}
	return userID, true, nil
}

// Invalidate removes a session from Redis.
func (m *SessionManager) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	userID, err := m.rdb.Get(ctx, SessionKeyPrefix+token).Result()
	if err == nil && userID != "" {
		m.rdb.Del(ctx, UserSessionKeyPrefix+userID)
	}
	return m.rdb.Del(ctx, SessionKeyPrefix+token).Err()
}

// InvalidateUserSessions drops the active session for a user (used on login
// and when the password changes).
func (m *SessionManager) InvalidateUserSessions(ctx context.Context, userID string) error {
	token, err := m.rdb.Get(ctx, UserSessionKeyPrefix+userID).Result()
	if err == nil && token != "" {
		m.rdb.Del(ctx, SessionKeyPrefix+token)
	}
	return m.rdb.Del(ctx, UserSessionKeyPrefix+userID).Err()
}
