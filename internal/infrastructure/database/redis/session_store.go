// internal/infrastructure/database/redis/session_store.go
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

const sessionKeyPrefix = "session:"

// SessionStore records live session ids so logout can revoke a token
// before it expires
type SessionStore struct {
	client *Client
}

// NewSessionStore creates a session store on top of the client
func NewSessionStore(client *Client) *SessionStore {
	return &SessionStore{client: client}
}

// Save registers a session for ttl
func (s *SessionStore) Save(ctx context.Context, sessionID string, userID uint, ttl time.Duration) error {
	if err := s.client.Redis.Set(ctx, sessionKeyPrefix+sessionID, strconv.FormatUint(uint64(userID), 10), ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Exists reports whether a session is still live
func (s *SessionStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Redis.Exists(ctx, sessionKeyPrefix+sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return n > 0, nil
}

// Delete revokes a session. Deleting an unknown session is not an error.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Redis.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
