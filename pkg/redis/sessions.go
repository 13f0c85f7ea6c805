package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned when a session expired or never existed
var ErrSessionNotFound = errors.New("session not found")

// SessionStore is a TTL'd KV store for in-progress chat registrations: the
// collected form fields live in Redis until the submission completes or the
// participant walks away. Expiry is Redis-native, no sweeper.
type SessionStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewSessionStore creates a session store with the given idle TTL
func NewSessionStore(client redis.Cmdable, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func sessionKey(accountID int64) string {
	return fmt.Sprintf("session:%d", accountID)
}

// Put stores the session state and resets its TTL
func (s *SessionStore) Put(ctx context.Context, accountID int64, state interface{}) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(accountID), data, s.ttl).Err()
}

// Get loads the session state into dst
func (s *SessionStore) Get(ctx context.Context, accountID int64, dst interface{}) error {
	data, err := s.client.Get(ctx, sessionKey(accountID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		return err
	}
	return json.Unmarshal(data, dst)
}

// Touch extends the session TTL without changing its state
func (s *SessionStore) Touch(ctx context.Context, accountID int64) error {
	ok, err := s.client.Expire(ctx, sessionKey(accountID), s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}

// Drop removes the session
func (s *SessionStore) Drop(ctx context.Context, accountID int64) error {
	return s.client.Del(ctx, sessionKey(accountID)).Err()
}
