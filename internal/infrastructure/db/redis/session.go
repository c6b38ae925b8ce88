package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pageguard/visitauth/internal/core/domain"
)

const defaultSessionTTL = 30 * time.Minute

// SessionStore hands out per-client session views backed by Redis.
// Key format: sess:<session_id>:<key>. The TTL is refreshed on every write,
// so a session lives as long as it keeps being used; pending confirmation
// state expires with the session, never on its own clock.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{client: client, ttl: ttl}
}

// Session returns the key-value view scoped to the given session identifier.
func (s *SessionStore) Session(id string) *Session {
	return &Session{client: s.client, id: id, ttl: s.ttl}
}

// Session implements ports.Session over a single client's keyspace slice.
type Session struct {
	client *redis.Client
	id     string
	ttl    time.Duration
}

func (s *Session) GetString(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrSessionKeyMissing
	}
	if err != nil {
		return "", fmt.Errorf("session get %q: %w", key, err)
	}
	return val, nil
}

func (s *Session) SetString(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("session set %q: %w", key, err)
	}
	return nil
}

func (s *Session) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("session remove %q: %w", key, err)
	}
	return nil
}

func (s *Session) ContainsKey(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("session exists %q: %w", key, err)
	}
	return n > 0, nil
}

func (s *Session) key(k string) string {
	return fmt.Sprintf("sess:%s:%s", s.id, k)
}
