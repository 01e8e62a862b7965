package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound indicates an expired or unknown session id.
var ErrNotFound = errors.New("session not found")

const keyPrefix = "helpdesk:session:"

// Store keeps server-side session scopes in Redis, keyed by an opaque
// session id handed to the browser as a cookie. Login writes a whole new
// scope record, so no department state from a previous login can leak
// across sessions.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore builds a Redis-backed session store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Create persists the scope under a fresh session id.
func (s *Store) Create(ctx context.Context, scope Scope) (string, error) {
	payload, err := json.Marshal(scope)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	if err := s.client.Set(ctx, keyPrefix+id, payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return id, nil
}

// Get resolves a session id to its scope, refreshing the TTL.
func (s *Store) Get(ctx context.Context, id string) (*Scope, error) {
	payload, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	var scope Scope
	if err := json.Unmarshal(payload, &scope); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	_ = s.client.Expire(ctx, keyPrefix+id, s.ttl).Err()
	return &scope, nil
}

// Delete removes the session unconditionally.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, keyPrefix+id).Err()
}
