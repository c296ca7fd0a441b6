package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps one State per session. Load of an unknown or expired
// session returns Idle.
type Store interface {
	Load(ctx context.Context, sessionID string) (State, error)
	Save(ctx context.Context, sessionID string, state State) error
	Delete(ctx context.Context, sessionID string) error
}

type memoryEntry struct {
	state   State
	expires time.Time
}

// MemoryStore is an in-process Store for single-instance deployments.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryStore) Load(ctx context.Context, sessionID string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[sessionID]
	if !ok {
		return Idle(), nil
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, sessionID)
		return Idle(), nil
	}
	return e.state, nil
}

func (m *MemoryStore) Save(ctx context.Context, sessionID string, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state.Phase == PhaseIdle {
		delete(m.entries, sessionID)
		return nil
	}
	m.entries[sessionID] = memoryEntry{state: state, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, sessionID)
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

// RedisClient is the subset of redis commands the store uses.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type redisAdapter struct {
	client *redis.Client
}

// NewRedisClient adapts a go-redis client to RedisClient.
func NewRedisClient(client *redis.Client) RedisClient {
	return &redisAdapter{client: client}
}

func (a *redisAdapter) Get(ctx context.Context, key string) (string, error) {
	return a.client.Get(ctx, key).Result()
}

func (a *redisAdapter) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return a.client.Set(ctx, key, value, expiration).Err()
}

func (a *redisAdapter) Del(ctx context.Context, keys ...string) error {
	return a.client.Del(ctx, keys...).Err()
}

const redisKeyPrefix = "plantcare:session:"

// RedisStore keeps session state in Redis as JSON with a TTL, so several
// server instances can serve the same browser session.
type RedisStore struct {
	client RedisClient
	ttl    time.Duration
}

func NewRedisStore(client RedisClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(sessionID string) string {
	return redisKeyPrefix + sessionID
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (State, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID))
	if errors.Is(err, redis.Nil) {
		return Idle(), nil
	}
	if err != nil {
		return Idle(), fmt.Errorf("loading session state: %w", err)
	}

	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return Idle(), fmt.Errorf("decoding session state: %w", err)
	}
	if state.Phase == "" {
		return Idle(), nil
	}
	return state, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, state State) error {
	if state.Phase == PhaseIdle {
		return s.Delete(ctx, sessionID)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding session state: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sessionID), data, s.ttl); err != nil {
		return fmt.Errorf("saving session state: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)); err != nil {
		return fmt.Errorf("deleting session state: %w", err)
	}
	return nil
}
