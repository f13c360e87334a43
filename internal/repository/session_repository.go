package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/kelurahan-portal/internal/models"
)

// SessionKeyPrefix namespaces gateway sessions in Redis.
const SessionKeyPrefix = "portal:session:"

// ErrSessionNotFound is returned when a session id is unknown or expired.
var ErrSessionNotFound = errors.New("session not found")

// RedisSessionRepository stores sessions as JSON under portal:session:<id>.
type RedisSessionRepository struct {
	client *redis.Client
}

// NewRedisSessionRepository constructs the Redis-backed session store.
func NewRedisSessionRepository(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

// Save writes the session with ttl. A non-positive ttl is rejected since the key would never expire.
func (r *RedisSessionRepository) Save(ctx context.Context, session *models.Session, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("save session %s: non-positive ttl", session.ID)
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, SessionKeyPrefix+session.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Get loads a session by id.
func (r *RedisSessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	raw, err := r.client.Get(ctx, SessionKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, SessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

// MemorySessionRepository keeps sessions in process. Used when Redis is disabled and in tests.
type MemorySessionRepository struct {
	mu       sync.Mutex
	now      func() time.Time
	sessions map[string]memorySession
}

type memorySession struct {
	session   models.Session
	expiresAt time.Time
}

// NewMemorySessionRepository constructs the in-process session store.
func NewMemorySessionRepository(now func() time.Time) *MemorySessionRepository {
	if now == nil {
		now = time.Now
	}
	return &MemorySessionRepository{now: now, sessions: make(map[string]memorySession)}
}

// Save stores a copy of the session until ttl elapses.
func (r *MemorySessionRepository) Save(_ context.Context, session *models.Session, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("save session %s: non-positive ttl", session.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = memorySession{session: *session, expiresAt: r.now().Add(ttl)}
	return nil
}

// Get returns the session or ErrSessionNotFound once it expired.
func (r *MemorySessionRepository) Get(_ context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !r.now().Before(entry.expiresAt) {
		delete(r.sessions, id)
		return nil, ErrSessionNotFound
	}
	session := entry.session
	return &session, nil
}

// Delete removes a session.
func (r *MemorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	return nil
}
