package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions as JSON blobs with a TTL. Per-session
// serialization still comes from an in-process keyed mutex, which is
// sufficient for the single-gateway deployment this targets; the Redis
// backend buys session survival across a gateway restart mid-engagement,
// not multi-node coordination.
type RedisStore struct {
	client *redis.Client
	locks  *keyedMutex

	ttl       time.Duration
	prefix    string
	opTimeout time.Duration
}

// RedisOption is a functional option for configuring RedisStore.
type RedisOption func(*RedisStore)

// WithTTL sets the session key TTL.
func WithTTL(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = d
	}
}

// WithKeyPrefix sets the key namespace prefix.
func WithKeyPrefix(p string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = p
	}
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int, opts ...RedisOption) (*RedisStore, error) {
	s := &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		locks:     newKeyedMutex(),
		ttl:       24 * time.Hour,
		prefix:    "baitline:session:",
		opTimeout: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		_ = s.client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return s, nil
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + sessionID
}

// Get retrieves a session by ID. Returns nil, nil if not found.
func (s *RedisStore) Get(sessionID string) (*Session, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	sess := &Session{}
	if err := json.Unmarshal(data, sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return sess, nil
}

// Update runs fn under the session's lock, creating the session if needed,
// then writes it back with a refreshed TTL.
func (s *RedisStore) Update(sessionID string, fn func(*Session)) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sess, err := s.Get(sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		sess = newSession(sessionID)
	}

	fn(sess)

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sessionID, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
	defer cancel()
	if err := s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a session.
func (s *RedisStore) Delete(sessionID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
	defer cancel()

	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() {
	_ = s.client.Close()
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)
