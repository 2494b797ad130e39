package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces pending keys.
const DefaultKeyPrefix = "leadbot:pending:"

// RedisStore keeps interactions in Redis so several instances share them.
// Expiry is enforced by the key TTL.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps client. Empty prefix and non-positive ttl select defaults.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("pending: parse redis url: %w", err)
	}
	return redis.NewClient(opt), nil
}

func (s *RedisStore) key(userID string) string { return s.prefix + userID }

// Set stores it with the configured TTL.
func (s *RedisStore) Set(ctx context.Context, userID string, it Interaction) error {
	payload, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("pending: encode: %w", err)
	}
	if err := s.client.Set(ctx, s.key(userID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("pending: redis set: %w", err)
	}
	return nil
}

// Get returns the entry of userID; a missing or expired key reports false.
func (s *RedisStore) Get(ctx context.Context, userID string) (Interaction, bool, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Interaction{}, false, nil
	}
	if err != nil {
		return Interaction{}, false, fmt.Errorf("pending: redis get: %w", err)
	}
	var it Interaction
	if err := json.Unmarshal(raw, &it); err != nil {
		return Interaction{}, false, fmt.Errorf("pending: decode: %w", err)
	}
	return it, true, nil
}

// Clear deletes the entry of userID.
func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("pending: redis del: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
