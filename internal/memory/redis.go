package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/disc-herniation-assistant/internal/domain"
)

// RedisStore keeps each session as a Redis list so several server processes
// share one memory. Sessions expire after the configured TTL of inactivity.
type RedisStore struct {
	redis        *redis.Client
	ttl          time.Duration
	keyPrefix    string
	maxExchanges int
	logger       *logrus.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg domain.MemoryConfig, logger *logrus.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.WithField("addr", opts.Addr).Info("Redis conversation memory connected")

	return NewRedisStoreWithClient(client, cfg.TTL, cfg.KeyPrefix, cfg.MaxExchanges, logger), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration, keyPrefix string, maxExchanges int, logger *logrus.Logger) *RedisStore {
	return &RedisStore{
		redis:        client,
		ttl:          ttl,
		keyPrefix:    keyPrefix,
		maxExchanges: windowSize(maxExchanges),
		logger:       logger,
	}
}

// sessionKey hashes the session key so patient names never appear in Redis.
func (s *RedisStore) sessionKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return s.keyPrefix + hex.EncodeToString(hash[:16])
}

// History returns the session's exchanges
func (s *RedisStore) History(ctx context.Context, key string) ([]Exchange, error) {
	values, err := s.redis.LRange(ctx, s.sessionKey(key), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation memory: %w", err)
	}

	exchanges := make([]Exchange, 0, len(values))
	for _, v := range values {
		var ex Exchange
		if err := json.Unmarshal([]byte(v), &ex); err != nil {
			s.logger.WithError(err).Warn("Skipping unreadable memory entry")
			continue
		}
		exchanges = append(exchanges, ex)
	}
	return exchanges, nil
}

// Append adds an exchange, trims the list to the window and refreshes the
// session TTL.
func (s *RedisStore) Append(ctx context.Context, key string, ex Exchange) error {
	data, err := json.Marshal(ex)
	if err != nil {
		return fmt.Errorf("failed to marshal exchange: %w", err)
	}

	rkey := s.sessionKey(key)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, rkey, data)
	pipe.LTrim(ctx, rkey, -int64(s.maxExchanges), -1)
	if s.ttl > 0 {
		pipe.Expire(ctx, rkey, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append conversation memory: %w", err)
	}
	return nil
}

// Reset deletes the session
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.redis.Del(ctx, s.sessionKey(key)).Err()
}

// Close closes the Redis client
func (s *RedisStore) Close() error {
	return s.redis.Close()
}
