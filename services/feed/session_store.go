package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// SessionStore persists serialized feeds for the lifetime of a client session.
// Implementations swallow their own failures: a failed Get is a miss and a
// failed Set is dropped.
type SessionStore interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

const sessionKeyPrefix = "feed:session:"

// sessionKey scopes a feed cache key to one client session.
func sessionKey(sessionID, cacheKey string) string {
	if sessionID == "" {
		sessionID = "anonymous"
	}
	return fmt.Sprintf("%s%s:%s", sessionKeyPrefix, sessionID, cacheKey)
}

// RedisSessionStore keeps session feeds in Redis with a sliding TTL.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl, logger: logger.Named("feed.session")}
}

func (s *RedisSessionStore) Get(ctx context.Context, key string) (string, bool) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		s.logger.Warn("session feed read failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return val, true
}

func (s *RedisSessionStore) Set(ctx context.Context, key, value string) {
	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		s.logger.Warn("session feed write failed", zap.String("key", key), zap.Error(err))
	}
}
