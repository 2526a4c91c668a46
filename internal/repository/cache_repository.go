package repository

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes KEYS[1] only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// CacheRepository wraps the Redis primitives used by the report panel:
// in-flight markers and notification pub/sub.
type CacheRepository struct {
	client        *redis.Client
	logger        *zap.Logger
	notifyChannel string
}

// NewCacheRepository constructs a cache repository. A nil client turns every
// operation into a no-op or miss.
func NewCacheRepository(client *redis.Client, notifyChannel string, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, logger: logger, notifyChannel: notifyChannel}
}

// Acquire sets key to a fresh owner token only when absent. The token is
// returned when this caller now holds the key.
func (r *CacheRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if r.client == nil {
		return "", false, fmt.Errorf("redis acquire %s: client not configured", key)
	}
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release deletes key if token still owns it. A marker that expired and was
// taken by another caller is left alone.
func (r *CacheRepository) Release(ctx context.Context, key, token string) error {
	if r.client == nil {
		return nil
	}
	if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil {
		return fmt.Errorf("redis release %s: %w", key, err)
	}
	return nil
}

// PublishNotification publishes payload on the per-user notification channel.
func (r *CacheRepository) PublishNotification(ctx context.Context, userID string, payload interface{}) error {
	if r.client == nil {
		r.logger.Debug("notification dropped, redis disabled", zap.String("user_id", userID))
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	channel := NotificationChannel(r.notifyChannel, userID)
	if err := r.client.Publish(ctx, channel, body).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (r *CacheRepository) Ping(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// NotificationChannel returns the pub/sub channel for userID under prefix.
func NotificationChannel(prefix, userID string) string {
	if prefix == "" {
		prefix = "reports:notifications"
	}
	return prefix + ":" + userID
}
