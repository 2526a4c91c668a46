package repository

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "", nil)
	ctx := context.Background()

	assert.NoError(t, repo.Release(ctx, "k", "token"))
	assert.NoError(t, repo.PublishNotification(ctx, "u1", map[string]string{"m": "x"}))
	assert.NoError(t, repo.Ping(ctx))
	assert.NoError(t, repo.Close())

	_, _, err := repo.Acquire(ctx, "k", time.Minute)
	assert.Error(t, err)
}

func TestCacheRepositoryReportsUnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	repo := NewCacheRepository(client, "reports:notifications", nil)
	defer repo.Close()

	token, ok, err := repo.Acquire(context.Background(), "reports:inflight:t:d", time.Minute)
	require.Error(t, err)
	assert.False(t, ok)
	assert.Empty(t, token)
	assert.Error(t, repo.PublishNotification(context.Background(), "u1", "x"))
}

// markerStore answers SET NX and the release script from memory so the
// client never dials.
type markerStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMarkerStore() *markerStore {
	return &markerStore{values: map[string]string{}}
}

func (s *markerStore) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, fmt.Errorf("dial disabled")
	}
}

func (s *markerStore) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		args := cmd.Args()
		switch cmd.Name() {
		case "set":
			key, value := fmt.Sprint(args[1]), fmt.Sprint(args[2])
			_, exists := s.values[key]
			if !exists {
				s.values[key] = value
			}
			cmd.(*redis.BoolCmd).SetVal(!exists)
		case "evalsha", "eval":
			key, token := fmt.Sprint(args[3]), fmt.Sprint(args[4])
			var deleted int64
			if s.values[key] == token {
				delete(s.values, key)
				deleted = 1
			}
			cmd.(*redis.Cmd).SetVal(deleted)
		default:
			cmd.SetErr(fmt.Errorf("unexpected command %s", cmd.Name()))
		}
		return cmd.Err()
	}
}

func (s *markerStore) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (s *markerStore) expire(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

func TestCacheRepositoryReleaseRequiresOwnerToken(t *testing.T) {
	store := newMarkerStore()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	client.AddHook(store)
	repo := NewCacheRepository(client, "", nil)
	defer repo.Close()

	ctx := context.Background()
	key := "reports:inflight:t:progress"

	stale, ok, err := repo.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, stale)

	_, ok, err = repo.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	store.expire(key)
	current, ok, err := repo.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, stale, current)

	require.NoError(t, repo.Release(ctx, key, stale))
	_, ok, err = repo.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "a stale token must not clear the current marker")

	require.NoError(t, repo.Release(ctx, key, current))
	_, ok, err = repo.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNotificationChannel(t *testing.T) {
	assert.Equal(t, "reports:notifications:u1", NotificationChannel("", "u1"))
	assert.Equal(t, "custom:u2", NotificationChannel("custom", "u2"))
}
