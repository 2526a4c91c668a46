package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// InFlightGuard marks a (tag, dataset) pair as having a submission on the wire.
// Acquire hands back an owner token; Release only removes the marker while that
// token still owns it, so a caller whose marker expired cannot drop a newer one.
type InFlightGuard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)
	Release(ctx context.Context, key, token string) error
}

// InFlightKey builds the guard key for a dataset under tag.
func InFlightKey(tag, dataset string) string {
	return fmt.Sprintf("reports:inflight:%s:%s", tag, dataset)
}

// MemoryInFlightGuard is a process-local guard used when Redis is disabled.
type MemoryInFlightGuard struct {
	mu    sync.Mutex
	items *gocache.Cache
}

// NewMemoryInFlightGuard constructs an in-process guard.
func NewMemoryInFlightGuard() *MemoryInFlightGuard {
	return &MemoryInFlightGuard{items: gocache.New(gocache.NoExpiration, time.Minute)}
}

// Acquire implements InFlightGuard.
func (g *MemoryInFlightGuard) Acquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	token := uuid.NewString()
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.items.Add(key, token, ttl); err != nil {
		return "", false, nil
	}
	return token, true, nil
}

// Release implements InFlightGuard.
func (g *MemoryInFlightGuard) Release(_ context.Context, key, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if owner, ok := g.items.Get(key); ok && owner == token {
		g.items.Delete(key)
	}
	return nil
}
