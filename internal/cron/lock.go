package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(name string) string
}

// RedisLock keeps overlapping workers from running the same job twice.
type RedisLock struct {
	store lockStore
	ttl   time.Duration
}

// NewRedisLock builds a lock with the given hold TTL.
func NewRedisLock(store lockStore, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, fmt.Errorf("lock store required")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisLock{store: store, ttl: ttl}, nil
}

// Acquire takes the named lock. The returned release function only
// deletes the key while this holder's token is still in place.
func (l *RedisLock) Acquire(ctx context.Context, name string) (release func(), acquired bool, err error) {
	key := l.store.LockKey(name)
	token := uuid.NewString()

	ok, err := l.store.SetNX(ctx, key, token, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, false, nil
	}

	release = func() {
		current, err := l.store.Get(context.Background(), key)
		if err != nil || current != token {
			return
		}
		_ = l.store.Del(context.Background(), key)
	}
	return release, true, nil
}
