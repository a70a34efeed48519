package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"almacen/internal/core/apperror"
	"almacen/internal/domain/checkout"
)

// DefaultLockTTL bounds how long a crashed checkout keeps its user locked.
const DefaultLockTTL = 30 * time.Second

// Locker is a distributed mutex on Redis. A key held elsewhere fails fast
// with CONFLICT so a double-submitted checkout is rejected, not queued.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
}

var _ checkout.Locker = (*Locker)(nil)

// NewLocker creates a locker. ttl <= 0 selects DefaultLockTTL.
func NewLocker(rdb redis.UniversalClient, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Locker{client: redislock.New(rdb), ttl: ttl}
}

// Lock obtains key for the configured TTL.
func (l *Locker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, "almacen:lock:"+key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, apperror.NewConflict("operation already in progress").
			WithDetail("lock", key)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	return func(ctx context.Context) error {
		err := lock.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			// expired before release; nothing to undo
			return nil
		}
		return err
	}, nil
}
