package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 55 * time.Minute

var (
	// ErrLockHeld means another instance owns the current cycle.
	ErrLockHeld = errors.New("cron lock held by another instance")
	// ErrLeaseExpired means the lease ran out before Release and the key
	// was left untouched.
	ErrLeaseExpired = errors.New("cron lease expired before release")
)

// Lease is one successful acquisition.
type Lease interface {
	Release(ctx context.Context) error
}

// Lock hands out at most one live lease at a time across all instances.
type Lock interface {
	Acquire(ctx context.Context) (Lease, error)
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
}

// RedisLock stores a random token under key with SETNX. Keep the ttl below
// the cron interval so a crashed holder cannot block the next cycle.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
}

func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("redis client required for lock")
	case key == "":
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

// Acquire returns ErrLockHeld when the key is taken.
func (l *RedisLock) Acquire(ctx context.Context) (Lease, error) {
	token := uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", l.key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &redisLease{lock: l, token: token}, nil
}

type redisLease struct {
	lock     *RedisLock
	token    string
	released bool
}

// Release deletes the key only if it still holds this lease's token.
func (r *redisLease) Release(ctx context.Context) error {
	if r.released {
		return nil
	}
	r.released = true

	deleted, err := r.lock.store.CompareAndDelete(ctx, r.lock.key, r.token)
	if err != nil {
		return fmt.Errorf("release lock %s: %w", r.lock.key, err)
	}
	if !deleted {
		return ErrLeaseExpired
	}
	return nil
}
