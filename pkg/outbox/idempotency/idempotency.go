package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/siver-b2b-backend/pkg/redis"
)

const (
	markProcessing = "processing"
	markDone       = "done"

	// defaultLease caps how long a crashed delivery keeps an event claimed.
	defaultLease = 5 * time.Minute
)

// ErrInFlight means another delivery of the same event holds the claim.
// Consumers should nack so the event comes back after the lease.
var ErrInFlight = errors.New("event is being processed by another delivery")

// Manager runs event handlers at most once per (consumer, event id).
//
// An event is first claimed with a short lease, then marked done for ttl once
// the handler succeeds. A failed handler drops the claim. Keys look like
// <prefix>:idempotency:evt:<consumer>:<event_id>.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	lease time.Duration
}

// NewManager keeps done marks for ttl. A zero ttl keeps them forever.
func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	lease := defaultLease
	if ttl > 0 {
		lease = min(lease, ttl)
	}
	return &Manager{store: store, ttl: ttl, lease: lease}, nil
}

// Run calls fn unless the event was already handled, in which case it reports
// skipped. fn errors are returned as is.
func (m *Manager) Run(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) (skipped bool, err error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}

	claimed, err := m.store.SetNX(ctx, key, markProcessing, m.lease)
	if err != nil {
		return false, fmt.Errorf("claim event %s: %w", eventID, err)
	}
	if !claimed {
		return m.existing(ctx, key)
	}

	if err := fn(ctx); err != nil {
		if delErr := m.store.Del(ctx, key); delErr != nil {
			return false, errors.Join(err, fmt.Errorf("drop claim: %w", delErr))
		}
		return false, err
	}
	if err := m.store.Set(ctx, key, markDone, m.ttl); err != nil {
		return false, fmt.Errorf("mark event %s done: %w", eventID, err)
	}
	return false, nil
}

// existing inspects a mark that was already present. Marks written by older
// releases hold other values and count as done.
func (m *Manager) existing(ctx context.Context, key string) (bool, error) {
	state, err := m.store.Get(ctx, key)
	if err != nil && !errors.Is(err, goredis.Nil) {
		return false, fmt.Errorf("read event mark: %w", err)
	}
	switch state {
	case "", markProcessing:
		return false, ErrInFlight
	default:
		return true, nil
	}
}

func (m *Manager) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey("evt:"+consumer, eventID.String()), nil
}
