package idempotency

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type setCall struct {
	value string
	ttl   time.Duration
}

type fakeStore struct {
	data   map[string]string
	sets   []setCall
	getErr error
	nxErr  error
}

func newFakeStore() *fakeStore { return &fakeStore{data: map[string]string{}} }

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.nxErr != nil {
		return false, f.nxErr
	}
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = fmt.Sprint(value)
	f.sets = append(f.sets, setCall{value: fmt.Sprint(value), ttl: ttl})
	return true, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = fmt.Sprint(value)
	f.sets = append(f.sets, setCall{value: fmt.Sprint(value), ttl: ttl})
	return nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "siver:idempotency:" + scope + ":" + id
}

func noop(context.Context) error { return nil }

func TestRunClaimsThenMarksDone(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, 7*24*time.Hour)
	require.NoError(t, err)
	eventID := uuid.New()

	skipped, err := manager.Run(context.Background(), "catalog-release", eventID, noop)
	require.NoError(t, err)
	require.False(t, skipped)

	key := "siver:idempotency:evt:catalog-release:" + eventID.String()
	require.Equal(t, markDone, store.data[key])
	require.Equal(t, []setCall{
		{value: markProcessing, ttl: defaultLease},
		{value: markDone, ttl: 7 * 24 * time.Hour},
	}, store.sets)

	skipped, err = manager.Run(context.Background(), "catalog-release", eventID, func(context.Context) error {
		t.Fatal("handled event ran twice")
		return nil
	})
	require.NoError(t, err)
	require.True(t, skipped)
}

func TestRunLeaseNeverOutlivesTTL(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, time.Minute)
	require.NoError(t, err)

	_, err = manager.Run(context.Background(), "catalog-release", uuid.New(), noop)
	require.NoError(t, err)
	require.Equal(t, time.Minute, store.sets[0].ttl)
}

func TestRunDropsClaimOnFailure(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	boom := errors.New("database unavailable")
	skipped, err := manager.Run(context.Background(), "catalog-release", uuid.New(), func(context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.False(t, skipped)
	require.Empty(t, store.data)
}

func TestRunReportsInFlightClaim(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)
	eventID := uuid.New()

	_, err = manager.Run(context.Background(), "catalog-release", eventID, func(ctx context.Context) error {
		_, nested := manager.Run(ctx, "catalog-release", eventID, noop)
		require.ErrorIs(t, nested, ErrInFlight)
		return nil
	})
	require.NoError(t, err)

	// a different consumer has its own mark
	skipped, err := manager.Run(context.Background(), "audit", eventID, noop)
	require.NoError(t, err)
	require.False(t, skipped)
}

func TestRunTreatsLegacyMarkAsDone(t *testing.T) {
	store := newFakeStore()
	eventID := uuid.New()
	store.data["siver:idempotency:evt:catalog-release:"+eventID.String()] = "1"
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	skipped, err := manager.Run(context.Background(), "catalog-release", eventID, noop)
	require.NoError(t, err)
	require.True(t, skipped)
}

func TestRunStoreErrors(t *testing.T) {
	ctx := context.Background()

	store := newFakeStore()
	store.nxErr = errors.New("redis down")
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)
	_, err = manager.Run(ctx, "catalog-release", uuid.New(), noop)
	require.ErrorContains(t, err, "redis down")

	store = newFakeStore()
	eventID := uuid.New()
	store.data["siver:idempotency:evt:catalog-release:"+eventID.String()] = markDone
	store.getErr = errors.New("timeout")
	manager, err = NewManager(store, time.Hour)
	require.NoError(t, err)
	_, err = manager.Run(ctx, "catalog-release", eventID, noop)
	require.ErrorContains(t, err, "timeout")
}

func TestManagerArguments(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	require.Error(t, err)
	_, err = NewManager(newFakeStore(), -time.Second)
	require.Error(t, err)

	manager, err := NewManager(newFakeStore(), 0)
	require.NoError(t, err)
	_, err = manager.Run(context.Background(), "", uuid.New(), noop)
	require.Error(t, err)
	_, err = manager.Run(context.Background(), "catalog-release", uuid.Nil, noop)
	require.Error(t, err)
}
