package catalogrelease

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/siver-b2b-backend/internal/sellercatalog"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox/payloads"
)

type fakeReleaser struct {
	calls []uuid.UUID
	err   error
}

func (f *fakeReleaser) Release(ctx context.Context, orderID uuid.UUID) (*sellercatalog.ReleaseResult, error) {
	f.calls = append(f.calls, orderID)
	if f.err != nil {
		return nil, f.err
	}
	return &sellercatalog.ReleaseResult{OrderID: orderID, ItemsReleased: 1}, nil
}

type memoryStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]string{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "siver:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

func mustConsumer(t *testing.T, rel *fakeReleaser, store *memoryStore) *Consumer {
	t.Helper()
	manager, err := idempotency.NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	consumer, err := NewConsumer(rel, manager, nil, logger.New(logger.Options{
		ServiceName: "catalog-release-test",
		Level:       logger.ParseLevel("debug"),
		Output:      io.Discard,
	}))
	if err != nil {
		t.Fatalf("failed to build consumer: %v", err)
	}
	return consumer
}

func paidEnvelope(t *testing.T, eventID, orderID uuid.UUID) outbox.PayloadEnvelope {
	t.Helper()
	data, err := json.Marshal(payloads.OrderPaidEvent{OrderID: orderID, BuyerID: uuid.New(), PaidAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now(),
		Data:       data,
	}
}

func TestProcessReleasesPaidOrder(t *testing.T) {
	rel := &fakeReleaser{}
	consumer := mustConsumer(t, rel, newMemoryStore())
	orderID := uuid.New()

	if err := consumer.Process(context.Background(), enums.EventOrderPaid, paidEnvelope(t, uuid.New(), orderID)); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(rel.calls) != 1 || rel.calls[0] != orderID {
		t.Fatalf("expected release of %s, got %v", orderID, rel.calls)
	}
}

func TestProcessSkipsRedeliveredEvent(t *testing.T) {
	rel := &fakeReleaser{}
	consumer := mustConsumer(t, rel, newMemoryStore())
	envelope := paidEnvelope(t, uuid.New(), uuid.New())

	for i := 0; i < 2; i++ {
		if err := consumer.Process(context.Background(), enums.EventOrderPaid, envelope); err != nil {
			t.Fatalf("Process() #%d error: %v", i, err)
		}
	}
	if len(rel.calls) != 1 {
		t.Fatalf("expected a single release, got %d", len(rel.calls))
	}
}

func TestProcessIgnoresOtherEvents(t *testing.T) {
	rel := &fakeReleaser{}
	consumer := mustConsumer(t, rel, newMemoryStore())

	if err := consumer.Process(context.Background(), enums.EventOrderCreated, paidEnvelope(t, uuid.New(), uuid.New())); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(rel.calls) != 0 {
		t.Fatalf("expected no release for order_created")
	}
}

func TestProcessFailureClearsMarkForRetry(t *testing.T) {
	rel := &fakeReleaser{err: pkgerrors.New(pkgerrors.CodePersistenceFailure, "db down")}
	store := newMemoryStore()
	consumer := mustConsumer(t, rel, store)
	envelope := paidEnvelope(t, uuid.New(), uuid.New())

	err := consumer.Process(context.Background(), enums.EventOrderPaid, envelope)
	if err == nil {
		t.Fatalf("expected release error")
	}
	if !retryable(err) {
		t.Fatalf("persistence failures should be retried")
	}
	if len(store.keys) != 0 {
		t.Fatalf("expected idempotency mark cleared, got %v", store.keys)
	}

	rel.err = nil
	if err := consumer.Process(context.Background(), enums.EventOrderPaid, envelope); err != nil {
		t.Fatalf("retry error: %v", err)
	}
	if len(rel.calls) != 2 {
		t.Fatalf("expected release to run again, got %d calls", len(rel.calls))
	}
	if !retryable(idempotency.ErrInFlight) {
		t.Fatalf("an event claimed by another delivery should be nacked")
	}
}

func TestProcessRejectsMalformedEnvelope(t *testing.T) {
	rel := &fakeReleaser{}
	consumer := mustConsumer(t, rel, newMemoryStore())

	bad := outbox.PayloadEnvelope{EventID: "not-a-uuid", Data: []byte(`{}`)}
	if err := consumer.Process(context.Background(), enums.EventOrderPaid, bad); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	missing := outbox.PayloadEnvelope{EventID: uuid.NewString(), Data: []byte(`{}`)}
	if err := consumer.Process(context.Background(), enums.EventOrderPaid, missing); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	future := paidEnvelope(t, uuid.New(), uuid.New())
	future.Version = 9
	if err := consumer.Process(context.Background(), enums.EventOrderPaid, future); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for unknown version, got %v", err)
	}
	if len(rel.calls) != 0 {
		t.Fatalf("expected no release for malformed events")
	}
}

func TestHandleAcksAndNacks(t *testing.T) {
	orderID := uuid.New()
	raw, err := json.Marshal(paidEnvelope(t, uuid.New(), orderID))
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	msg := &pubsub.Message{ID: "m-1", Data: raw, Attributes: map[string]string{"event_type": string(enums.EventOrderPaid)}}

	ok := mustConsumer(t, &fakeReleaser{}, newMemoryStore())
	if !ok.handle(context.Background(), msg) {
		t.Fatalf("expected ack on success")
	}

	transient := mustConsumer(t, &fakeReleaser{err: errors.New("connection reset")}, newMemoryStore())
	if transient.handle(context.Background(), msg) {
		t.Fatalf("expected nack on transient failure")
	}

	permanent := mustConsumer(t, &fakeReleaser{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}, newMemoryStore())
	if !permanent.handle(context.Background(), msg) {
		t.Fatalf("expected ack when the order cannot be released")
	}

	garbage := &pubsub.Message{ID: "m-2", Data: []byte("not json")}
	if !ok.handle(context.Background(), garbage) {
		t.Fatalf("expected ack for undecodable messages")
	}
}

func TestRunRequiresSubscription(t *testing.T) {
	consumer := mustConsumer(t, &fakeReleaser{}, newMemoryStore())
	if err := consumer.Run(context.Background()); err == nil {
		t.Fatalf("expected error without subscription")
	}
}
