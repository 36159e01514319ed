package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
)

func newOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	for _, stmt := range []string{
		`CREATE TABLE outbox_events (
			id text PRIMARY KEY,
			event_type text NOT NULL,
			aggregate_type text NOT NULL,
			aggregate_id text NOT NULL,
			payload blob NOT NULL,
			created_at datetime,
			published_at datetime,
			attempt_count integer NOT NULL DEFAULT 0,
			last_error text
		)`,
		`CREATE TABLE outbox_dlq (
			id text PRIMARY KEY,
			event_id text NOT NULL UNIQUE,
			event_type text NOT NULL,
			aggregate_type text NOT NULL,
			aggregate_id text NOT NULL,
			payload_json blob NOT NULL,
			error_reason text NOT NULL,
			error_message text,
			attempt_count integer NOT NULL DEFAULT 0,
			failed_at datetime
		)`,
	} {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func orderEvent(orderID uuid.UUID) DomainEvent {
	return DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Actor:         &ActorRef{UserID: uuid.New(), Role: string(enums.RoleSeller)},
		Data:          map[string]any{"order_id": orderID.String(), "total": "1250.00"},
	}
}

func TestEmitUsesRowIDAsEventID(t *testing.T) {
	conn := newOutboxDB(t)
	service := NewService(NewRepository(conn), logger.Nop())
	occurred := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	event := orderEvent(uuid.New())
	event.OccurredAt = occurred
	require.NoError(t, service.Emit(context.Background(), conn, event))

	var row models.OutboxEvent
	require.NoError(t, conn.First(&row).Error)
	require.Equal(t, enums.EventOrderCreated, row.EventType)
	require.Equal(t, event.AggregateID, row.AggregateID)

	envelope, err := DecodeEnvelope(row.Payload)
	require.NoError(t, err)
	require.Equal(t, row.ID.String(), envelope.EventID)
	require.Equal(t, 1, envelope.Version)
	require.True(t, envelope.OccurredAt.Equal(occurred))
	require.Equal(t, string(enums.RoleSeller), envelope.Actor.Role)

	var data map[string]string
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	require.Equal(t, "1250.00", data["total"])
}

func TestEmitRejectsIncompleteEvents(t *testing.T) {
	conn := newOutboxDB(t)
	service := NewService(NewRepository(conn), nil)
	ctx := context.Background()

	bad := orderEvent(uuid.New())
	bad.EventType = "order_shipped"
	require.Error(t, service.Emit(ctx, conn, bad))

	bad = orderEvent(uuid.Nil)
	require.Error(t, service.Emit(ctx, conn, bad))

	bad = orderEvent(uuid.New())
	bad.Data = func() {}
	require.Error(t, service.Emit(ctx, conn, bad))

	require.Error(t, service.Emit(ctx, nil, orderEvent(uuid.New())))

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestEmitIfNotExistsQueuesOnce(t *testing.T) {
	conn := newOutboxDB(t)
	service := NewService(NewRepository(conn), nil)
	orderID := uuid.New()

	release := DomainEvent{
		EventType:     enums.EventCatalogReleased,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Data:          map[string]int{"items": 3},
	}
	require.NoError(t, service.EmitIfNotExists(context.Background(), conn, release))
	require.NoError(t, service.EmitIfNotExists(context.Background(), conn, release))

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("aggregate_id = ?", orderID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := newOutboxDB(t)
	repo := NewRepository(conn)
	service := NewService(repo, nil)
	ctx := context.Background()

	first := orderEvent(uuid.New())
	first.OccurredAt = time.Now().Add(-time.Minute)
	require.NoError(t, service.Emit(ctx, conn, first))
	require.NoError(t, service.Emit(ctx, conn, orderEvent(uuid.New())))

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, repo.MarkFailedTx(conn, rows[0].ID, errors.New("pubsub unavailable")))
	require.NoError(t, repo.MarkPublishedTx(conn, rows[1].ID))
	require.NoError(t, repo.MarkTerminalTx(conn, rows[0].ID, errors.New(strings.Repeat("é", 800)), 3))

	var failed models.OutboxEvent
	require.NoError(t, conn.First(&failed, "id = ?", rows[0].ID).Error)
	require.Equal(t, 3, failed.AttemptCount)
	require.NotNil(t, failed.LastError)
	require.LessOrEqual(t, len(*failed.LastError), maxLastErrorLen)
	require.True(t, strings.HasSuffix(*failed.LastError, "é"), "truncation must not split a rune")

	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Empty(t, rows, "published and terminal rows are not fetched again")

	deleted, err := repo.DeletePublishedBefore(conn, time.Now().UTC().Add(time.Hour), 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)
}

func TestDeletePublishedBeforeHonoursLimit(t *testing.T) {
	ctx := context.Background()
	conn := newOutboxDB(t)
	repo := NewRepository(conn)
	service := NewService(repo, logger.Nop())

	for range 3 {
		require.NoError(t, service.Emit(ctx, conn, orderEvent(uuid.New())))
	}
	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	for _, row := range rows {
		require.NoError(t, repo.MarkPublishedTx(conn, row.ID))
	}
	require.NoError(t, service.Emit(ctx, conn, orderEvent(uuid.New())))

	cutoff := time.Now().UTC().Add(time.Hour)
	deleted, err := repo.DeletePublishedBefore(conn, cutoff, 2)
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)
	deleted, err = repo.DeletePublishedBefore(conn, cutoff, 2)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	var left int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&left).Error)
	require.EqualValues(t, 1, left, "unpublished row survives")
}

func TestDLQInsertIsIdempotent(t *testing.T) {
	conn := newOutboxDB(t)
	dlq := NewDLQRepository(conn)
	eventID := uuid.New()
	message := strings.Repeat("x", maxDLQErrorLen+10)

	entry := models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &message,
		AttemptCount:  10,
		FailedAt:      time.Now().UTC(),
	}
	require.NoError(t, dlq.InsertTx(conn, entry))
	require.NoError(t, dlq.InsertTx(conn, entry))

	var rows []models.OutboxDLQ
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Len(t, *rows[0].ErrorMessage, maxDLQErrorLen)

	require.Error(t, dlq.InsertTx(nil, entry))
	entry.EventID = uuid.Nil
	require.Error(t, dlq.InsertTx(conn, entry))
}
