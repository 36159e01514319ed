package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/siver-b2b-backend/pkg/db"
	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
)

const uniqueEventPerAggregate = "ux_outbox_events_event_aggregate"

// DomainEvent is the in-process description of an event before it is persisted.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

type eventStore interface {
	Insert(tx *gorm.DB, event models.OutboxEvent) error
	ExistsTx(tx *gorm.DB, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID uuid.UUID) (bool, error)
}

// Service queues domain events in outbox_events inside the caller's transaction.
type Service struct {
	repo eventStore
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo eventStore, logg *logger.Logger) *Service {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{repo: repo, logg: logg, now: time.Now}
}

// Emit writes the event inside tx so it commits or rolls back with the state change.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	row, err := s.buildRow(event)
	if err != nil {
		return err
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"event_id":       row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_id":   row.AggregateID.String(),
		"aggregate_type": row.AggregateType,
	}), "outbox event queued")
	return nil
}

// EmitIfNotExists queues the event at most once per (event_type, aggregate).
func (s *Service) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	exists, err := s.repo.ExistsTx(tx, event.EventType, event.AggregateType, event.AggregateID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	err = s.Emit(ctx, tx, event)
	if dbpkg.IsUniqueViolation(err, uniqueEventPerAggregate) {
		return nil
	}
	return err
}

// buildRow wraps the event data in its envelope. The envelope's eventId is
// the row id, so consumers and the DLQ refer to the same identifier.
func (s *Service) buildRow(event DomainEvent) (models.OutboxEvent, error) {
	switch {
	case !event.EventType.IsValid():
		return models.OutboxEvent{}, fmt.Errorf("unknown outbox event type %q", event.EventType)
	case !event.AggregateType.IsValid():
		return models.OutboxEvent{}, fmt.Errorf("unknown outbox aggregate type %q", event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return models.OutboxEvent{}, errors.New("outbox event requires an aggregate id")
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("encode %s data: %w", event.EventType, err)
	}

	id := uuid.New()
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now()
	}
	version := event.Version
	if version <= 0 {
		version = CurrentVersion
	}

	envelope, err := json.Marshal(PayloadEnvelope{
		Version:    version,
		EventID:    id.String(),
		OccurredAt: occurredAt.UTC(),
		Actor:      event.Actor,
		Data:       data,
	})
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("encode %s envelope: %w", event.EventType, err)
	}

	return models.OutboxEvent{
		ID:            id,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       envelope,
	}, nil
}
