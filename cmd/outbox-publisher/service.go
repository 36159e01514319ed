package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/siver-b2b-backend/pkg/config"
	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
	"github.com/angelmondragon/siver-b2b-backend/pkg/metrics"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
)

const (
	outcomePublished    = "published"
	outcomeRetry        = "retry"
	outcomeDeadLettered = "dead_lettered"
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	DLQRepository    dlqRepository
	Metrics          *metrics.Outbox
}

func (p ServiceParams) validate() error {
	for _, dep := range []struct {
		name    string
		present bool
	}{
		{"config", p.Config != nil},
		{"logger", p.Logger != nil},
		{"database client", p.DB != nil},
		{"pubsub client", p.PubSub != nil},
		{"outbox repository", p.Repository != nil},
		{"event registry", p.Registry != nil},
		{"dlq repository", p.DLQRepository != nil},
	} {
		if !dep.present {
			return fmt.Errorf("%s is required", dep.name)
		}
	}
	return nil
}

// Service relays committed outbox rows to Pub/Sub. Rows that can never be
// delivered are copied to outbox_dlq and marked terminal.
type Service struct {
	logg        *logger.Logger
	db          dbClient
	repo        outboxRepository
	pubsub      pubSubClient
	registry    registryResolver
	dlq         dlqRepository
	publishers  publisherFactory
	metrics     *metrics.Outbox
	batchSize   int
	maxAttempts int
	poll        *poller
	now         func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	publishers := params.PublisherFactory
	if publishers == nil {
		publishers = func(topic string) publisher {
			return wrapPublisher(params.PubSub.Publisher(topic))
		}
	}

	cfg := params.Config.Outbox
	batchSize, maxAttempts := cfg.BatchSize, cfg.MaxAttempts
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Service{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		pubsub:      params.PubSub,
		registry:    params.Registry,
		dlq:         params.DLQRepository,
		publishers:  publishers,
		metrics:     params.Metrics,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		poll:        newPoller(cfg.PollInterval()),
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Service) ready(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping: %w", err)
	}
	return nil
}

// Run drains the outbox until ctx is canceled. A non-empty batch is followed
// by the next one straight away.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "outbox publisher batch error", err)
		}
		if processed && err == nil {
			s.poll.reset()
			continue
		}
		if err := s.poll.wait(ctx, err != nil); err != nil {
			return err
		}
	}
}

// processBatch claims up to batchSize rows and settles each one inside the
// same transaction, so a crash leaves every row unclaimed.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		processed = len(events) > 0
		for _, event := range events {
			if err := s.settle(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	return processed, err
}

// verdict is what happens to a row after one publish attempt.
type verdict struct {
	outcome string
	reason  enums.OutboxDLQReason
	cause   error
}

func (s *Service) judge(event models.OutboxEvent, publishErr error) verdict {
	switch {
	case publishErr == nil:
		return verdict{outcome: outcomePublished}
	case errors.Is(publishErr, registry.ErrPermanent):
		return verdict{outcome: outcomeDeadLettered, reason: enums.OutboxDLQReasonNonRetryable, cause: publishErr}
	case event.AttemptCount+1 >= s.maxAttempts:
		return verdict{
			outcome: outcomeDeadLettered,
			reason:  enums.OutboxDLQReasonMaxAttempts,
			cause:   fmt.Errorf("max publish attempts reached: %w", publishErr),
		}
	default:
		return verdict{outcome: outcomeRetry, cause: publishErr}
	}
}

func (s *Service) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	var envelope outbox.PayloadEnvelope
	topic := ""
	resolved, err := s.registry.Resolve(event)
	if err == nil {
		envelope, topic = resolved.Envelope, resolved.Route.Topic
		err = s.publish(ctx, event, resolved)
	}
	fields := eventFields(event, envelope, topic)

	v := s.judge(event, err)
	switch v.outcome {
	case outcomePublished:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
	case outcomeRetry:
		fields["attempt_count"] = event.AttemptCount + 1
		s.logg.Warn(s.logg.WithField(s.logg.WithFields(ctx, fields), "error", v.cause.Error()), "outbox publish failed")
		if err := s.repo.MarkFailedTx(tx, event.ID, v.cause); err != nil {
			return fmt.Errorf("mark failure %s: %w", event.ID, err)
		}
	case outcomeDeadLettered:
		fields["error_reason"] = v.reason
		s.logg.Warn(s.logg.WithField(s.logg.WithFields(ctx, fields), "error", v.cause.Error()), "outbox event dead lettered")
		if err := s.deadLetter(tx, event, v); err != nil {
			return err
		}
	}
	s.metrics.Record(string(event.EventType), v.outcome)
	return nil
}

func (s *Service) deadLetter(tx *gorm.DB, event models.OutboxEvent, v verdict) error {
	message := v.cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   v.reason,
		ErrorMessage:  &message,
		AttemptCount:  event.AttemptCount,
		FailedAt:      s.now(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, v.cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Route.Topic
	pub := s.publishers(topic)
	if pub == nil {
		return registry.Permanent("no publisher for topic %s", topic)
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, buildMessage(event, resolved.Envelope))
	if result == nil {
		return registry.Permanent("publisher for topic %s returned no result", topic)
	}
	_, err := result.Get(publishCtx)
	return err
}

// buildMessage keys messages by aggregate so consumers see one order's
// events in commit order.
func buildMessage(event models.OutboxEvent, envelope outbox.PayloadEnvelope) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: event.AggregateID.String(),
		Attributes: map[string]string{
			"event_id":       envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	}
}

func eventFields(event models.OutboxEvent, envelope outbox.PayloadEnvelope, topic string) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if topic != "" {
		fields["topic"] = topic
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}
