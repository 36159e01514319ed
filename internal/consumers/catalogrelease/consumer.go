package catalogrelease

import (
	"context"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/siver-b2b-backend/internal/sellercatalog"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox/registry"
)

const consumerName = "catalog-release"

type releaser interface {
	Release(ctx context.Context, orderID uuid.UUID) (*sellercatalog.ReleaseResult, error)
}

type idempotencyRunner interface {
	Run(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) (bool, error)
}

type subscription interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Consumer turns order_paid events into seller catalog entries.
type Consumer struct {
	releaser     releaser
	manager      idempotencyRunner
	subscription subscription
	decoders     *registry.Decoders
	logg         *logger.Logger
}

// NewConsumer builds a catalog release consumer. subscription may be nil when
// only Process is used.
func NewConsumer(rel releaser, manager idempotencyRunner, sub subscription, logg *logger.Logger) (*Consumer, error) {
	if rel == nil {
		return nil, fmt.Errorf("catalog releaser required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		releaser:     rel,
		manager:      manager,
		subscription: sub,
		decoders:     registry.ConsumerDecoders(),
		logg:         logg,
	}, nil
}

// Run processes messages until the context is canceled or the subscription errors.
func (c *Consumer) Run(ctx context.Context) error {
	if c.subscription == nil {
		return errors.New("catalog release subscription is required")
	}
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.handle(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// handle reports whether the message should be acknowledged.
func (c *Consumer) handle(ctx context.Context, msg *pubsub.Message) bool {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	envelope, err := outbox.DecodeEnvelope(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode outbox envelope", err)
		return true
	}

	err = c.Process(ctx, eventType, envelope)
	if err == nil {
		return true
	}
	if retryable(err) {
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "catalog release will be retried")
		return false
	}
	c.logg.Error(logCtx, "catalog release dropped", err)
	return true
}

// Process releases the order carried by an order_paid envelope. Other event
// types are ignored. Redelivered events are skipped by the idempotency guard.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})
	if eventType != enums.EventOrderPaid {
		c.logg.Debug(logCtx, "event not handled by catalog release consumer")
		return nil
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse event id")
	}
	decoded, err := c.decoders.Decode(eventType, envelope)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode order_paid payload")
	}
	payload, ok := decoded.(*payloads.OrderPaidEvent)
	if !ok || payload.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order_paid payload missing order id")
	}

	logCtx = c.logg.WithOrderID(logCtx, payload.OrderID.String())
	skipped, err := c.manager.Run(ctx, consumerName, eventID, func(ctx context.Context) error {
		result, err := c.releaser.Release(ctx, payload.OrderID)
		if err != nil {
			return err
		}
		c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
			"items_released": result.ItemsReleased,
			"items_skipped":  result.ItemsSkipped,
		}), "order released to seller catalog")
		return nil
	})
	if err != nil {
		return err
	}
	if skipped {
		c.logg.Info(logCtx, "event already processed")
	}
	return nil
}

func retryable(err error) bool {
	if typed := pkgerrors.As(err); typed != nil {
		return pkgerrors.MetadataFor(typed.Code()).Retryable
	}
	return !errors.Is(err, context.Canceled)
}
