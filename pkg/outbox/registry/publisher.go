package registry

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/siver-b2b-backend/pkg/config"
	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox/payloads"
)

// ErrPermanent marks outbox rows that can never be published. The dispatcher
// dead letters them instead of retrying.
var ErrPermanent = errors.New("permanent outbox failure")

// Permanent formats an error wrapping ErrPermanent. %w verbs in format are kept.
func Permanent(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrPermanent}, args...)...)
}

// Route says which aggregate owns an event type and where it is published.
type Route struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// ResolvedEvent is an outbox row checked against its route with the payload decoded.
type ResolvedEvent struct {
	Route    Route
	Envelope outbox.PayloadEnvelope
	Payload  any
}

// EventRegistry routes outbox rows to topics.
type EventRegistry struct {
	routes   map[enums.OutboxEventType]Route
	decoders *Decoders
}

// NewEventRegistry sends order events to the orders topic and catalog
// events to the catalog topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	orders := strings.TrimSpace(cfg.OrdersTopic)
	catalog := strings.TrimSpace(cfg.CatalogTopic)
	switch {
	case orders == "":
		return nil, errors.New("orders topic is required")
	case catalog == "":
		return nil, errors.New("catalog topic is required")
	}

	r := &EventRegistry{
		routes:   make(map[enums.OutboxEventType]Route),
		decoders: NewDecoders(),
	}
	for _, e := range []struct {
		route Route
		dec   Decoder
	}{
		{Route{enums.EventOrderCreated, enums.AggregateOrder, orders}, JSON[payloads.OrderCreatedEvent]()},
		{Route{enums.EventOrderPaid, enums.AggregateOrder, orders}, JSON[payloads.OrderPaidEvent]()},
		{Route{enums.EventOrderRejected, enums.AggregateOrder, orders}, JSON[payloads.OrderRejectedEvent]()},
		{Route{enums.EventCatalogReleased, enums.AggregateSellerCatalog, catalog}, JSON[payloads.CatalogReleasedEvent]()},
		{Route{enums.EventProductPriceChanged, enums.AggregateProduct, catalog}, JSON[payloads.ProductPriceChangedEvent]()},
	} {
		if err := r.add(e.route, e.dec); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *EventRegistry) add(route Route, dec Decoder) error {
	if _, dup := r.routes[route.EventType]; dup {
		return fmt.Errorf("route already registered for %s", route.EventType)
	}
	if err := r.decoders.Register(route.EventType, outbox.CurrentVersion, dec); err != nil {
		return err
	}
	r.routes[route.EventType] = route
	return nil
}

// Topics returns the distinct topics in name order.
func (r *EventRegistry) Topics() []string {
	set := make(map[string]struct{}, 2)
	for _, route := range r.routes {
		set[route.Topic] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// Resolve checks the row against its route and decodes the payload. Every
// error it returns wraps ErrPermanent.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	route, ok := r.routes[event.EventType]
	switch {
	case !ok:
		return nil, Permanent("unsupported event type %s", event.EventType)
	case route.AggregateType != event.AggregateType:
		return nil, Permanent("%s belongs to %s aggregates, row has %s", event.EventType, route.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, Permanent("%s row has no aggregate_id", event.EventType)
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, Permanent("%w", err)
	}
	if !envelope.HasData() {
		return nil, Permanent("%s envelope has no data", event.EventType)
	}
	payload, err := r.decoders.Decode(event.EventType, envelope)
	if err != nil {
		return nil, Permanent("decode %s: %w", event.EventType, err)
	}
	return &ResolvedEvent{Route: route, Envelope: envelope, Payload: payload}, nil
}
