package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox/payloads"
)

// Decoder turns the data section of an envelope into a typed payload.
type Decoder func(data json.RawMessage) (any, error)

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// Decoders resolves payload decoders by event type and envelope version so
// consumers can keep reading older envelopes after a payload change.
type Decoders struct {
	mu    sync.RWMutex
	byKey map[decoderKey]Decoder
}

// NewDecoders returns an empty set.
func NewDecoders() *Decoders {
	return &Decoders{byKey: make(map[decoderKey]Decoder)}
}

// ConsumerDecoders holds the decoders of every event a worker subscribes to.
func ConsumerDecoders() *Decoders {
	d := NewDecoders()
	d.mustRegister(enums.EventOrderPaid, 1, JSON[payloads.OrderPaidEvent]())
	d.mustRegister(enums.EventOrderRejected, 1, JSON[payloads.OrderRejectedEvent]())
	d.mustRegister(enums.EventCatalogReleased, 1, JSON[payloads.CatalogReleasedEvent]())
	return d
}

// Register adds a decoder. A second decoder for the same event and version is an error.
func (d *Decoders) Register(eventType enums.OutboxEventType, version int, dec Decoder) error {
	if !eventType.IsValid() {
		return fmt.Errorf("unknown event type %q", eventType)
	}
	if version < 1 {
		return fmt.Errorf("decoder version must be positive, got %d", version)
	}
	if dec == nil {
		return fmt.Errorf("nil decoder for %s@v%d", eventType, version)
	}
	key := decoderKey{eventType: eventType, version: version}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.byKey[key]; exists {
		return fmt.Errorf("decoder already registered for %s@v%d", eventType, version)
	}
	d.byKey[key] = dec
	return nil
}

func (d *Decoders) mustRegister(eventType enums.OutboxEventType, version int, dec Decoder) {
	if err := d.Register(eventType, version, dec); err != nil {
		panic(err)
	}
}

// Decode runs the decoder matching the envelope version.
func (d *Decoders) Decode(eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) (any, error) {
	version := envelope.SchemaVersion()

	d.mu.RLock()
	dec, ok := d.byKey[decoderKey{eventType: eventType, version: version}]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no decoder for %s@v%d", eventType, version)
	}
	return dec(envelope.Data)
}

// JSON decodes into a fresh *T.
func JSON[T any]() Decoder {
	return func(data json.RawMessage) (any, error) {
		out := new(T)
		if err := json.Unmarshal(data, out); err != nil {
			return nil, err
		}
		return out, nil
	}
}
