package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CurrentVersion is the envelope version written by Emit.
const CurrentVersion = 1

// ActorRef names the user whose request produced the event. Events raised
// by background jobs carry no actor.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
}

// PayloadEnvelope wraps every outbox payload. The same bytes are stored in
// outbox_events.payload and sent as the Pub/Sub message body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// SchemaVersion treats envelopes written before versioning as version 1.
func (e PayloadEnvelope) SchemaVersion() int {
	return max(e.Version, 1)
}

// HasData reports whether the envelope carries a non-null payload.
func (e PayloadEnvelope) HasData() bool {
	data := bytes.TrimSpace(e.Data)
	return len(data) > 0 && !bytes.Equal(data, []byte("null"))
}

// DecodeEnvelope parses a stored payload or message body.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return PayloadEnvelope{}, errors.New("empty envelope")
	}
	var envelope PayloadEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return envelope, nil
}
