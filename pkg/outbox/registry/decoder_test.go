package registry

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox/payloads"
)

func TestConsumerDecodersReadOrderPaid(t *testing.T) {
	orderID := uuid.New()
	data, err := json.Marshal(payloads.OrderPaidEvent{OrderID: orderID, TotalAmount: decimal.RequireFromString("980.50")})
	require.NoError(t, err)

	decoded, err := ConsumerDecoders().Decode(enums.EventOrderPaid, outbox.PayloadEnvelope{Version: 1, Data: data})
	require.NoError(t, err)
	paid, ok := decoded.(*payloads.OrderPaidEvent)
	require.True(t, ok, "got %T", decoded)
	require.Equal(t, orderID, paid.OrderID)
	require.Equal(t, "980.5", paid.TotalAmount.String())

	// unversioned envelopes fall back to v1
	_, err = ConsumerDecoders().Decode(enums.EventOrderPaid, outbox.PayloadEnvelope{Data: data})
	require.NoError(t, err)
}

func TestDecodersPickVersion(t *testing.T) {
	d := NewDecoders()
	require.NoError(t, d.Register(enums.EventOrderRejected, 1, JSON[payloads.OrderRejectedEvent]()))
	require.NoError(t, d.Register(enums.EventOrderRejected, 2, func(json.RawMessage) (any, error) {
		return "v2", nil
	}))

	out, err := d.Decode(enums.EventOrderRejected, outbox.PayloadEnvelope{Version: 2, Data: json.RawMessage(`{}`)})
	require.NoError(t, err)
	require.Equal(t, "v2", out)

	_, err = d.Decode(enums.EventOrderRejected, outbox.PayloadEnvelope{Version: 3, Data: json.RawMessage(`{}`)})
	require.ErrorContains(t, err, "order_rejected@v3")

	_, err = d.Decode(enums.EventOrderRejected, outbox.PayloadEnvelope{Version: 1, Data: json.RawMessage(`[`)})
	require.Error(t, err)
}

func TestDecodersRegisterGuards(t *testing.T) {
	d := NewDecoders()
	require.Error(t, d.Register("order_shipped", 1, JSON[payloads.OrderPaidEvent]()))
	require.Error(t, d.Register(enums.EventOrderPaid, 0, JSON[payloads.OrderPaidEvent]()))
	require.Error(t, d.Register(enums.EventOrderPaid, 1, nil))

	require.NoError(t, d.Register(enums.EventOrderPaid, 1, JSON[payloads.OrderPaidEvent]()))
	require.Error(t, d.Register(enums.EventOrderPaid, 1, JSON[payloads.OrderPaidEvent]()))
}
