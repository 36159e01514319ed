package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox/payloads"
)

// CreatedEvent builds the order_created event for a freshly inserted order.
func CreatedEvent(order *models.Order, actor *outbox.ActorRef) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Version:       1,
		Data: payloads.OrderCreatedEvent{
			OrderID:       order.ID,
			CartID:        order.CartID,
			BuyerID:       order.BuyerID,
			PaymentMethod: order.PaymentMethod,
			Status:        order.Status,
			Currency:      order.Currency,
			TotalAmount:   order.TotalAmount,
			TotalQuantity: order.TotalQuantity,
		},
	}
}

// PaidEvent builds the order_paid event. It carries every line so consumers
// can release the goods without reading the orders table.
func PaidEvent(order *models.Order, actor *outbox.ActorRef) outbox.DomainEvent {
	lines := make([]payloads.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, payloads.OrderLine{
			ProductID: item.ProductID,
			SKU:       item.SKU,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	paidAt := time.Now().UTC()
	if order.PaidAt != nil {
		paidAt = *order.PaidAt
	}
	data := payloads.OrderPaidEvent{
		OrderID:     order.ID,
		BuyerID:     order.BuyerID,
		PaidAt:      paidAt,
		TotalAmount: order.TotalAmount,
		Lines:       lines,
	}
	if order.PaymentReference != nil {
		data.PaymentReference = *order.PaymentReference
	}
	return outbox.DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Version:       1,
		Data:          data,
	}
}

func rejectedEvent(order *models.Order, actor *outbox.ActorRef) outbox.DomainEvent {
	data := payloads.OrderRejectedEvent{
		OrderID: order.ID,
		BuyerID: order.BuyerID,
	}
	if order.RejectionReason != nil {
		data.Reason = *order.RejectionReason
	}
	if order.RejectedAt != nil {
		data.RejectedAt = *order.RejectedAt
	}
	return outbox.DomainEvent{
		EventType:     enums.EventOrderRejected,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Version:       1,
		Data:          data,
	}
}

// Actor builds the envelope actor for a user acting in a role.
func Actor(userID uuid.UUID, role enums.Role) *outbox.ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: userID, Role: string(role)}
}
