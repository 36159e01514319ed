package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
)

// ListFilters narrows order listings.
type ListFilters struct {
	BuyerID *uuid.UUID
	Status  *enums.OrderStatus
}

// OrderItemDTO is a frozen order line.
type OrderItemDTO struct {
	ProductID uuid.UUID       `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// OrderDTO is the API view of an order.
type OrderDTO struct {
	ID               uuid.UUID           `json:"id"`
	BuyerID          uuid.UUID           `json:"buyer_id"`
	CartID           uuid.UUID           `json:"cart_id"`
	Status           enums.OrderStatus   `json:"status"`
	PaymentMethod    enums.PaymentMethod `json:"payment_method"`
	PaymentReference *string             `json:"payment_reference,omitempty"`
	Currency         enums.Currency      `json:"currency"`
	TotalAmount      decimal.Decimal     `json:"total_amount"`
	TotalQuantity    int                 `json:"total_quantity"`
	RejectionReason  *string             `json:"rejection_reason,omitempty"`
	PaidAt           *time.Time          `json:"paid_at,omitempty"`
	RejectedAt       *time.Time          `json:"rejected_at,omitempty"`
	Items            []OrderItemDTO      `json:"items"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// NewOrderDTO maps a persisted order to its API view.
func NewOrderDTO(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:               order.ID,
		BuyerID:          order.BuyerID,
		CartID:           order.CartID,
		Status:           order.Status,
		PaymentMethod:    order.PaymentMethod,
		PaymentReference: order.PaymentReference,
		Currency:         order.Currency,
		TotalAmount:      order.TotalAmount,
		TotalQuantity:    order.TotalQuantity,
		RejectionReason:  order.RejectionReason,
		PaidAt:           order.PaidAt,
		RejectedAt:       order.RejectedAt,
		Items:            make([]OrderItemDTO, 0, len(order.Items)),
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ProductID: item.ProductID,
			SKU:       item.SKU,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		})
	}
	return dto
}

func newOrderList(page *orderPage) *OrderList {
	list := &OrderList{
		Orders:     make([]OrderDTO, 0, len(page.Orders)),
		NextCursor: page.NextCursor,
	}
	for i := range page.Orders {
		list.Orders = append(list.Orders, *NewOrderDTO(&page.Orders[i]))
	}
	return list
}
