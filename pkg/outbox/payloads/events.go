package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once a cart has been converted into an order.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	CartID        uuid.UUID           `json:"cart_id"`
	BuyerID       uuid.UUID           `json:"buyer_id"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Status        enums.OrderStatus   `json:"status"`
	Currency      enums.Currency      `json:"currency"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	TotalQuantity int                 `json:"total_quantity"`
}

// OrderLine is the snapshot of a purchased line carried on order events.
type OrderLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderPaidEvent triggers the release of purchased goods into the buyer's catalog.
type OrderPaidEvent struct {
	OrderID          uuid.UUID       `json:"order_id"`
	BuyerID          uuid.UUID       `json:"buyer_id"`
	PaidAt           time.Time       `json:"paid_at"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	Lines            []OrderLine     `json:"lines"`
}

// OrderRejectedEvent reports an administrative rejection of a pending payment.
type OrderRejectedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	BuyerID    uuid.UUID `json:"buyer_id"`
	Reason     string    `json:"reason,omitempty"`
	RejectedAt time.Time `json:"rejected_at"`
}

// CatalogReleasedEvent confirms that a paid order now appears in the seller catalog.
type CatalogReleasedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	SellerStoreID uuid.UUID `json:"seller_store_id"`
	ItemsReleased int       `json:"items_released"`
	ItemsSkipped  int       `json:"items_skipped"`
}

// ProductPriceChangedEvent mirrors a product_price_history row.
type ProductPriceChangedEvent struct {
	ProductID uuid.UUID               `json:"product_id"`
	SKU       string                  `json:"sku"`
	Field     enums.PriceHistoryField `json:"field"`
	OldValue  string                  `json:"old_value"`
	NewValue  string                  `json:"new_value"`
	ChangedBy *uuid.UUID              `json:"changed_by,omitempty"`
}
