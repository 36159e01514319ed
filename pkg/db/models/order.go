package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
)

// Order is the immutable record of a converted cart.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID          uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null"`
	CartID           uuid.UUID           `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:orders_cart_id_key"`
	TotalAmount      decimal.Decimal     `gorm:"column:total_amount;type:numeric(14,2);not null"`
	TotalQuantity    int                 `gorm:"column:total_quantity;not null"`
	PaymentMethod    enums.PaymentMethod `gorm:"column:payment_method;not null"`
	Status           enums.OrderStatus   `gorm:"column:status;not null;default:'draft'"`
	Currency         enums.Currency      `gorm:"column:currency;not null;default:'USD'"`
	PaymentReference *string             `gorm:"column:payment_reference"`
	RejectionReason  *string             `gorm:"column:rejection_reason"`
	PaidAt           *time.Time          `gorm:"column:paid_at"`
	RejectedAt       *time.Time          `gorm:"column:rejected_at"`
	Items            []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem freezes the purchased line at order time.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	SKU       string          `gorm:"column:sku;not null"`
	Name      string          `gorm:"column:name;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Subtotal  decimal.Decimal `gorm:"column:subtotal;type:numeric(14,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
