package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
)

// Cart is a buyer's procurement cart. At most one cart per buyer is open.
type Cart struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID     uuid.UUID        `gorm:"column:buyer_id;type:uuid;not null"`
	Status      enums.CartStatus `gorm:"column:status;not null;default:'open'"`
	CompletedAt *time.Time       `gorm:"column:completed_at"`
	Items       []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// CartItem is a pending selection with SKU, name and price snapshots.
type CartItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID     uuid.UUID       `gorm:"column:cart_id;type:uuid;not null"`
	ProductID  uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	SKU        string          `gorm:"column:sku;not null"`
	Name       string          `gorm:"column:name;not null"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity   int             `gorm:"column:quantity;not null"`
	TotalPrice decimal.Decimal `gorm:"column:total_price;type:numeric(14,2);not null"`
	Color      *string         `gorm:"column:color"`
	Size       *string         `gorm:"column:size"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
