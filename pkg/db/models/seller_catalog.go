package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SellerCatalogItem is sellable retail inventory released from a paid order.
type SellerCatalogItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerStoreID   uuid.UUID       `gorm:"column:seller_store_id;type:uuid;not null"`
	SourceProductID *uuid.UUID      `gorm:"column:source_product_id;type:uuid"`
	SourceOrderID   *uuid.UUID      `gorm:"column:source_order_id;type:uuid"`
	SKU             string          `gorm:"column:sku;not null"`
	Name            string          `gorm:"column:name;not null"`
	Description     *string         `gorm:"column:description"`
	SalePrice       decimal.Decimal `gorm:"column:sale_price;type:numeric(12,2);not null"`
	CostPrice       decimal.Decimal `gorm:"column:cost_price;type:numeric(12,2);not null"`
	Stock           int             `gorm:"column:stock;not null;default:0"`
	Images          []string        `gorm:"column:images;type:jsonb;serializer:json"`
	IsActive        bool            `gorm:"column:is_active;not null"`
	ImportedAt      time.Time       `gorm:"column:imported_at;not null"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (SellerCatalogItem) TableName() string {
	return "seller_catalog"
}

// InventoryMovement records a manual stock change on a seller catalog entry.
type InventoryMovement struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerCatalogID uuid.UUID  `gorm:"column:seller_catalog_id;type:uuid;not null"`
	ChangeAmount    int        `gorm:"column:change_amount;not null"`
	PreviousStock   int        `gorm:"column:previous_stock;not null"`
	NewStock        int        `gorm:"column:new_stock;not null"`
	Reason          string     `gorm:"column:reason;not null"`
	CreatedBy       *uuid.UUID `gorm:"column:created_by;type:uuid"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
}
