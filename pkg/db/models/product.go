package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
)

// Dimensions captures package size in centimeters.
type Dimensions struct {
	Length *float64 `json:"length,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
}

// Product represents a wholesale listing in the central catalog.
type Product struct {
	ID                   uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU                  string            `gorm:"column:sku;not null;uniqueIndex:products_sku_key"`
	Name                 string            `gorm:"column:name;not null"`
	ShortDescription     *string           `gorm:"column:short_description"`
	LongDescription      *string           `gorm:"column:long_description"`
	WholesalePrice       decimal.Decimal   `gorm:"column:wholesale_price;type:numeric(12,2);not null"`
	SuggestedRetailPrice *decimal.Decimal  `gorm:"column:suggested_retail_price;type:numeric(12,2)"`
	MOQ                  int               `gorm:"column:moq;not null;default:1"`
	Stock                int               `gorm:"column:stock;not null;default:0"`
	StockStatus          enums.StockStatus `gorm:"column:stock_status;not null;default:'out_of_stock'"`
	WeightKg             *decimal.Decimal  `gorm:"column:weight_kg;type:numeric(10,3)"`
	DimensionsCm         *Dimensions       `gorm:"column:dimensions_cm;type:jsonb;serializer:json"`
	PrimaryImage         *string           `gorm:"column:primary_image"`
	GalleryImages        []string          `gorm:"column:gallery_images;type:jsonb;serializer:json"`
	SourceURL            *string           `gorm:"column:source_url"`
	CategoryID           *uuid.UUID        `gorm:"column:category_id;type:uuid"`
	SupplierID           *uuid.UUID        `gorm:"column:supplier_id;type:uuid"`
	IsActive             bool              `gorm:"column:is_active;not null"`
	Category             *Category         `gorm:"foreignKey:CategoryID"`
	Supplier             *Supplier         `gorm:"foreignKey:SupplierID"`
	CreatedAt            time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeSave keeps the stored stock status consistent with stock and MOQ.
func (p *Product) BeforeSave(tx *gorm.DB) error {
	p.StockStatus = enums.DeriveStockStatus(p.Stock, p.MOQ)
	return nil
}

// RetailPrice returns the suggested retail price, falling back to wholesale.
func (p *Product) RetailPrice() decimal.Decimal {
	if p.SuggestedRetailPrice != nil {
		return *p.SuggestedRetailPrice
	}
	return p.WholesalePrice
}
