package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
)

// CreateProductInput holds the validated payload to create a catalog product.
type CreateProductInput struct {
	SKU                  string
	Name                 string
	ShortDescription     *string
	LongDescription      *string
	WholesalePrice       decimal.Decimal
	SuggestedRetailPrice *decimal.Decimal
	MOQ                  int
	Stock                int
	WeightKg             *decimal.Decimal
	DimensionsCm         *models.Dimensions
	PrimaryImage         *string
	GalleryImages        []string
	SourceURL            *string
	CategoryID           *uuid.UUID
	SupplierID           *uuid.UUID
	IsActive             bool
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	SKU                  *string
	Name                 *string
	ShortDescription     *string
	LongDescription      *string
	WholesalePrice       *decimal.Decimal
	SuggestedRetailPrice *decimal.Decimal
	MOQ                  *int
	Stock                *int
	WeightKg             *decimal.Decimal
	DimensionsCm         *models.Dimensions
	PrimaryImage         *string
	GalleryImages        *[]string
	SourceURL            *string
	CategoryID           *uuid.UUID
	SupplierID           *uuid.UUID
	IsActive             *bool
}

// KPIs summarises the active catalog for the admin dashboard.
type KPIs struct {
	TotalSKUs    int64 `json:"total_skus" gorm:"column:total_skus"`
	TotalStock   int64 `json:"total_stock" gorm:"column:total_stock"`
	LowMOQAlerts int64 `json:"low_moq_alerts" gorm:"column:low_moq_alerts"`
	OutOfStock   int64 `json:"out_of_stock" gorm:"column:out_of_stock"`
}

// PriceHistoryDTO is one audited price or MOQ change.
type PriceHistoryDTO struct {
	ID            uuid.UUID               `json:"id"`
	ProductID     uuid.UUID               `json:"product_id"`
	Field         enums.PriceHistoryField `json:"field"`
	PreviousValue string                  `json:"previous_value"`
	NewValue      string                  `json:"new_value"`
	ChangedBy     *uuid.UUID              `json:"changed_by,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
}

// SupplierInput is the payload to register a supplier.
type SupplierInput struct {
	Name         string
	ContactEmail *string
	ContactPhone *string
	Country      *string
}

// SupplierDTO is the admin view of a supplier.
type SupplierDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	ContactEmail *string   `json:"contact_email,omitempty"`
	ContactPhone *string   `json:"contact_phone,omitempty"`
	Country      *string   `json:"country,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func newPriceHistoryDTO(entry models.PriceHistoryEntry) PriceHistoryDTO {
	return PriceHistoryDTO{
		ID:            entry.ID,
		ProductID:     entry.ProductID,
		Field:         entry.Field,
		PreviousValue: entry.PreviousValue,
		NewValue:      entry.NewValue,
		ChangedBy:     entry.ChangedBy,
		CreatedAt:     entry.CreatedAt,
	}
}

func newSupplierDTO(s models.Supplier) SupplierDTO {
	return SupplierDTO{
		ID:           s.ID,
		Name:         s.Name,
		ContactEmail: s.ContactEmail,
		ContactPhone: s.ContactPhone,
		Country:      s.Country,
		CreatedAt:    s.CreatedAt,
	}
}
