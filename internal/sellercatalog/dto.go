package sellercatalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
)

var hundred = decimal.NewFromInt(100)

// ItemDTO is a seller catalog entry with its computed margin.
type ItemDTO struct {
	ID              uuid.UUID       `json:"id"`
	SellerStoreID   uuid.UUID       `json:"seller_store_id"`
	SourceProductID *uuid.UUID      `json:"source_product_id,omitempty"`
	SourceOrderID   *uuid.UUID      `json:"source_order_id,omitempty"`
	SKU             string          `json:"sku"`
	Name            string          `json:"name"`
	Description     *string         `json:"description,omitempty"`
	SalePrice       decimal.Decimal `json:"sale_price"`
	CostPrice       decimal.Decimal `json:"cost_price"`
	MarginPercent   decimal.Decimal `json:"margin_percent"`
	Stock           int             `json:"stock"`
	Images          []string        `json:"images"`
	IsActive        bool            `json:"is_active"`
	ImportedAt      time.Time       `json:"imported_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Stats summarises a seller catalog.
type Stats struct {
	TotalProducts  int             `json:"total_products"`
	ActiveProducts int             `json:"active_products"`
	TotalStock     int             `json:"total_stock"`
	TotalValue     decimal.Decimal `json:"total_value"`
	AverageMargin  decimal.Decimal `json:"average_margin"`
}

// MovementDTO is one recorded stock change.
type MovementDTO struct {
	ID            uuid.UUID  `json:"id"`
	ChangeAmount  int        `json:"change_amount"`
	PreviousStock int        `json:"previous_stock"`
	NewStock      int        `json:"new_stock"`
	Reason        string     `json:"reason"`
	CreatedBy     *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ReleaseResult reports what a catalog release wrote.
type ReleaseResult struct {
	OrderID       uuid.UUID `json:"order_id"`
	SellerStoreID uuid.UUID `json:"seller_store_id"`
	ItemsReleased int       `json:"items_released"`
	ItemsSkipped  int       `json:"items_skipped"`
}

// Margin returns (sale - cost) / cost as a percentage, or zero when cost is zero.
func Margin(sale, cost decimal.Decimal) decimal.Decimal {
	if cost.IsZero() {
		return decimal.Zero
	}
	return sale.Sub(cost).Div(cost).Mul(hundred).Round(2)
}

func newItemDTO(item models.SellerCatalogItem) ItemDTO {
	images := item.Images
	if images == nil {
		images = []string{}
	}
	return ItemDTO{
		ID:              item.ID,
		SellerStoreID:   item.SellerStoreID,
		SourceProductID: item.SourceProductID,
		SourceOrderID:   item.SourceOrderID,
		SKU:             item.SKU,
		Name:            item.Name,
		Description:     item.Description,
		SalePrice:       item.SalePrice,
		CostPrice:       item.CostPrice,
		MarginPercent:   Margin(item.SalePrice, item.CostPrice),
		Stock:           item.Stock,
		Images:          images,
		IsActive:        item.IsActive,
		ImportedAt:      item.ImportedAt,
		UpdatedAt:       item.UpdatedAt,
	}
}

func newMovementDTO(m models.InventoryMovement) MovementDTO {
	return MovementDTO{
		ID:            m.ID,
		ChangeAmount:  m.ChangeAmount,
		PreviousStock: m.PreviousStock,
		NewStock:      m.NewStock,
		Reason:        m.Reason,
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.CreatedAt,
	}
}

// computeStats folds the entries into catalog totals. The average margin is
// taken over every entry, active or not.
func computeStats(items []models.SellerCatalogItem) Stats {
	stats := Stats{TotalValue: decimal.Zero, AverageMargin: decimal.Zero}
	if len(items) == 0 {
		return stats
	}
	marginSum := decimal.Zero
	for _, item := range items {
		stats.TotalProducts++
		if item.IsActive {
			stats.ActiveProducts++
		}
		stats.TotalStock += item.Stock
		stats.TotalValue = stats.TotalValue.Add(item.SalePrice.Mul(decimal.NewFromInt(int64(item.Stock))))
		marginSum = marginSum.Add(Margin(item.SalePrice, item.CostPrice))
	}
	stats.AverageMargin = marginSum.Div(decimal.NewFromInt(int64(len(items)))).Round(2)
	return stats
}
