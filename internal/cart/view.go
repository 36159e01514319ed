package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
)

// Line is a cart line joined with the live MOQ and stock of its product.
type Line struct {
	ItemID       uuid.UUID         `json:"item_id"`
	ProductID    uuid.UUID         `json:"product_id"`
	SKU          string            `json:"sku"`
	Name         string            `json:"name"`
	UnitPrice    decimal.Decimal   `json:"unit_price"`
	Quantity     int               `json:"quantity"`
	TotalPrice   decimal.Decimal   `json:"total_price"`
	MOQ          int               `json:"moq"`
	StockCeiling int               `json:"stock_ceiling"`
	StockStatus  enums.StockStatus `json:"stock_status"`
	PrimaryImage *string           `json:"primary_image,omitempty"`
	Color        *string           `json:"color,omitempty"`
	Size         *string           `json:"size,omitempty"`
	Available    bool              `json:"available"`
}

// Cart is the buyer-facing view of an open cart. Totals are derived from Items.
type Cart struct {
	ID            uuid.UUID        `json:"id"`
	BuyerID       uuid.UUID        `json:"buyer_id"`
	Status        enums.CartStatus `json:"status"`
	Items         []Line           `json:"items"`
	TotalItems    int              `json:"total_items"`
	TotalQuantity int              `json:"total_quantity"`
	Subtotal      decimal.Decimal  `json:"subtotal"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// EmptyView is the view of a cart the buyer has not opened yet.
func EmptyView(buyerID uuid.UUID) *Cart {
	return &Cart{
		BuyerID:  buyerID,
		Status:   enums.CartStatusOpen,
		Items:    []Line{},
		Subtotal: decimal.Zero,
	}
}

// BuildView joins cart lines with live product data and derives the totals.
func BuildView(cart *models.Cart, products []models.Product) *Cart {
	byID := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	view := &Cart{
		ID:        cart.ID,
		BuyerID:   cart.BuyerID,
		Status:    cart.Status,
		Items:     make([]Line, 0, len(cart.Items)),
		Subtotal:  decimal.Zero,
		UpdatedAt: cart.UpdatedAt,
	}
	for _, item := range cart.Items {
		line := Line{
			ItemID:     item.ID,
			ProductID:  item.ProductID,
			SKU:        item.SKU,
			Name:       item.Name,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
			TotalPrice: item.TotalPrice,
			Color:      item.Color,
			Size:       item.Size,
		}
		if product, ok := byID[item.ProductID]; ok {
			line.MOQ = product.MOQ
			line.StockCeiling = product.Stock
			line.StockStatus = product.StockStatus
			line.PrimaryImage = product.PrimaryImage
			line.Available = product.IsActive && product.Stock > 0
		} else {
			line.StockStatus = enums.StockStatusOutOfStock
		}
		view.Items = append(view.Items, line)
		view.TotalQuantity += item.Quantity
		view.Subtotal = view.Subtotal.Add(item.TotalPrice)
	}
	view.TotalItems = len(view.Items)
	return view
}

func lineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
