package helpers

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
)

// OrderTotals captures the amounts frozen onto an order.
type OrderTotals struct {
	TotalAmount   decimal.Decimal
	TotalQuantity int
	LineCount     int
}

// BuildOrderItems freezes cart lines into order items using the SKU, name and
// unit price snapshots taken when each line was added.
func BuildOrderItems(items []models.CartItem) ([]models.OrderItem, OrderTotals) {
	totals := OrderTotals{TotalAmount: decimal.Zero}
	out := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		subtotal := LineSubtotal(item)
		out = append(out, models.OrderItem{
			ProductID: item.ProductID,
			SKU:       item.SKU,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  subtotal,
		})
		totals.TotalAmount = totals.TotalAmount.Add(subtotal)
		totals.TotalQuantity += item.Quantity
		totals.LineCount++
	}
	totals.TotalAmount = totals.TotalAmount.Round(2)
	return out, totals
}

// LineSubtotal is unit price times quantity rounded to cents.
func LineSubtotal(item models.CartItem) decimal.Decimal {
	return item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
}
