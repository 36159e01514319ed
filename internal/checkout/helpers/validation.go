package helpers

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/siver-b2b-backend/pkg/checkout"
	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
)

// ValidationLines pairs every cart line with the live MOQ and stock of its
// product. Missing or inactive products get a stock ceiling of zero.
func ValidationLines(items []models.CartItem, products []models.Product) []checkout.Line {
	byID := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	lines := make([]checkout.Line, 0, len(items))
	for _, item := range items {
		line := checkout.Line{
			ProductID:   item.ProductID,
			ProductName: item.Name,
			Quantity:    item.Quantity,
			MOQ:         1,
		}
		if product, ok := byID[item.ProductID]; ok {
			line.MOQ = product.MOQ
			if product.IsActive {
				line.StockCeiling = product.Stock
			}
		}
		lines = append(lines, line)
	}
	return lines
}

// ValidatePaymentMethod rejects empty or unknown payment methods.
func ValidatePaymentMethod(method enums.PaymentMethod) error {
	if method == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment_method is required")
	}
	if !method.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported payment_method %q", method)
	}
	return nil
}

// InitialStatus is the status an order starts in for a payment method. Only
// card payments settle immediately, and only when auto-settle is enabled.
func InitialStatus(method enums.PaymentMethod, autoSettle bool) enums.OrderStatus {
	if method == enums.PaymentMethodStripe && autoSettle {
		return enums.OrderStatusPaid
	}
	return enums.OrderStatusPending
}
