package helpers

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/siver-b2b-backend/pkg/checkout"
	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
)

func TestBuildOrderItems(t *testing.T) {
	t.Parallel()
	items := []models.CartItem{
		{ProductID: uuid.New(), SKU: "A", Name: "Cable", UnitPrice: decimal.RequireFromString("1.25"), Quantity: 12},
		{ProductID: uuid.New(), SKU: "B", Name: "Plug", UnitPrice: decimal.RequireFromString("0.33"), Quantity: 3},
	}

	out, totals := BuildOrderItems(items)
	if len(out) != 2 {
		t.Fatalf("expected 2 items, got %d", len(out))
	}
	if !out[0].Subtotal.Equal(decimal.RequireFromString("15.00")) {
		t.Fatalf("unexpected first subtotal %s", out[0].Subtotal)
	}
	if out[1].SKU != "B" || out[1].Name != "Plug" || !out[1].UnitPrice.Equal(decimal.RequireFromString("0.33")) {
		t.Fatalf("snapshot not carried: %+v", out[1])
	}
	if !totals.TotalAmount.Equal(decimal.RequireFromString("15.99")) {
		t.Fatalf("expected total 15.99, got %s", totals.TotalAmount)
	}
	if totals.TotalQuantity != 15 || totals.LineCount != 2 {
		t.Fatalf("unexpected totals %+v", totals)
	}
}

func TestBuildOrderItemsEmpty(t *testing.T) {
	t.Parallel()
	out, totals := BuildOrderItems(nil)
	if len(out) != 0 || !totals.TotalAmount.IsZero() || totals.TotalQuantity != 0 {
		t.Fatalf("expected zero totals, got %+v", totals)
	}
}

func TestValidationLines(t *testing.T) {
	t.Parallel()
	active := models.Product{ID: uuid.New(), MOQ: 10, Stock: 40, IsActive: true}
	inactive := models.Product{ID: uuid.New(), MOQ: 5, Stock: 100, IsActive: false}
	missing := uuid.New()

	lines := ValidationLines([]models.CartItem{
		{ProductID: active.ID, Name: "active", Quantity: 20},
		{ProductID: inactive.ID, Name: "inactive", Quantity: 5},
		{ProductID: missing, Name: "missing", Quantity: 1},
	}, []models.Product{active, inactive})

	if lines[0].MOQ != 10 || lines[0].StockCeiling != 40 {
		t.Fatalf("unexpected active line %+v", lines[0])
	}
	if lines[1].StockCeiling != 0 || lines[1].MOQ != 5 {
		t.Fatalf("inactive product must have no stock, got %+v", lines[1])
	}
	if lines[2].StockCeiling != 0 {
		t.Fatalf("missing product must have no stock, got %+v", lines[2])
	}

	err := checkout.ValidateLines(lines)
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
}

func TestValidatePaymentMethod(t *testing.T) {
	t.Parallel()
	if err := ValidatePaymentMethod(enums.PaymentMethodMoncash); err != nil {
		t.Fatalf("expected moncash to be accepted: %v", err)
	}
	for _, method := range []enums.PaymentMethod{"", "cash"} {
		if err := ValidatePaymentMethod(method); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for %q, got %v", method, err)
		}
	}
}

func TestInitialStatus(t *testing.T) {
	t.Parallel()
	cases := []struct {
		method     enums.PaymentMethod
		autoSettle bool
		want       enums.OrderStatus
	}{
		{enums.PaymentMethodStripe, true, enums.OrderStatusPaid},
		{enums.PaymentMethodStripe, false, enums.OrderStatusPending},
		{enums.PaymentMethodMoncash, true, enums.OrderStatusPending},
		{enums.PaymentMethodTransfer, true, enums.OrderStatusPending},
	}
	for _, tc := range cases {
		if got := InitialStatus(tc.method, tc.autoSettle); got != tc.want {
			t.Fatalf("%s/%v: expected %s, got %s", tc.method, tc.autoSettle, tc.want, got)
		}
	}
}
