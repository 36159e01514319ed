package checkout

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
)

// BelowMinimumDetail is attached to BELOW_MINIMUM_ORDER errors.
type BelowMinimumDetail struct {
	ProductID    *uuid.UUID `json:"product_id,omitempty"`
	MOQ          int        `json:"moq"`
	RequestedQty int        `json:"requested_qty"`
}

// InsufficientStockDetail is attached to INSUFFICIENT_STOCK errors.
type InsufficientStockDetail struct {
	ProductID    *uuid.UUID `json:"product_id,omitempty"`
	AvailableQty int        `json:"available_qty"`
	RequestedQty int        `json:"requested_qty"`
}

// ValidateQuantity checks requested against the MOQ and stock ceiling and
// returns it unchanged when it satisfies both bounds. MOQ is checked first.
func ValidateQuantity(requested, moq, stockCeiling int) (int, error) {
	return validate(nil, requested, moq, stockCeiling)
}

// ValidateProductQuantity is ValidateQuantity with the product attached to the error details.
func ValidateProductQuantity(productID uuid.UUID, requested, moq, stockCeiling int) (int, error) {
	return validate(&productID, requested, moq, stockCeiling)
}

func validate(productID *uuid.UUID, requested, moq, stockCeiling int) (int, error) {
	if moq < 1 {
		moq = 1
	}
	if requested < moq {
		return 0, pkgerrors.New(pkgerrors.CodeBelowMinimumOrder, fmt.Sprintf("minimum order quantity is %d units", moq)).
			WithDetails(BelowMinimumDetail{ProductID: productID, MOQ: moq, RequestedQty: requested})
	}
	if requested > stockCeiling {
		return 0, pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("only %d units available", max(stockCeiling, 0))).
			WithDetails(InsufficientStockDetail{ProductID: productID, AvailableQty: max(stockCeiling, 0), RequestedQty: requested})
	}
	return requested, nil
}

// StepQuantity applies delta to current and clamps the result into
// [moq, stockCeiling]. It backs increment/decrement controls only; the
// programmatic update path uses ValidateQuantity and never clamps.
func StepQuantity(current, delta, moq, stockCeiling int) (int, error) {
	if moq < 1 {
		moq = 1
	}
	if stockCeiling < moq {
		return 0, pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("only %d units available", max(stockCeiling, 0))).
			WithDetails(InsufficientStockDetail{AvailableQty: max(stockCeiling, 0), RequestedQty: moq})
	}
	next := current + delta
	if next < moq {
		next = moq
	}
	if next > stockCeiling {
		next = stockCeiling
	}
	return next, nil
}

// Line is a quantity to validate against live product bounds.
type Line struct {
	ProductID    uuid.UUID
	ProductName  string
	Quantity     int
	MOQ          int
	StockCeiling int
}

// LineViolation describes one failing line in ValidateLines.
type LineViolation struct {
	ProductID    uuid.UUID      `json:"product_id"`
	ProductName  string         `json:"product_name"`
	Code         pkgerrors.Code `json:"code"`
	MOQ          int            `json:"moq"`
	AvailableQty int            `json:"available_qty"`
	RequestedQty int            `json:"requested_qty"`
}

// ValidateLines validates every line and returns an error carrying the code of
// the first failing line and the full list of violations.
func ValidateLines(lines []Line) error {
	var (
		violations []LineViolation
		first      *pkgerrors.Error
	)
	for _, line := range lines {
		if _, err := ValidateProductQuantity(line.ProductID, line.Quantity, line.MOQ, line.StockCeiling); err != nil {
			typed := pkgerrors.As(err)
			if first == nil {
				first = typed
			}
			violations = append(violations, LineViolation{
				ProductID:    line.ProductID,
				ProductName:  line.ProductName,
				Code:         typed.Code(),
				MOQ:          line.MOQ,
				AvailableQty: line.StockCeiling,
				RequestedQty: line.Quantity,
			})
		}
	}
	if first == nil {
		return nil
	}
	message := first.Message()
	if len(violations) == 1 {
		message = fmt.Sprintf("%s: %s", violations[0].ProductName, first.Message())
	}
	return pkgerrors.New(first.Code(), message).
		WithDetails(map[string]any{"violations": violations})
}
