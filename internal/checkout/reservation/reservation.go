package reservation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/siver-b2b-backend/internal/products"
	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
)

// Request asks for Qty units of a product on behalf of a cart line.
type Request struct {
	CartItemID uuid.UUID
	ProductID  uuid.UUID
	Qty        int
}

// Result reports whether a request was reserved. Available is the stock
// observed when a reservation fails.
type Result struct {
	CartItemID uuid.UUID
	ProductID  uuid.UUID
	Qty        int
	Reserved   bool
	Reason     string
	Available  int
}

// ReserveStock decrements product stock for each request with a conditional
// update so concurrent checkouts cannot take more than is on hand. Failed
// requests leave stock untouched; the caller decides whether to roll back.
func ReserveStock(ctx context.Context, tx *gorm.DB, requests []Request) ([]Result, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	for _, req := range requests {
		if req.ProductID == uuid.Nil || req.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation requires a product and a positive quantity")
		}
	}

	repo := products.NewRepository(tx)
	results := make([]Result, 0, len(requests))
	for _, req := range requests {
		result := Result{CartItemID: req.CartItemID, ProductID: req.ProductID, Qty: req.Qty}
		ok, err := repo.DecrementStock(ctx, req.ProductID, req.Qty)
		if err != nil {
			return nil, err
		}
		if ok {
			result.Reserved = true
			results = append(results, result)
			continue
		}

		available, found, err := currentStock(ctx, tx, req.ProductID)
		if err != nil {
			return nil, err
		}
		result.Available = available
		if !found {
			result.Reason = "product not found"
		} else {
			result.Reason = fmt.Sprintf("only %d units available", available)
		}
		results = append(results, result)
	}
	return results, nil
}

// ReleaseStock returns qty units to the product.
func ReleaseStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "release quantity must be positive")
	}
	return products.NewRepository(tx).RestoreStock(ctx, productID, qty)
}

func currentStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (int, bool, error) {
	var stocks []int
	err := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Pluck("stock", &stocks).Error
	if err != nil {
		return 0, false, err
	}
	if len(stocks) == 0 {
		return 0, false, nil
	}
	return max(stocks[0], 0), true, nil
}

// Engine binds catalog stock operations to the caller's transaction.
type Engine struct{}

// NewEngine returns the default stock engine.
func NewEngine() Engine {
	return Engine{}
}

// Load returns the live products for ids, read inside tx.
func (Engine) Load(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]models.Product, error) {
	return products.NewRepository(tx).FindByIDs(ctx, ids)
}

func (Engine) Reserve(ctx context.Context, tx *gorm.DB, requests []Request) ([]Result, error) {
	return ReserveStock(ctx, tx, requests)
}

func (Engine) Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	return ReleaseStock(ctx, tx, productID, qty)
}
