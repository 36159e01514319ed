package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/siver-b2b-backend/pkg/db"
	"github.com/angelmondragon/siver-b2b-backend/pkg/checkout"
	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
	"github.com/angelmondragon/siver-b2b-backend/pkg/metrics"
)

const (
	opAddItem        = "add_item"
	opUpdateQuantity = "update_quantity"
	opStepQuantity   = "step_quantity"
	opRemoveItem     = "remove_item"
	opClear          = "clear"
)

// Service exposes buyer cart operations.
type Service interface {
	GetOrCreateOpenCart(ctx context.Context, buyerID uuid.UUID) (*Cart, error)
	AddItem(ctx context.Context, buyerID uuid.UUID, input AddItemInput) (*Cart, error)
	UpdateQuantity(ctx context.Context, buyerID, productID uuid.UUID, quantity int) (*Cart, error)
	StepQuantity(ctx context.Context, buyerID, productID uuid.UUID, delta int) (*Cart, error)
	RemoveItem(ctx context.Context, buyerID, productID uuid.UUID) (*Cart, error)
	Clear(ctx context.Context, buyerID uuid.UUID) (*Cart, error)
}

// AddItemInput captures a request to put a product in the cart.
type AddItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	Color     *string
	Size      *string
}

type service struct {
	repo     CartRepository
	tx       txRunner
	products productLoader
	logg     *logger.Logger
	metrics  *metrics.Commerce
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, products productLoader, logg *logger.Logger, recorder *metrics.Commerce) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:     repo,
		tx:       tx,
		products: products,
		logg:     logg,
		metrics:  recorder,
	}, nil
}

// GetOrCreateOpenCart returns the buyer's open cart, creating an empty one on first use.
func (s *service) GetOrCreateOpenCart(ctx context.Context, buyerID uuid.UUID) (*Cart, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity is required")
	}
	record, err := s.openCart(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, record)
}

func (s *service) AddItem(ctx context.Context, buyerID uuid.UUID, input AddItemInput) (*Cart, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity is required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.loadProduct(ctx, input.ProductID)
	if err != nil {
		return nil, s.record(opAddItem, err)
	}
	record, err := s.openCart(ctx, buyerID)
	if err != nil {
		return nil, s.record(opAddItem, err)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		existing, err := txRepo.FindItem(ctx, record.ID, product.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if existing != nil {
			merged, err := checkout.ValidateProductQuantity(product.ID, existing.Quantity+input.Quantity, product.MOQ, product.Stock)
			if err != nil {
				return err
			}
			if err := txRepo.UpdateItemQuantity(ctx, existing.ID, merged, lineTotal(existing.UnitPrice, merged)); err != nil {
				return err
			}
		} else {
			qty, err := checkout.ValidateProductQuantity(product.ID, input.Quantity, product.MOQ, product.Stock)
			if err != nil {
				return err
			}
			item := &models.CartItem{
				CartID:     record.ID,
				ProductID:  product.ID,
				SKU:        product.SKU,
				Name:       product.Name,
				UnitPrice:  product.WholesalePrice,
				Quantity:   qty,
				TotalPrice: lineTotal(product.WholesalePrice, qty),
				Color:      input.Color,
				Size:       input.Size,
			}
			if err := txRepo.InsertItem(ctx, item); err != nil {
				return err
			}
		}
		return txRepo.Touch(ctx, record.ID)
	})
	if err != nil {
		return nil, s.record(opAddItem, persistenceError(err, "add cart item"))
	}

	s.record(opAddItem, nil)
	s.logg.Info(s.logCtx(ctx, buyerID, product.ID), "cart item added")
	return s.reload(ctx, buyerID)
}

// UpdateQuantity sets an exact quantity. Out-of-range values are rejected, never clamped.
func (s *service) UpdateQuantity(ctx context.Context, buyerID, productID uuid.UUID, quantity int) (*Cart, error) {
	return s.mutateLine(ctx, opUpdateQuantity, buyerID, productID, func(item *models.CartItem, product *models.Product) (int, error) {
		return checkout.ValidateProductQuantity(product.ID, quantity, product.MOQ, product.Stock)
	})
}

// StepQuantity moves the quantity by delta, clamped to [moq, stock].
func (s *service) StepQuantity(ctx context.Context, buyerID, productID uuid.UUID, delta int) (*Cart, error) {
	return s.mutateLine(ctx, opStepQuantity, buyerID, productID, func(item *models.CartItem, product *models.Product) (int, error) {
		return checkout.StepQuantity(item.Quantity, delta, product.MOQ, product.Stock)
	})
}

func (s *service) mutateLine(
	ctx context.Context,
	op string,
	buyerID, productID uuid.UUID,
	next func(item *models.CartItem, product *models.Product) (int, error),
) (*Cart, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity is required")
	}

	record, err := s.openCart(ctx, buyerID)
	if err != nil {
		return nil, s.record(op, err)
	}
	item, err := s.repo.FindItem(ctx, record.ID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.record(op, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found"))
		}
		return nil, s.record(op, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "load cart item"))
	}
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, s.record(op, err)
	}

	quantity, err := next(item, product)
	if err != nil {
		return nil, s.record(op, err)
	}

	if quantity != item.Quantity {
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			if err := txRepo.UpdateItemQuantity(ctx, item.ID, quantity, lineTotal(item.UnitPrice, quantity)); err != nil {
				return err
			}
			return txRepo.Touch(ctx, record.ID)
		})
		if err != nil {
			return nil, s.record(op, persistenceError(err, "update cart item"))
		}
	}

	s.record(op, nil)
	logCtx := s.logg.WithField(s.logCtx(ctx, buyerID, productID), "quantity", quantity)
	s.logg.Info(logCtx, "cart item quantity updated")
	return s.reload(ctx, buyerID)
}

// RemoveItem deletes the product line. Removing an absent product is a no-op.
func (s *service) RemoveItem(ctx context.Context, buyerID, productID uuid.UUID) (*Cart, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity is required")
	}
	record, err := s.openCart(ctx, buyerID)
	if err != nil {
		return nil, s.record(opRemoveItem, err)
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.DeleteItem(ctx, record.ID, productID); err != nil {
			return err
		}
		return txRepo.Touch(ctx, record.ID)
	})
	if err != nil {
		return nil, s.record(opRemoveItem, persistenceError(err, "remove cart item"))
	}
	s.record(opRemoveItem, nil)
	s.logg.Info(s.logCtx(ctx, buyerID, productID), "cart item removed")
	return s.reload(ctx, buyerID)
}

// Clear removes every line from the open cart.
func (s *service) Clear(ctx context.Context, buyerID uuid.UUID) (*Cart, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity is required")
	}
	record, err := s.openCart(ctx, buyerID)
	if err != nil {
		return nil, s.record(opClear, err)
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.DeleteItems(ctx, record.ID); err != nil {
			return err
		}
		return txRepo.Touch(ctx, record.ID)
	})
	if err != nil {
		return nil, s.record(opClear, persistenceError(err, "clear cart"))
	}
	s.record(opClear, nil)
	s.logg.Info(s.logg.WithUserID(ctx, buyerID.String()), "cart cleared")
	return s.reload(ctx, buyerID)
}

// openCart finds the open cart or creates it. A concurrent creator winning the
// one-open-cart index is resolved by re-reading.
func (s *service) openCart(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	record, err := s.repo.FindOpenByBuyer(ctx, buyerID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "load cart")
	}

	record = &models.Cart{BuyerID: buyerID, Status: enums.CartStatusOpen}
	if err := s.repo.Create(ctx, record); err != nil {
		if !dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "create cart")
		}
		record, err = s.repo.FindOpenByBuyer(ctx, buyerID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "load cart")
		}
		return record, nil
	}
	s.logg.Debug(s.logg.WithUserID(ctx, buyerID.String()), "open cart created")
	return record, nil
}

func (s *service) reload(ctx context.Context, buyerID uuid.UUID) (*Cart, error) {
	record, err := s.repo.FindOpenByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "load cart")
	}
	return s.view(ctx, record)
}

func (s *service) view(ctx context.Context, record *models.Cart) (*Cart, error) {
	if len(record.Items) == 0 {
		return BuildView(record, nil), nil
	}
	ids := make([]uuid.UUID, 0, len(record.Items))
	for _, item := range record.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "load cart products")
	}
	return BuildView(record, products), nil
}

func (s *service) loadProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product is not available")
	}
	return product, nil
}

func (s *service) record(op string, err error) error {
	result := "ok"
	if err != nil {
		result = string(pkgerrors.CodeOf(err))
	}
	s.metrics.CartMutation(op, result)
	return err
}

func (s *service) logCtx(ctx context.Context, buyerID, productID uuid.UUID) context.Context {
	ctx = s.logg.WithUserID(ctx, buyerID.String())
	return s.logg.WithField(ctx, "product_id", productID.String())
}

// persistenceError passes typed domain errors through and wraps anything else.
func persistenceError(err error, message string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, message)
}
