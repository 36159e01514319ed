package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/siver-b2b-backend/internal/cart"
	"github.com/angelmondragon/siver-b2b-backend/internal/orders"
	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
)

// Repository exposes the cart and order queries checkout needs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockOpenCart(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error)
	FindCompletedOrder(ctx context.Context, buyerID uuid.UUID) (*models.Order, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	CompleteCart(ctx context.Context, cartID uuid.UUID, at time.Time) error
}

type repository struct {
	carts  cart.CartRepository
	orders orders.Repository
}

// NewRepository builds a checkout repository backed by the cart and order repositories.
func NewRepository(carts cart.CartRepository, ordersRepo orders.Repository) Repository {
	if carts == nil || ordersRepo == nil {
		return nil
	}
	return &repository{carts: carts, orders: ordersRepo}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{
		carts:  r.carts.WithTx(tx),
		orders: r.orders.WithTx(tx),
	}
}

func (r *repository) LockOpenCart(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	return r.carts.LockOpenByBuyer(ctx, buyerID)
}

// FindCompletedOrder returns the order of the buyer's most recent cart when
// that cart has already been checked out. It returns nil, nil otherwise.
func (r *repository) FindCompletedOrder(ctx context.Context, buyerID uuid.UUID) (*models.Order, error) {
	latest, err := r.carts.FindLatestByBuyer(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if latest.Status != enums.CartStatusCompleted {
		return nil, nil
	}
	order, err := r.orders.FindByCartID(ctx, latest.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.orders.Create(ctx, order)
}

func (r *repository) CompleteCart(ctx context.Context, cartID uuid.UUID, at time.Time) error {
	return r.carts.UpdateStatus(ctx, cartID, enums.CartStatusCompleted, &at)
}
