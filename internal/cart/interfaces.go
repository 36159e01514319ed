package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindOpenByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error)
	LockOpenByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error)
	FindLatestByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) error
	FindItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error)
	InsertItem(ctx context.Context, item *models.CartItem) error
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int, total decimal.Decimal) error
	DeleteItem(ctx context.Context, cartID, productID uuid.UUID) error
	DeleteItems(ctx context.Context, cartID uuid.UUID) error
	Touch(ctx context.Context, cartID uuid.UUID) error
	UpdateStatus(ctx context.Context, cartID uuid.UUID, status enums.CartStatus, completedAt *time.Time) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
