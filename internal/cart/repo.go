package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/siver-b2b-backend/pkg/db"
	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
)

// Repository exposes persistence operations for carts and their lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindOpenByBuyer loads the buyer's open cart with its lines in insertion order.
func (r *Repository) FindOpenByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	return r.findOpen(r.db.WithContext(ctx), buyerID)
}

// LockOpenByBuyer is FindOpenByBuyer with the cart row locked for the enclosing transaction.
func (r *Repository) LockOpenByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	return r.findOpen(dbpkg.ForUpdate(r.db.WithContext(ctx), false), buyerID)
}

func (r *Repository) findOpen(query *gorm.DB, buyerID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Where("buyer_id = ? AND status = ?", buyerID, enums.CartStatusOpen).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindLatestByBuyer returns the most recently updated cart regardless of status.
func (r *Repository) FindLatestByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("updated_at DESC").
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// Create inserts a new open cart.
func (r *Repository) Create(ctx context.Context, cart *models.Cart) error {
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	if cart.Status == "" {
		cart.Status = enums.CartStatusOpen
	}
	return r.db.WithContext(ctx).Omit("Items").Create(cart).Error
}

// FindItem returns the line for productID in the cart.
func (r *Repository) FindItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// InsertItem adds a new cart line.
func (r *Repository) InsertItem(ctx context.Context, item *models.CartItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(item).Error
}

// UpdateItemQuantity rewrites the quantity and line total of an existing line.
func (r *Repository) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int, total decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{
			"quantity":    quantity,
			"total_price": total,
			"updated_at":  time.Now().UTC(),
		}).Error
}

// DeleteItem removes the line for productID. Missing lines are not an error.
func (r *Repository) DeleteItem(ctx context.Context, cartID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{}).Error
}

// DeleteItems removes every line from the cart.
func (r *Repository) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
}

// Touch bumps updated_at so the cart sorts as most recently modified.
func (r *Repository) Touch(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("updated_at", time.Now().UTC()).Error
}

// UpdateStatus transitions the cart lifecycle status.
func (r *Repository) UpdateStatus(ctx context.Context, cartID uuid.UUID, status enums.CartStatus, completedAt *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{
			"status":       status,
			"completed_at": completedAt,
			"updated_at":   time.Now().UTC(),
		}).Error
}
