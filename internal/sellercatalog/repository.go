package sellercatalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/siver-b2b-backend/pkg/db"
	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
)

// Repository persists seller catalog entries and their stock movements.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to seller catalog operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListByStore returns every entry of the store, newest import first.
func (r *Repository) ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.SellerCatalogItem, error) {
	var rows []models.SellerCatalogItem
	err := r.db.WithContext(ctx).
		Where("seller_store_id = ?", storeID).
		Order("imported_at DESC").
		Order("id DESC").
		Find(&rows).
		Error
	return rows, err
}

// FindForStore loads an entry owned by the store.
func (r *Repository) FindForStore(ctx context.Context, storeID, id uuid.UUID) (*models.SellerCatalogItem, error) {
	var item models.SellerCatalogItem
	if err := r.db.WithContext(ctx).Where("id = ? AND seller_store_id = ?", id, storeID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// LockForStore loads an entry owned by the store and locks its row.
func (r *Repository) LockForStore(ctx context.Context, storeID, id uuid.UUID) (*models.SellerCatalogItem, error) {
	var item models.SellerCatalogItem
	err := dbpkg.ForUpdate(r.db.WithContext(ctx), false).
		Where("id = ? AND seller_store_id = ?", id, storeID).
		First(&item).
		Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ExistsForOrderProduct reports whether the order line was already released.
func (r *Repository) ExistsForOrderProduct(ctx context.Context, orderID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SellerCatalogItem{}).
		Where("source_order_id = ? AND source_product_id = ?", orderID, productID).
		Count(&count).
		Error
	return count > 0, err
}

func (r *Repository) Insert(ctx context.Context, item *models.SellerCatalogItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.Images == nil {
		item.Images = []string{}
	}
	return r.db.WithContext(ctx).Create(item).Error
}

// Update applies column updates to an entry. gorm.ErrRecordNotFound is returned
// when nothing matched.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.SellerCatalogItem{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) InsertMovement(ctx context.Context, movement *models.InventoryMovement) error {
	if movement == nil {
		return errors.New("movement is required")
	}
	if movement.ID == uuid.Nil {
		movement.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(movement).Error
}

// ListMovements returns the stock history of an entry, newest first.
func (r *Repository) ListMovements(ctx context.Context, itemID uuid.UUID) ([]models.InventoryMovement, error) {
	var rows []models.InventoryMovement
	err := r.db.WithContext(ctx).
		Where("seller_catalog_id = ?", itemID).
		Order("created_at DESC").
		Find(&rows).
		Error
	return rows, err
}
