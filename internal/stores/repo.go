package stores

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/siver-b2b-backend/pkg/db"
	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
)

const defaultStoreName = "My store"

// Repository handles seller storefront persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to store operations.
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

// Create persists a new store row.
func (r *Repository) Create(ctx context.Context, store *models.Store) error {
	if store == nil {
		return fmt.Errorf("store is required")
	}
	if store.ID == uuid.Nil {
		store.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(store).Error
}

// FindByOwner returns the store owned by the provided user.
func (r *Repository) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).Where("owner_user_id = ?", ownerID).First(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

// EnsureForOwner returns the owner's store, creating it on first use. A
// concurrent creator winning the owner unique key is resolved by re-reading.
func (r *Repository) EnsureForOwner(ctx context.Context, ownerID uuid.UUID) (*models.Store, bool, error) {
	if ownerID == uuid.Nil {
		return nil, false, fmt.Errorf("owner id is required")
	}
	store, err := r.FindByOwner(ctx, ownerID)
	if err == nil {
		return store, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	store = &models.Store{OwnerUserID: ownerID, Name: defaultStoreName}
	if err := r.Create(ctx, store); err != nil {
		if !dbpkg.IsUniqueViolation(err, "") {
			return nil, false, err
		}
		store, err = r.FindByOwner(ctx, ownerID)
		if err != nil {
			return nil, false, err
		}
		return store, false, nil
	}
	return store, true, nil
}
