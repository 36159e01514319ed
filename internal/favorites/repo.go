package favorites

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/pagination"
)

// Repository encapsulates favorites persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a favorites repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Add inserts a favorite and ignores duplicates.
func (r *Repository) Add(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil || productID == uuid.Nil {
		return gorm.ErrInvalidValue
	}
	return r.db.WithContext(ctx).
		Exec(`INSERT INTO favorites (id, user_id, product_id, created_at) VALUES (?, ?, ?, ?) ON CONFLICT (user_id, product_id) DO NOTHING`,
			uuid.New(), userID, productID, time.Now().UTC()).
		Error
}

// Remove deletes the favorite if it exists.
func (r *Repository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.Favorite{}).
		Error
}

type favoritesPage struct {
	Favorites  []models.Favorite
	NextCursor string
}

// List returns a user's favorites, most recent first.
func (r *Repository) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*favoritesPage, error) {
	keyset, err := pagination.NewKeyset(params)
	if err != nil {
		return nil, err
	}

	var rows []models.Favorite
	query := r.db.WithContext(ctx).
		Model(&models.Favorite{}).
		Where("user_id = ?", userID)
	if err := keyset.Apply(query).Find(&rows).Error; err != nil {
		return nil, err
	}

	page := &favoritesPage{}
	page.Favorites, page.NextCursor = pagination.Trim(rows, keyset.Limit, func(f models.Favorite) pagination.Cursor {
		return pagination.Cursor{CreatedAt: f.CreatedAt, ID: f.ID}
	})
	return page, nil
}
