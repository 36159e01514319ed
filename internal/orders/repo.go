package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/siver-b2b-backend/pkg/db"
	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	"github.com/angelmondragon/siver-b2b-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

type orderPage struct {
	Orders     []models.Order
	NextCursor string
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order and its items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].OrderID = order.ID
	}
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.first(r.db.WithContext(ctx), "id = ?", id)
}

// LockByID loads the order with its items and locks the order row.
func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.first(dbpkg.ForUpdate(r.db.WithContext(ctx), false), "id = ?", id)
}

func (r *repository) FindByCartID(ctx context.Context, cartID uuid.UUID) (*models.Order, error) {
	return r.first(r.db.WithContext(ctx), "cart_id = ?", cartID)
}

func (r *repository) first(query *gorm.DB, where string, arg any) (*models.Order, error) {
	var order models.Order
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("sku ASC")
		}).
		Where(where, arg).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns orders newest first using a created_at/id keyset.
func (r *repository) List(ctx context.Context, filters ListFilters, params pagination.Params) (*orderPage, error) {
	keyset, err := pagination.NewKeyset(params)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("sku ASC")
		})
	if filters.BuyerID != nil {
		qb = qb.Where("buyer_id = ?", *filters.BuyerID)
	}
	if filters.Status != nil {
		qb = qb.Where("status = ?", *filters.Status)
	}

	var rows []models.Order
	if err := keyset.Apply(qb).Find(&rows).Error; err != nil {
		return nil, err
	}

	page := &orderPage{}
	page.Orders, page.NextCursor = pagination.Trim(rows, keyset.Limit, orderCursor)
	return page, nil
}

func orderCursor(o models.Order) pagination.Cursor {
	return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
}

// FindPendingBefore returns orders still awaiting payment that were placed
// before cutoff, oldest first. Items are not loaded.
func (r *repository) FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = pagination.MaxLimit
	}
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.OrderStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
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
