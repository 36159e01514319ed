package products

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/angelmondragon/siver-b2b-backend/pkg/db"
	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
	"github.com/angelmondragon/siver-b2b-backend/pkg/pagination"
)

// stockStatusSQL mirrors enums.DeriveStockStatus for a stock expression so
// conditional updates keep stock_status consistent without a reload.
const stockStatusSQL = `CASE WHEN %[1]s <= 0 THEN 'out_of_stock' ` +
	`WHEN %[1]s < 2 * (CASE WHEN moq < 1 THEN 1 ELSE moq END) THEN 'low_stock' ` +
	`ELSE 'in_stock' END`

// Repository wires together all catalog persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
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

// FindByID loads the product with its category and supplier.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Supplier").
		First(&product, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// LockByID loads the product and locks its row for the enclosing transaction.
func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := dbpkg.ForUpdate(r.db.WithContext(ctx), false).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads every listed product that exists. Missing ids are omitted.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("id IN ?", ids).
		Find(&rows).
		Error
	return rows, err
}

// Create inserts a new product row.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.GalleryImages == nil {
		product.GalleryImages = []string{}
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error
}

// Save persists every column of an existing product.
func (r *Repository) Save(ctx context.Context, product *models.Product) error {
	if product.GalleryImages == nil {
		product.GalleryImages = []string{}
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(product).Error
}

// Delete removes a product by ID. gorm.ErrRecordNotFound is returned when nothing matched.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DecrementStock removes qty units only when at least qty are on hand. It
// reports false without writing when the stock is insufficient.
func (r *Repository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumns(stockDelta(-qty))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// RestoreStock returns qty units to the product.
func (r *Repository) RestoreStock(ctx context.Context, id uuid.UUID, qty int) error {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumns(stockDelta(qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func stockDelta(delta int) map[string]any {
	next := "(stock + ?)"
	return map[string]any{
		"stock":        gorm.Expr(next, delta),
		"stock_status": gorm.Expr(fmt.Sprintf(stockStatusSQL, next), delta, delta),
		"updated_at":   time.Now().UTC(),
	}
}

// List returns one page of products matching the query.
func (r *Repository) List(ctx context.Context, query listQuery) (*productPage, error) {
	pageSize := pagination.NormalizeLimit(query.Params.Limit)

	qb := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Preload("Category").
		Preload("Supplier")

	if query.ActiveOnly {
		qb = qb.Where("is_active = ?", true)
	}
	if search := strings.TrimSpace(query.Params.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(name) LIKE ? OR LOWER(sku) LIKE ?)", pattern, pattern)
	}
	if query.Params.CategoryID != nil {
		ids := query.CategoryIDs
		if len(ids) == 0 {
			ids = []uuid.UUID{*query.Params.CategoryID}
		}
		qb = qb.Where("category_id IN ?", ids)
	}
	if query.Params.SupplierID != nil {
		qb = qb.Where("supplier_id = ?", *query.Params.SupplierID)
	}
	if query.Params.StockStatus != nil {
		qb = qb.Where("stock_status = ?", *query.Params.StockStatus)
	}

	if query.Params.Sort == "" || query.Params.Sort == enums.ProductSortNewest {
		return r.listByKeyset(qb, pagination.Params{Limit: pageSize, Cursor: query.Params.Cursor})
	}
	return r.listByOffset(qb, query.Params.Sort, query.Params.Cursor, pageSize)
}

func (r *Repository) listByKeyset(qb *gorm.DB, params pagination.Params) (*productPage, error) {
	keyset, err := pagination.NewKeyset(params)
	if err != nil {
		return nil, err
	}

	var rows []models.Product
	if err := keyset.Apply(qb).Find(&rows).Error; err != nil {
		return nil, err
	}

	page := &productPage{}
	page.Products, page.NextCursor = pagination.Trim(rows, keyset.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return page, nil
}

func (r *Repository) listByOffset(qb *gorm.DB, sort enums.ProductSort, rawCursor string, pageSize int) (*productPage, error) {
	offset, err := pagination.ParseOffset(rawCursor)
	if err != nil {
		return nil, err
	}

	switch sort {
	case enums.ProductSortPriceAsc:
		qb = qb.Order("wholesale_price ASC")
	case enums.ProductSortPriceDesc:
		qb = qb.Order("wholesale_price DESC")
	case enums.ProductSortMOQAsc:
		qb = qb.Order("moq ASC")
	case enums.ProductSortMOQDesc:
		qb = qb.Order("moq DESC")
	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported sort %q", sort)
	}

	var rows []models.Product
	if err := qb.Order("id ASC").Offset(offset).Limit(pageSize + 1).Find(&rows).Error; err != nil {
		return nil, err
	}

	page := &productPage{Products: rows}
	if len(rows) > pageSize {
		page.Products = rows[:pageSize]
		page.NextCursor = pagination.EncodeOffset(offset + pageSize)
	}
	return page, nil
}

// KPIs aggregates the active catalog.
func (r *Repository) KPIs(ctx context.Context) (*KPIs, error) {
	var out KPIs
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select(strings.Join([]string{
			"COUNT(*) AS total_skus",
			"COALESCE(SUM(stock), 0) AS total_stock",
			"COALESCE(SUM(CASE WHEN stock < moq THEN 1 ELSE 0 END), 0) AS low_moq_alerts",
			"COALESCE(SUM(CASE WHEN stock_status = 'out_of_stock' THEN 1 ELSE 0 END), 0) AS out_of_stock",
		}, ", ")).
		Where("is_active = ?", true).
		Scan(&out).
		Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// InsertPriceHistory appends audit rows.
func (r *Repository) InsertPriceHistory(ctx context.Context, entries []models.PriceHistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		if entries[i].ID == uuid.Nil {
			entries[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}

// ListPriceHistory returns the product's audit rows newest first.
func (r *Repository) ListPriceHistory(ctx context.Context, productID uuid.UUID) ([]models.PriceHistoryEntry, error) {
	var rows []models.PriceHistoryEntry
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).
		Error
	return rows, err
}

// ListSuppliers returns all suppliers ordered by name.
func (r *Repository) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	var rows []models.Supplier
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

// CreateSupplier inserts a supplier row.
func (r *Repository) CreateSupplier(ctx context.Context, supplier *models.Supplier) error {
	if supplier.ID == uuid.Nil {
		supplier.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(supplier).Error
}
