package products

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	"github.com/angelmondragon/siver-b2b-backend/pkg/pagination"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE categories (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  parent_id TEXT,
  is_visible_public BOOLEAN NOT NULL DEFAULT 1,
  sort_order INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`, `
CREATE TABLE suppliers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  contact_email TEXT,
  contact_phone TEXT,
  country TEXT,
  created_at DATETIME
);`, `
CREATE TABLE products (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  short_description TEXT,
  long_description TEXT,
  wholesale_price NUMERIC NOT NULL,
  suggested_retail_price NUMERIC,
  moq INTEGER NOT NULL DEFAULT 1,
  stock INTEGER NOT NULL DEFAULT 0,
  stock_status TEXT NOT NULL DEFAULT 'out_of_stock',
  weight_kg NUMERIC,
  dimensions_cm TEXT,
  primary_image TEXT,
  gallery_images TEXT NOT NULL DEFAULT '[]',
  source_url TEXT,
  category_id TEXT,
  supplier_id TEXT,
  is_active BOOLEAN NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  CONSTRAINT products_sku_key UNIQUE (sku)
);`, `
CREATE TABLE product_price_history (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  field TEXT NOT NULL,
  previous_value TEXT NOT NULL,
  new_value TEXT NOT NULL,
  changed_by TEXT,
  created_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, sku string, mutate func(p *models.Product)) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:             uuid.New(),
		SKU:            sku,
		Name:           "Product " + sku,
		WholesalePrice: decimal.RequireFromString("10.00"),
		MOQ:            10,
		Stock:          100,
		IsActive:       true,
		GalleryImages:  []string{},
	}
	if mutate != nil {
		mutate(product)
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func seedCategory(t *testing.T, db *gorm.DB, slug string, parentID *uuid.UUID) *models.Category {
	t.Helper()
	category := &models.Category{
		ID:              uuid.New(),
		Name:            slug,
		Slug:            slug,
		ParentID:        parentID,
		IsVisiblePublic: true,
	}
	require.NoError(t, db.Create(category).Error)
	return category
}

func TestRepositoryListFilters(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	parent := seedCategory(t, db, "electronics", nil)
	child := seedCategory(t, db, "phones", &parent.ID)
	other := seedCategory(t, db, "garden", nil)

	seedProduct(t, db, "PH-001", func(p *models.Product) { p.CategoryID = &child.ID; p.Name = "Android Phone" })
	seedProduct(t, db, "EL-002", func(p *models.Product) { p.CategoryID = &parent.ID; p.Name = "USB Cable" })
	seedProduct(t, db, "GD-003", func(p *models.Product) { p.CategoryID = &other.ID; p.Name = "Hose" })
	seedProduct(t, db, "PH-004", func(p *models.Product) { p.CategoryID = &child.ID; p.IsActive = false })

	page, err := repo.List(ctx, listQuery{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, page.Products, 3)
	assert.Empty(t, page.NextCursor)

	page, err = repo.List(ctx, listQuery{})
	require.NoError(t, err)
	assert.Len(t, page.Products, 4, "inactive products are returned when not filtered")

	page, err = repo.List(ctx, listQuery{Params: ListParams{Search: "ph-"}, ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "PH-001", page.Products[0].SKU)

	page, err = repo.List(ctx, listQuery{Params: ListParams{Search: "cable"}, ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "EL-002", page.Products[0].SKU)

	page, err = repo.List(ctx, listQuery{
		Params:      ListParams{CategoryID: &parent.ID},
		CategoryIDs: []uuid.UUID{parent.ID, child.ID},
		ActiveOnly:  true,
	})
	require.NoError(t, err)
	assert.Len(t, page.Products, 2, "parent category includes its descendants")
	for _, p := range page.Products {
		require.NotNil(t, p.Category, "category is preloaded")
	}

	lowStock := enums.StockStatusLowStock
	seedProduct(t, db, "LS-005", func(p *models.Product) { p.Stock = 15 })
	page, err = repo.List(ctx, listQuery{Params: ListParams{StockStatus: &lowStock}, ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "LS-005", page.Products[0].SKU)
}

func TestRepositoryListOffsetSortAndPaging(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedProduct(t, db, "A", func(p *models.Product) { p.WholesalePrice = decimal.RequireFromString("30") })
	seedProduct(t, db, "B", func(p *models.Product) { p.WholesalePrice = decimal.RequireFromString("5.50") })
	seedProduct(t, db, "C", func(p *models.Product) { p.WholesalePrice = decimal.RequireFromString("12") })

	page, err := repo.List(ctx, listQuery{Params: ListParams{Sort: enums.ProductSortPriceAsc, Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "B", page.Products[0].SKU)
	assert.Equal(t, "C", page.Products[1].SKU)
	require.NotEmpty(t, page.NextCursor)

	page, err = repo.List(ctx, listQuery{Params: ListParams{Sort: enums.ProductSortPriceAsc, Limit: 2, Cursor: page.NextCursor}})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "A", page.Products[0].SKU)
	assert.Empty(t, page.NextCursor)

	page, err = repo.List(ctx, listQuery{Params: ListParams{Sort: enums.ProductSortPriceDesc}})
	require.NoError(t, err)
	require.Len(t, page.Products, 3)
	assert.Equal(t, "A", page.Products[0].SKU)
}

func TestRepositoryListKeysetPaging(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, sku := range []string{"OLD", "MID", "NEW"} {
		offset := time.Duration(i) * time.Hour
		seedProduct(t, db, sku, func(p *models.Product) {
			p.CreatedAt = base.Add(offset)
			p.UpdatedAt = base.Add(offset)
		})
	}

	page, err := repo.List(ctx, listQuery{Params: ListParams{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "NEW", page.Products[0].SKU)
	assert.Equal(t, "MID", page.Products[1].SKU)
	require.NotEmpty(t, page.NextCursor)

	page, err = repo.List(ctx, listQuery{Params: ListParams{Limit: 2, Cursor: page.NextCursor}})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "OLD", page.Products[0].SKU)
	assert.Empty(t, page.NextCursor)

	_, err = repo.List(ctx, listQuery{Params: ListParams{Cursor: pagination.EncodeOffset(3)}})
	require.Error(t, err, "an offset cursor is not a keyset cursor")
}

func TestRepositoryConditionalStockUpdates(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product := seedProduct(t, db, "STK", func(p *models.Product) { p.MOQ = 30; p.Stock = 100 })

	ok, err := repo.DecrementStock(ctx, product.ID, 50)
	require.NoError(t, err)
	require.True(t, ok)

	reloaded, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, reloaded.Stock)
	assert.Equal(t, enums.StockStatusLowStock, reloaded.StockStatus)

	ok, err = repo.DecrementStock(ctx, product.ID, 60)
	require.NoError(t, err)
	assert.False(t, ok, "insufficient stock leaves the row untouched")

	ok, err = repo.DecrementStock(ctx, product.ID, 50)
	require.NoError(t, err)
	require.True(t, ok)
	reloaded, err = repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.Stock)
	assert.Equal(t, enums.StockStatusOutOfStock, reloaded.StockStatus)

	require.NoError(t, repo.RestoreStock(ctx, product.ID, 70))
	reloaded, err = repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 70, reloaded.Stock)
	assert.Equal(t, enums.StockStatusInStock, reloaded.StockStatus)

	require.ErrorIs(t, repo.RestoreStock(ctx, uuid.New(), 1), gorm.ErrRecordNotFound)
}

func TestRepositoryKPIs(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedProduct(t, db, "K1", func(p *models.Product) { p.Stock = 100; p.MOQ = 10 })
	seedProduct(t, db, "K2", func(p *models.Product) { p.Stock = 5; p.MOQ = 10 })
	seedProduct(t, db, "K3", func(p *models.Product) { p.Stock = 0; p.MOQ = 10 })
	seedProduct(t, db, "K4", func(p *models.Product) { p.Stock = 999; p.IsActive = false })

	kpis, err := repo.KPIs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), kpis.TotalSKUs)
	assert.Equal(t, int64(105), kpis.TotalStock)
	assert.Equal(t, int64(2), kpis.LowMOQAlerts)
	assert.Equal(t, int64(1), kpis.OutOfStock)
}

func TestRepositoryPriceHistoryNewestFirst(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product := seedProduct(t, db, "PH", nil)
	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)
	require.NoError(t, repo.InsertPriceHistory(ctx, []models.PriceHistoryEntry{
		{ProductID: product.ID, Field: enums.PriceHistoryFieldWholesalePrice, PreviousValue: "10.00", NewValue: "11.00", CreatedAt: older},
		{ProductID: product.ID, Field: enums.PriceHistoryFieldMOQ, PreviousValue: "10", NewValue: "20", CreatedAt: newer},
	}))

	rows, err := repo.ListPriceHistory(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, enums.PriceHistoryFieldMOQ, rows[0].Field)
	assert.Equal(t, enums.PriceHistoryFieldWholesalePrice, rows[1].Field)
}
