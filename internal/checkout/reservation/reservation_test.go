package reservation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
)

func TestReserveStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	productA := seedProduct(t, db, "SKU-A", 5)
	productB := seedProduct(t, db, "SKU-B", 1)

	requests := []Request{
		{CartItemID: uuid.New(), ProductID: productA, Qty: 3},
		{CartItemID: uuid.New(), ProductID: productA, Qty: 4},
		{CartItemID: uuid.New(), ProductID: productB, Qty: 1},
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		results, terr := ReserveStock(ctx, tx, requests)
		if terr != nil {
			return terr
		}
		if len(results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(results))
		}
		if !results[0].Reserved || results[0].Reason != "" {
			t.Fatalf("expected first reservation to succeed")
		}
		if results[1].Reserved || results[1].Reason == "" {
			t.Fatalf("expected second reservation to fail with reason")
		}
		if results[1].Available != 2 {
			t.Fatalf("expected 2 units reported available, got %d", results[1].Available)
		}
		if !results[2].Reserved {
			t.Fatalf("expected third reservation to succeed")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("reserve transaction: %v", err)
	}

	a := loadProduct(t, db, productA)
	b := loadProduct(t, db, productB)
	if a.Stock != 2 {
		t.Fatalf("unexpected stock for a: %d", a.Stock)
	}
	if b.Stock != 0 || b.StockStatus != enums.StockStatusOutOfStock {
		t.Fatalf("unexpected state for b: stock=%d status=%s", b.Stock, b.StockStatus)
	}
}

func TestReserveStockUnknownProduct(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	results, err := ReserveStock(context.Background(), db, []Request{{ProductID: uuid.New(), Qty: 1}})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if results[0].Reserved || results[0].Reason != "product not found" || results[0].Available != 0 {
		t.Fatalf("unexpected result: %+v", results[0])
	}
}

func TestReserveStockInvalidQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, "SKU-Q", 5)

	_, err := ReserveStock(ctx, db, []Request{{ProductID: product, Qty: 0}})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := loadProduct(t, db, product).Stock; got != 5 {
		t.Fatalf("stock changed to %d", got)
	}
}

func TestEngineRelease(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, "SKU-R", 0)
	engine := NewEngine()

	if err := engine.Release(ctx, db, product, 25); err != nil {
		t.Fatalf("release: %v", err)
	}
	got := loadProduct(t, db, product)
	if got.Stock != 25 || got.StockStatus != enums.StockStatusInStock {
		t.Fatalf("unexpected state: stock=%d status=%s", got.Stock, got.StockStatus)
	}

	if err := engine.Release(ctx, db, uuid.New(), 1); err == nil {
		t.Fatal("expected error releasing unknown product")
	}
}

func TestEngineLoad(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	product := seedProduct(t, db, "SKU-L", 3)

	rows, err := NewEngine().Load(context.Background(), db, []uuid.UUID{product, uuid.New()})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != product {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:reservation_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	for _, stmt := range []string{`
CREATE TABLE categories (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL,
  parent_id TEXT,
  is_visible_public BOOLEAN NOT NULL DEFAULT 1,
  sort_order INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`, `
CREATE TABLE products (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL UNIQUE,
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
  updated_at DATETIME
);`} {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, sku string, stock int) uuid.UUID {
	t.Helper()
	product := &models.Product{
		ID:             uuid.New(),
		SKU:            sku,
		Name:           "Product " + sku,
		WholesalePrice: decimal.RequireFromString("4.50"),
		MOQ:            1,
		Stock:          stock,
		IsActive:       true,
		GalleryImages:  []string{},
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product.ID
}

func loadProduct(t *testing.T, db *gorm.DB, id uuid.UUID) models.Product {
	t.Helper()
	var product models.Product
	if err := db.First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product
}
