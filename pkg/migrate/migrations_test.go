package migrate_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
	"github.com/angelmondragon/siver-b2b-backend/pkg/migrate"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsContainConstraints(t *testing.T) {
	cases := map[string][]string{
		"*_create_catalog_tables.sql": {
			"CREATE TABLE IF NOT EXISTS products",
			"CONSTRAINT products_sku_key UNIQUE (sku)",
			"CHECK (moq >= 1)",
			"CHECK (stock >= 0)",
			"CREATE TABLE IF NOT EXISTS product_price_history",
			"DROP TABLE IF EXISTS products",
		},
		"*_create_carts_and_orders.sql": {
			"CREATE UNIQUE INDEX IF NOT EXISTS carts_one_open_per_buyer ON carts (buyer_id) WHERE status = 'open'",
			"CONSTRAINT cart_items_cart_product_key UNIQUE (cart_id, product_id)",
			"CONSTRAINT orders_cart_id_key UNIQUE (cart_id)",
			"CHECK (payment_method IN ('stripe', 'moncash', 'transfer'))",
			"DROP TABLE IF EXISTS orders",
		},
		"*_create_seller_catalog.sql": {
			"seller_catalog_order_product_key",
			"CREATE TABLE IF NOT EXISTS inventory_movements",
			"CONSTRAINT favorites_user_product_key UNIQUE (user_id, product_id)",
		},
		"*_create_outbox.sql": {
			"CREATE TABLE IF NOT EXISTS outbox_events",
			"ux_outbox_events_event_aggregate",
			"CREATE TABLE IF NOT EXISTS outbox_dlq",
		},
	}

	for pattern, checks := range cases {
		content := readMigration(t, pattern)
		for _, sub := range checks {
			if !strings.Contains(content, sub) {
				t.Errorf("%s missing expected statement %q", pattern, sub)
			}
		}
	}
}

func TestShippedMigrationsValidate(t *testing.T) {
	if err := migrate.Validate(migrate.Embedded()); err != nil {
		t.Fatalf("validate embedded migrations: %v", err)
	}
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations on disk: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"bad name": {
			"add_things.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"duplicate version": {
			"20250101000000_one.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
			"20250101000000_two.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"missing down": {
			"20250101000000_one.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")},
		},
		"unterminated block": {
			"20250101000000_one.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n")},
		},
		"empty": {},
	}
	for name, source := range cases {
		t.Run(name, func(t *testing.T) {
			if err := migrate.Validate(source); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	stamp := time.Date(2025, 7, 4, 9, 30, 0, 0, time.UTC)

	path, err := migrate.CreateSQLMigration(dir, "Add Seller Notes!", stamp)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20250704093000_add_seller_notes.sql" {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "add seller notes", stamp); err == nil {
		t.Fatal("expected collision error")
	}
	if _, err := migrate.CreateSQLMigration(dir, "!!!", stamp); err == nil {
		t.Fatal("expected empty name error")
	}
}

func TestDialectFor(t *testing.T) {
	got, err := migrate.DialectFor("Postgres")
	require.NoError(t, err)
	require.Equal(t, goose.DialectPostgres, got)

	got, err = migrate.DialectFor("sqlite")
	require.NoError(t, err)
	require.Equal(t, goose.DialectSQLite3, got)

	_, err = migrate.DialectFor("mysql")
	require.Error(t, err)
}

func TestRunnerMovesBetweenVersions(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "migrate.db")), &gorm.Config{})
	require.NoError(t, err)
	conn, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	source := fstest.MapFS{
		"20250101000000_create_widgets.sql": {Data: []byte("-- +goose Up\nCREATE TABLE widgets (id INTEGER PRIMARY KEY);\n\n-- +goose Down\nDROP TABLE widgets;\n")},
		"20250102000000_create_gadgets.sql": {Data: []byte("-- +goose Up\nCREATE TABLE gadgets (id INTEGER PRIMARY KEY);\n\n-- +goose Down\nDROP TABLE gadgets;\n")},
	}

	runner, err := migrate.NewRunner(conn, goose.DialectSQLite3, source, logger.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, runner.Apply(ctx, "up"))
	version, err := runner.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(20250102000000), version)
	require.True(t, gdb.Migrator().HasTable("gadgets"))

	require.NoError(t, runner.To(ctx, "20250101000000"))
	version, err = runner.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(20250101000000), version)
	require.False(t, gdb.Migrator().HasTable("gadgets"))

	require.NoError(t, runner.Apply(ctx, "redo"))
	require.True(t, gdb.Migrator().HasTable("widgets"))
	require.NoError(t, runner.Apply(ctx, "status"))

	require.Error(t, runner.Apply(ctx, "sideways"))
	require.Error(t, runner.To(ctx, "latest"))
}
