package migrate

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/siver-b2b-backend/pkg/config"
	"github.com/angelmondragon/siver-b2b-backend/pkg/db"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on startup when running in dev
// with SIVER_AUTO_MIGRATE enabled. The schema is Postgres DDL, so sqlite
// connections are left to gorm-managed test schemas.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": cfg.DB.Driver})

	dialect, err := DialectFor(cfg.DB.Driver)
	if err != nil {
		return err
	}
	if dialect != goose.DialectPostgres {
		logg.Warn(ctx, "dev auto-migrate only runs against postgres")
		return nil
	}

	conn, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	runner, err := NewRunner(conn, dialect, Embedded(), logg)
	if err != nil {
		return err
	}

	logg.Info(ctx, "applying migrations on startup")
	return runner.Apply(ctx, "up")
}
