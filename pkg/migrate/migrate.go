package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/siver-b2b-backend/pkg/db"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
)

// DefaultDir is where new migrations are written and where the embedded set lives.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Embedded returns the migrations compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Source resolves the migration set: the embedded files when dir is empty or
// the default directory, otherwise dir read from disk.
func Source(dir string) fs.FS {
	if dir == "" || dir == DefaultDir {
		return Embedded()
	}
	return os.DirFS(dir)
}

// DialectFor maps a configured database driver onto a goose dialect.
func DialectFor(driver string) (goose.Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", db.DriverPostgres:
		return goose.DialectPostgres, nil
	case db.DriverSQLite:
		return goose.DialectSQLite3, nil
	default:
		return "", fmt.Errorf("no migration dialect for driver %q", driver)
	}
}

// Runner applies goose migrations and logs every applied or rolled back version.
type Runner struct {
	provider *goose.Provider
	logg     *logger.Logger
}

func NewRunner(conn *sql.DB, dialect goose.Dialect, migrations fs.FS, logg *logger.Logger) (*Runner, error) {
	if conn == nil {
		return nil, errors.New("sql db is required")
	}
	if migrations == nil {
		return nil, errors.New("migration source is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	provider, err := goose.NewProvider(dialect, conn, migrations)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider, logg: logg}, nil
}

// Apply runs one of up, down, redo or status.
func (r *Runner) Apply(ctx context.Context, command string) error {
	switch command {
	case "up":
		results, err := r.provider.Up(ctx)
		r.logResults(ctx, results...)
		if err != nil {
			return fmt.Errorf("goose up: %w", err)
		}
		if len(results) == 0 {
			r.logg.Info(ctx, "schema already up to date")
		}
		return nil
	case "down":
		return r.down(ctx)
	case "redo":
		if err := r.down(ctx); err != nil {
			return err
		}
		result, err := r.provider.UpByOne(ctx)
		r.logResults(ctx, result)
		if err != nil {
			return fmt.Errorf("goose redo up: %w", err)
		}
		return nil
	case "status":
		statuses, err := r.provider.Status(ctx)
		if err != nil {
			return fmt.Errorf("goose status: %w", err)
		}
		for _, st := range statuses {
			fields := map[string]any{
				"version": st.Source.Version,
				"file":    st.Source.Path,
				"state":   string(st.State),
			}
			if !st.AppliedAt.IsZero() {
				fields["applied_at"] = st.AppliedAt
			}
			r.logg.Info(r.logg.WithFields(ctx, fields), "migration status")
		}
		return nil
	default:
		return fmt.Errorf("unsupported migration command %q", command)
	}
}

// To migrates up or down until the database sits at version (YYYYMMDDHHMMSS).
func (r *Runner) To(ctx context.Context, version string) error {
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", version, err)
	}

	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("read db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		r.logg.Info(r.logg.WithField(ctx, "version", target), "already at requested version")
		return nil
	case current < target:
		results, err = r.provider.UpTo(ctx, target)
	default:
		results, err = r.provider.DownTo(ctx, target)
	}
	r.logResults(ctx, results...)
	if err != nil {
		return fmt.Errorf("migrate to %d: %w", target, err)
	}
	return nil
}

// Version reports the highest applied migration.
func (r *Runner) Version(ctx context.Context) (int64, error) {
	return r.provider.GetDBVersion(ctx)
}

func (r *Runner) down(ctx context.Context) error {
	result, err := r.provider.Down(ctx)
	r.logResults(ctx, result)
	if err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	return nil
}

func (r *Runner) logResults(ctx context.Context, results ...*goose.MigrationResult) {
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		fields := map[string]any{
			"version":     res.Source.Version,
			"file":        res.Source.Path,
			"direction":   res.Direction,
			"duration_ms": res.Duration.Milliseconds(),
		}
		if res.Error != nil {
			r.logg.Error(r.logg.WithFields(ctx, fields), "migration failed", res.Error)
			continue
		}
		r.logg.Info(r.logg.WithFields(ctx, fields), "migration applied")
	}
}
