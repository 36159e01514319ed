package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/siver-b2b-backend/pkg/config"
	"github.com/angelmondragon/siver-b2b-backend/pkg/db"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
	"github.com/angelmondragon/siver-b2b-backend/pkg/migrate"
)

// dbCommands need a live database.
var dbCommands = map[string]bool{
	"up":      true,
	"down":    true,
	"status":  true,
	"redo":    true,
	"version": true,
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|redo|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "migrations directory (default uses the embedded set)")
	name := flag.String("name", "", "migration name (for -cmd=create)")
	version := flag.String("version", "", "target version YYYYMMDDHHMMSS (for -cmd=version)")
	flag.Parse()

	// create and validate only touch the filesystem
	switch *cmd {
	case "create":
		if *name == "" {
			exitf("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(*dir, *name, time.Now())
		if err != nil {
			exitf("failed to create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			exitf("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	if !dbCommands[*cmd] {
		exitf("unknown -cmd value: %s", *cmd)
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.SQL()
	requireResource(ctx, logg, "sql database", err)

	dialect, err := migrate.DialectFor(cfg.DB.Driver)
	requireResource(ctx, logg, "migration dialect", err)

	runner, err := migrate.NewRunner(sqlDB, dialect, migrate.Source(*dir), logg)
	requireResource(ctx, logg, "migration runner", err)

	if *cmd == "version" {
		if *version == "" {
			exitf("missing -version for version command")
		}
		err = runner.To(ctx, *version)
	} else {
		err = runner.Apply(ctx, *cmd)
	}
	if err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration finished")
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
