package main

import (
	"fmt"

	"github.com/angelmondragon/siver-b2b-backend/internal/consumers/catalogrelease"
	"github.com/angelmondragon/siver-b2b-backend/internal/orders"
	"github.com/angelmondragon/siver-b2b-backend/internal/products"
	"github.com/angelmondragon/siver-b2b-backend/internal/sellercatalog"
	"github.com/angelmondragon/siver-b2b-backend/internal/stores"
	"github.com/angelmondragon/siver-b2b-backend/pkg/bootstrap"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox/idempotency"
)

func main() {
	bootstrap.Main("worker", run)
}

func run(proc *bootstrap.Process) error {
	cfg, logg := proc.Config, proc.Logger
	ctx, stop := proc.Context(nil)
	defer stop()

	dbClient, err := proc.Database(ctx)
	if err != nil {
		return err
	}
	redisClient, err := proc.Redis(ctx)
	if err != nil {
		return err
	}
	pubsubClient, err := proc.PubSub(ctx)
	if err != nil {
		return err
	}

	conn := dbClient.DB()
	releaser, err := sellercatalog.NewService(sellercatalog.Deps{
		Repo:     sellercatalog.NewRepository(conn),
		Stores:   stores.NewRepository(conn),
		Orders:   orders.NewRepository(conn),
		Products: products.NewRepository(conn),
		Tx:       dbClient,
		Events:   outbox.NewService(outbox.NewRepository(conn), logg),
		Logger:   logg,
	})
	if err != nil {
		return fmt.Errorf("seller catalog service: %w", err)
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Idempotency.TTL)
	if err != nil {
		return fmt.Errorf("idempotency manager: %w", err)
	}
	consumer, err := catalogrelease.NewConsumer(releaser, manager, pubsubClient.CatalogReleaseSubscription(), logg)
	if err != nil {
		return fmt.Errorf("catalog release consumer: %w", err)
	}

	service, err := NewService(ServiceParams{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		PubSub:   pubsubClient,
		Consumer: consumer,
	})
	if err != nil {
		return fmt.Errorf("worker: %w", err)
	}
	return proc.RunUntilStopped(ctx, service.Run)
}
