package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/siver-b2b-backend/internal/checkout/reservation"
	"github.com/angelmondragon/siver-b2b-backend/internal/cron"
	"github.com/angelmondragon/siver-b2b-backend/internal/orders"
	"github.com/angelmondragon/siver-b2b-backend/internal/products"
	"github.com/angelmondragon/siver-b2b-backend/pkg/bootstrap"
	"github.com/angelmondragon/siver-b2b-backend/pkg/config"
	"github.com/angelmondragon/siver-b2b-backend/pkg/db"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
	"github.com/angelmondragon/siver-b2b-backend/pkg/metrics"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox"
	"github.com/angelmondragon/siver-b2b-backend/pkg/redis"
)

func main() {
	bootstrap.Main("cron-worker", run)
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

	registry, err := buildRegistry(cfg, logg, dbClient, redisClient)
	if err != nil {
		return fmt.Errorf("register cron jobs: %w", err)
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCron(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}

	return proc.RunUntilStopped(logg.WithField(ctx, "jobs", registry.Names()), service.Run)
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*cron.Registry, error) {
	conn := dbClient.DB()
	orderRepo := orders.NewRepository(conn)
	orderService, err := orders.NewService(
		orderRepo,
		dbClient,
		outbox.NewService(outbox.NewRepository(conn), logg),
		reservation.NewEngine(),
		logg,
		nil,
		products.NewCatalogCache(redisClient, cfg.Catalog, logg),
	)
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	paymentWindow, err := cron.NewPaymentWindowJob(cron.PaymentWindowJobParams{
		Logger: logg,
		Reader: orderRepo,
		Orders: orderService,
		Window: cfg.Cron.PaymentWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("payment window job: %w", err)
	}

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(conn),
		Retention:  cfg.Cron.OutboxRetention,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}

	return cron.NewRegistry(paymentWindow, retention)
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}
