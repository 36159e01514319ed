package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/siver-b2b-backend/pkg/bootstrap"
	"github.com/angelmondragon/siver-b2b-backend/pkg/metrics"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox/registry"
)

func main() {
	bootstrap.Main("outbox-publisher", run)
}

func run(proc *bootstrap.Process) error {
	ctx, stop := proc.Context(nil)
	defer stop()

	dbClient, err := proc.Database(ctx)
	if err != nil {
		return err
	}
	pubsubClient, err := proc.PubSub(ctx)
	if err != nil {
		return err
	}
	routes, err := registry.NewEventRegistry(proc.Config.PubSub)
	if err != nil {
		return fmt.Errorf("event registry: %w", err)
	}

	promRegistry := prometheus.NewRegistry()
	proc.ServeMetrics(ctx, proc.Config.Outbox.MetricsAddr, promRegistry)

	conn := dbClient.DB()
	relay, err := NewService(ServiceParams{
		Config:        proc.Config,
		Logger:        proc.Logger,
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(conn),
		Registry:      routes,
		DLQRepository: outbox.NewDLQRepository(conn),
		Metrics:       metrics.NewOutbox(promRegistry),
	})
	if err != nil {
		return fmt.Errorf("outbox publisher: %w", err)
	}

	proc.Logger.Info(proc.Logger.WithField(ctx, "topics", routes.Topics()), "relaying outbox events")
	return proc.RunUntilStopped(ctx, relay.Run)
}
