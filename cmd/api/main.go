package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/siver-b2b-backend/api/controllers"
	"github.com/angelmondragon/siver-b2b-backend/api/routes"
	"github.com/angelmondragon/siver-b2b-backend/pkg/bootstrap"
	"github.com/angelmondragon/siver-b2b-backend/pkg/metrics"
)

func main() {
	bootstrap.Main("api", run)
}

func run(proc *bootstrap.Process) error {
	cfg, logg := proc.Config, proc.Logger
	addr := ":" + listenPort(cfg.App.Port)
	ctx, stop := proc.Context(map[string]any{
		"addr":     addr,
		"instance": instanceID(),
	})
	defer stop()

	dbClient, err := proc.Database(ctx)
	if err != nil {
		return err
	}
	redisClient, err := proc.Redis(ctx)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	services, err := buildServices(cfg, logg, dbClient, redisClient, metrics.NewCommerce(registry))
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}

	handler := routes.NewRouter(routes.Deps{
		Config: cfg,
		Logger: logg,
		Ready: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		Idempotency:    redisClient,
		RateLimiter:    redisClient,
		HTTPMetrics:    metrics.NewHTTP(registry),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Products:       services.products,
		Categories:     services.categories,
		Cart:           services.cart,
		Checkout:       services.checkout,
		Orders:         services.orders,
		SellerCatalog:  services.sellerCatalog,
		Favorites:      services.favorites,
	})

	logg.Info(ctx, "starting api server")
	return proc.ServeHTTP(ctx, &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	})
}

// listenPort prefers the platform-assigned PORT.
func listenPort(configured string) string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return configured
}

func instanceID() string {
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	return "local"
}
