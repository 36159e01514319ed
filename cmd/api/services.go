package main

import (
	"fmt"

	"github.com/angelmondragon/siver-b2b-backend/internal/cart"
	"github.com/angelmondragon/siver-b2b-backend/internal/categories"
	"github.com/angelmondragon/siver-b2b-backend/internal/checkout"
	"github.com/angelmondragon/siver-b2b-backend/internal/checkout/reservation"
	"github.com/angelmondragon/siver-b2b-backend/internal/favorites"
	"github.com/angelmondragon/siver-b2b-backend/internal/orders"
	"github.com/angelmondragon/siver-b2b-backend/internal/products"
	"github.com/angelmondragon/siver-b2b-backend/internal/sellercatalog"
	"github.com/angelmondragon/siver-b2b-backend/internal/stores"
	"github.com/angelmondragon/siver-b2b-backend/pkg/config"
	"github.com/angelmondragon/siver-b2b-backend/pkg/db"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
	"github.com/angelmondragon/siver-b2b-backend/pkg/metrics"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox"
	"github.com/angelmondragon/siver-b2b-backend/pkg/redis"
)

type apiServices struct {
	products      products.Service
	categories    categories.Service
	cart          cart.Service
	checkout      checkout.Service
	orders        orders.Service
	sellerCatalog sellercatalog.Service
	favorites     favorites.Service
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, recorder *metrics.Commerce) (*apiServices, error) {
	conn := dbClient.DB()
	events := outbox.NewService(outbox.NewRepository(conn), logg)
	engine := reservation.NewEngine()

	productRepo := products.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)

	categoryService, err := categories.NewService(categories.NewRepository(conn), logg)
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}

	productService, err := products.NewService(productRepo, dbClient, categoryService, events, redisClient, cfg.Catalog, logg)
	if err != nil {
		return nil, fmt.Errorf("products: %w", err)
	}

	cartService, err := cart.NewService(cartRepo, dbClient, productRepo, logg, recorder)
	if err != nil {
		return nil, fmt.Errorf("cart: %w", err)
	}

	catalogCache := products.NewCatalogCache(redisClient, cfg.Catalog, logg)

	checkoutService, err := checkout.NewService(
		checkout.NewRepository(cartRepo, orderRepo),
		dbClient,
		engine,
		events,
		checkout.SettingsFromConfig(cfg),
		logg,
		recorder,
		catalogCache,
	)
	if err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}

	orderService, err := orders.NewService(orderRepo, dbClient, events, engine, logg, recorder, catalogCache)
	if err != nil {
		return nil, fmt.Errorf("orders: %w", err)
	}

	sellerCatalogService, err := sellercatalog.NewService(sellercatalog.Deps{
		Repo:     sellercatalog.NewRepository(conn),
		Stores:   stores.NewRepository(conn),
		Orders:   orderRepo,
		Products: productRepo,
		Tx:       dbClient,
		Events:   events,
		Logger:   logg,
		Metrics:  recorder,
	})
	if err != nil {
		return nil, fmt.Errorf("seller catalog: %w", err)
	}

	favoritesService, err := favorites.NewService(favorites.ServiceParams{
		FavoritesRepo: favorites.NewRepository(conn),
		ProductRepo:   productRepo,
	})
	if err != nil {
		return nil, fmt.Errorf("favorites: %w", err)
	}

	return &apiServices{
		products:      productService,
		categories:    categoryService,
		cart:          cartService,
		checkout:      checkoutService,
		orders:        orderService,
		sellerCatalog: sellerCatalogService,
		favorites:     favoritesService,
	}, nil
}
