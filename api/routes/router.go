package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/siver-b2b-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/siver-b2b-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/siver-b2b-backend/api/controllers/orders"
	"github.com/angelmondragon/siver-b2b-backend/api/middleware"
	"github.com/angelmondragon/siver-b2b-backend/internal/cart"
	"github.com/angelmondragon/siver-b2b-backend/internal/categories"
	checkoutsvc "github.com/angelmondragon/siver-b2b-backend/internal/checkout"
	"github.com/angelmondragon/siver-b2b-backend/internal/favorites"
	"github.com/angelmondragon/siver-b2b-backend/internal/orders"
	"github.com/angelmondragon/siver-b2b-backend/internal/products"
	"github.com/angelmondragon/siver-b2b-backend/internal/sellercatalog"
	"github.com/angelmondragon/siver-b2b-backend/pkg/config"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
	"github.com/angelmondragon/siver-b2b-backend/pkg/metrics"
	"github.com/angelmondragon/siver-b2b-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. Nil stores disable the
// middleware that depends on them.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	Ready          map[string]controllers.Pinger
	Idempotency    redis.IdempotencyStore
	RateLimiter    middleware.RateLimitStore
	HTTPMetrics    *metrics.HTTP
	MetricsHandler http.Handler

	Products      products.Service
	Categories    categories.Service
	Cart          cart.Service
	Checkout      checkoutsvc.Service
	Orders        orders.Service
	SellerCatalog sellercatalog.Service
	Favorites     favorites.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg, logg := deps.Config, deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Ready))
	})
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	checkoutPolicy := middleware.NewRateLimitPolicy("checkout", cfg.RateLimit.CheckoutWindow, cfg.RateLimit.CheckoutLimit)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/products", controllers.CatalogList(deps.Products, logg))
			r.Get("/products/{productId}", controllers.CatalogDetail(deps.Products, logg))
			r.Get("/categories", controllers.CatalogCategories(deps.Categories, logg))
		})

		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", controllers.FavoritesList(deps.Favorites, logg))
			r.Post("/", controllers.FavoritesAdd(deps.Favorites, logg))
			r.Delete("/{productId}", controllers.FavoritesRemove(deps.Favorites, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
		})

		// Procurement is for sellers buying stock; admins may act on their behalf.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleSeller, enums.RoleAdmin))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartFetch(deps.Cart, logg))
				r.Delete("/", cartcontrollers.CartClear(deps.Cart, logg))
				r.Post("/items", cartcontrollers.CartAddItem(deps.Cart, logg))
				r.Patch("/items/{productId}", cartcontrollers.CartUpdateItem(deps.Cart, logg))
				r.Delete("/items/{productId}", cartcontrollers.CartRemoveItem(deps.Cart, logg))
				r.Post("/items/{productId}/step", cartcontrollers.CartStepItem(deps.Cart, logg))
			})

			r.With(middleware.RateLimit(checkoutPolicy, deps.RateLimiter, logg)).
				Post("/checkout", controllers.Checkout(deps.Checkout, logg))

			r.Route("/seller/catalog", func(r chi.Router) {
				r.Get("/", controllers.SellerCatalogList(deps.SellerCatalog, logg))
				r.Get("/stats", controllers.SellerCatalogStats(deps.SellerCatalog, logg))
				r.Patch("/{itemId}/price", controllers.SellerCatalogUpdatePrice(deps.SellerCatalog, logg))
				r.Post("/{itemId}/toggle", controllers.SellerCatalogToggle(deps.SellerCatalog, logg))
				r.Patch("/{itemId}/stock", controllers.SellerCatalogUpdateStock(deps.SellerCatalog, logg))
				r.Get("/{itemId}/movements", controllers.SellerCatalogMovements(deps.SellerCatalog, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleAdmin))

			r.Route("/products", func(r chi.Router) {
				r.Post("/", controllers.AdminCreateProduct(deps.Products, logg))
				r.Post("/import", controllers.AdminImportProducts(deps.Products, logg))
				r.Patch("/{productId}", controllers.AdminUpdateProduct(deps.Products, logg))
				r.Delete("/{productId}", controllers.AdminDeleteProduct(deps.Products, logg))
				r.Put("/{productId}/stock", controllers.AdminAdjustStock(deps.Products, logg))
				r.Get("/{productId}/price-history", controllers.AdminPriceHistory(deps.Products, logg))
			})
			r.Get("/kpis", controllers.AdminKPIs(deps.Products, logg))
			r.Get("/suppliers", controllers.AdminListSuppliers(deps.Products, logg))
			r.Post("/suppliers", controllers.AdminCreateSupplier(deps.Products, logg))
			r.Post("/categories", controllers.AdminCreateCategory(deps.Categories, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.AdminList(deps.Orders, logg))
				r.Post("/{orderId}/mark-paid", ordercontrollers.MarkPaid(deps.Orders, logg))
				r.Post("/{orderId}/reject", ordercontrollers.Reject(deps.Orders, logg))
			})
		})
	})

	return r
}
