package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/siver-b2b-backend/api/controllers"
	"github.com/angelmondragon/siver-b2b-backend/internal/cart"
	"github.com/angelmondragon/siver-b2b-backend/internal/categories"
	"github.com/angelmondragon/siver-b2b-backend/pkg/auth"
	"github.com/angelmondragon/siver-b2b-backend/pkg/config"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubCart struct {
	cart.Service
}

func (stubCart) GetOrCreateOpenCart(ctx context.Context, buyerID uuid.UUID) (*cart.Cart, error) {
	return &cart.Cart{ID: uuid.New(), BuyerID: buyerID, Status: enums.CartStatusOpen, Items: []cart.Line{}}, nil
}

type stubCategories struct {
	categories.Service
}

func (stubCategories) Tree(ctx context.Context, includeHidden bool) ([]categories.Node, error) {
	return []categories.Node{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "siver", ExpirationMinutes: 60},
		RateLimit: config.RateLimitConfig{
			CheckoutLimit:  10,
			CheckoutWindow: time.Minute,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	return NewRouter(Deps{
		Config:     cfg,
		Logger:     logger.Nop(),
		Ready:      map[string]controllers.Pinger{"db": stubPinger{}},
		Cart:       stubCart{},
		Categories: stubCategories{},
	})
}

func bearer(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	token, err := auth.Mint(cfg.JWT, time.Now(), auth.Identity{
		UserID: uuid.New(),
		Role:   role,
		Email:  "user@example.com",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func serve(router http.Handler, method, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealthRoutesArePublic(t *testing.T) {
	router := newTestRouter(testConfig())

	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := serve(router, http.MethodGet, path, "")
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestAPIRequiresToken(t *testing.T) {
	router := newTestRouter(testConfig())

	resp := serve(router, http.MethodGet, "/api/v1/cart", "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCartIsClosedToClients(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	resp := serve(router, http.MethodGet, "/api/v1/cart", bearer(t, cfg, enums.RoleClient))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestCartOpenToSellers(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	resp := serve(router, http.MethodGet, "/api/v1/cart", bearer(t, cfg, enums.RoleSeller))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	resp := serve(router, http.MethodGet, "/api/v1/admin/kpis", bearer(t, cfg, enums.RoleSeller))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestCatalogCategoriesOpenToClients(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	resp := serve(router, http.MethodGet, "/api/v1/catalog/categories", bearer(t, cfg, enums.RoleClient))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}
