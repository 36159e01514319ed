package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/siver-b2b-backend/internal/favorites"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
	"github.com/angelmondragon/siver-b2b-backend/pkg/pagination"
	"github.com/angelmondragon/siver-b2b-backend/pkg/visibility"
)

type stubFavorites struct {
	added   uuid.UUID
	removed uuid.UUID
	role    enums.Role
	err     error
}

func (s *stubFavorites) List(ctx context.Context, userID uuid.UUID, role enums.Role, params pagination.Params) (*favorites.List, error) {
	s.role = role
	return &favorites.List{Products: []visibility.Projected{}}, s.err
}

func (s *stubFavorites) Add(ctx context.Context, userID, productID uuid.UUID) error {
	s.added = productID
	return s.err
}

func (s *stubFavorites) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	s.removed = productID
	return s.err
}

func TestFavoritesAdd(t *testing.T) {
	svc := &stubFavorites{}
	productID := uuid.New()
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/favorites", strings.NewReader(`{"product_id":"`+productID.String()+`"}`)), uuid.New(), enums.RoleClient)
	resp := httptest.NewRecorder()
	FavoritesAdd(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
	if svc.added != productID {
		t.Fatalf("expected %s added", productID)
	}
}

func TestFavoritesAddInactiveProduct(t *testing.T) {
	svc := &stubFavorites{err: pkgerrors.New(pkgerrors.CodeNotFound, "product not found")}
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/favorites", strings.NewReader(`{"product_id":"`+uuid.NewString()+`"}`)), uuid.New(), enums.RoleClient)
	resp := httptest.NewRecorder()
	FavoritesAdd(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestFavoritesListForwardsRole(t *testing.T) {
	svc := &stubFavorites{}
	req := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/favorites", nil), uuid.New(), enums.RoleSeller)
	resp := httptest.NewRecorder()
	FavoritesList(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || svc.role != enums.RoleSeller {
		t.Fatalf("unexpected %d %s", resp.Code, svc.role)
	}
}

func TestFavoritesRemove(t *testing.T) {
	svc := &stubFavorites{}
	productID := uuid.New()
	req := withParam(httptest.NewRequest(http.MethodDelete, "/", nil), "productId", productID.String())
	req = withActor(req, uuid.New(), enums.RoleClient)
	resp := httptest.NewRecorder()
	FavoritesRemove(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent || svc.removed != productID {
		t.Fatalf("unexpected %d %s", resp.Code, svc.removed)
	}
}
