package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/siver-b2b-backend/internal/sellercatalog"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
)

type stubSellerCatalog struct {
	sellercatalog.Service
	owner     uuid.UUID
	price     decimal.Decimal
	stock     sellercatalog.UpdateStockInput
	err       error
	toggledID uuid.UUID
}

func (s *stubSellerCatalog) List(ctx context.Context, ownerID uuid.UUID) ([]sellercatalog.ItemDTO, error) {
	s.owner = ownerID
	return []sellercatalog.ItemDTO{}, s.err
}

func (s *stubSellerCatalog) Stats(ctx context.Context, ownerID uuid.UUID) (*sellercatalog.Stats, error) {
	s.owner = ownerID
	return &sellercatalog.Stats{TotalProducts: 2}, s.err
}

func (s *stubSellerCatalog) UpdateSalePrice(ctx context.Context, ownerID, itemID uuid.UUID, price decimal.Decimal) (*sellercatalog.ItemDTO, error) {
	s.owner, s.price = ownerID, price
	if s.err != nil {
		return nil, s.err
	}
	return &sellercatalog.ItemDTO{ID: itemID, SalePrice: price}, nil
}

func (s *stubSellerCatalog) ToggleActive(ctx context.Context, ownerID, itemID uuid.UUID) (*sellercatalog.ItemDTO, error) {
	s.toggledID = itemID
	return &sellercatalog.ItemDTO{ID: itemID}, s.err
}

func (s *stubSellerCatalog) UpdateStock(ctx context.Context, input sellercatalog.UpdateStockInput) (*sellercatalog.ItemDTO, error) {
	s.stock = input
	if s.err != nil {
		return nil, s.err
	}
	return &sellercatalog.ItemDTO{ID: input.ItemID, Stock: input.Stock}, nil
}

func (s *stubSellerCatalog) Movements(ctx context.Context, ownerID, itemID uuid.UUID) ([]sellercatalog.MovementDTO, error) {
	return []sellercatalog.MovementDTO{}, s.err
}

func TestSellerCatalogListScopedToCaller(t *testing.T) {
	sellerID := uuid.New()
	svc := &stubSellerCatalog{}
	req := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/seller/catalog", nil), sellerID, enums.RoleSeller)
	resp := httptest.NewRecorder()
	SellerCatalogList(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.owner != sellerID {
		t.Fatalf("expected owner %s got %s", sellerID, svc.owner)
	}
	if !strings.Contains(resp.Body.String(), `"items":[]`) {
		t.Fatalf("expected empty items array, got %s", resp.Body.String())
	}
}

func TestSellerCatalogUpdatePrice(t *testing.T) {
	svc := &stubSellerCatalog{}
	req := withParam(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"sale_price":"19.99"}`)), "itemId", uuid.NewString())
	req = withActor(req, uuid.New(), enums.RoleSeller)
	resp := httptest.NewRecorder()
	SellerCatalogUpdatePrice(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !svc.price.Equal(decimal.RequireFromString("19.99")) {
		t.Fatalf("unexpected price %s", svc.price)
	}
}

func TestSellerCatalogUpdatePriceNegative(t *testing.T) {
	svc := &stubSellerCatalog{err: pkgerrors.New(pkgerrors.CodeValidation, "sale price must not be negative")}
	req := withParam(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"sale_price":"-1"}`)), "itemId", uuid.NewString())
	req = withActor(req, uuid.New(), enums.RoleSeller)
	resp := httptest.NewRecorder()
	SellerCatalogUpdatePrice(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSellerCatalogUpdateStock(t *testing.T) {
	svc := &stubSellerCatalog{}
	itemID := uuid.New()
	req := withParam(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"stock":0,"reason":" sold at market "}`)), "itemId", itemID.String())
	req = withActor(req, uuid.New(), enums.RoleSeller)
	resp := httptest.NewRecorder()
	SellerCatalogUpdateStock(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.stock.ItemID != itemID || svc.stock.Stock != 0 || svc.stock.Reason != "sold at market" {
		t.Fatalf("unexpected input %+v", svc.stock)
	}

	req = withParam(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"stock":-3}`)), "itemId", itemID.String())
	req = withActor(req, uuid.New(), enums.RoleSeller)
	resp = httptest.NewRecorder()
	SellerCatalogUpdateStock(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSellerCatalogToggleUnknownItem(t *testing.T) {
	svc := &stubSellerCatalog{err: pkgerrors.New(pkgerrors.CodeNotFound, "catalog item not found")}
	req := withParam(httptest.NewRequest(http.MethodPost, "/", nil), "itemId", uuid.NewString())
	req = withActor(req, uuid.New(), enums.RoleSeller)
	resp := httptest.NewRecorder()
	SellerCatalogToggle(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
