package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/siver-b2b-backend/api/middleware"
	cartsvc "github.com/angelmondragon/siver-b2b-backend/internal/cart"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
)

type stubCartService struct {
	view      *cartsvc.Cart
	err       error
	lastAdd   cartsvc.AddItemInput
	lastQty   int
	lastDelta int
	lastID    uuid.UUID
}

func (s *stubCartService) GetOrCreateOpenCart(ctx context.Context, buyerID uuid.UUID) (*cartsvc.Cart, error) {
	return s.view, s.err
}

func (s *stubCartService) AddItem(ctx context.Context, buyerID uuid.UUID, input cartsvc.AddItemInput) (*cartsvc.Cart, error) {
	s.lastAdd = input
	return s.view, s.err
}

func (s *stubCartService) UpdateQuantity(ctx context.Context, buyerID, productID uuid.UUID, quantity int) (*cartsvc.Cart, error) {
	s.lastID, s.lastQty = productID, quantity
	return s.view, s.err
}

func (s *stubCartService) StepQuantity(ctx context.Context, buyerID, productID uuid.UUID, delta int) (*cartsvc.Cart, error) {
	s.lastID, s.lastDelta = productID, delta
	return s.view, s.err
}

func (s *stubCartService) RemoveItem(ctx context.Context, buyerID, productID uuid.UUID) (*cartsvc.Cart, error) {
	s.lastID = productID
	return s.view, s.err
}

func (s *stubCartService) Clear(ctx context.Context, buyerID uuid.UUID) (*cartsvc.Cart, error) {
	return s.view, s.err
}

func asSeller(req *http.Request, buyerID uuid.UUID) *http.Request {
	ctx := middleware.WithUserID(req.Context(), buyerID.String())
	ctx = middleware.WithRole(ctx, enums.RoleSeller)
	return req.WithContext(ctx)
}

func withProductParam(req *http.Request, productID uuid.UUID) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("productId", productID.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func sampleView(buyerID uuid.UUID) *cartsvc.Cart {
	view := cartsvc.EmptyView(buyerID)
	view.ID = uuid.New()
	view.Items = []cartsvc.Line{{
		ProductID:  uuid.New(),
		SKU:        "SKU-1",
		Quantity:   60,
		UnitPrice:  decimal.RequireFromString("2.50"),
		TotalPrice: decimal.RequireFromString("150.00"),
		MOQ:        50,
	}}
	view.TotalItems = 1
	view.TotalQuantity = 60
	view.Subtotal = decimal.RequireFromString("150.00")
	return view
}

func TestCartFetchSuccess(t *testing.T) {
	buyerID := uuid.New()
	handler := CartFetch(&stubCartService{view: sampleView(buyerID)}, nil)

	req := asSeller(httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil), buyerID)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data cartsvc.Cart `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.TotalQuantity != 60 || !envelope.Data.Subtotal.Equal(decimal.RequireFromString("150")) {
		t.Fatalf("unexpected totals %+v", envelope.Data)
	}
}

func TestCartFetchRequiresIdentity(t *testing.T) {
	handler := CartFetch(&stubCartService{}, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCartAddItemPassesInput(t *testing.T) {
	buyerID := uuid.New()
	productID := uuid.New()
	svc := &stubCartService{view: sampleView(buyerID)}
	body := `{"product_id":"` + productID.String() + `","quantity":60,"color":"  red  ","size":""}`

	req := asSeller(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body)), buyerID)
	resp := httptest.NewRecorder()
	CartAddItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastAdd.ProductID != productID || svc.lastAdd.Quantity != 60 {
		t.Fatalf("unexpected input %+v", svc.lastAdd)
	}
	if svc.lastAdd.Color == nil || *svc.lastAdd.Color != "red" {
		t.Fatalf("expected trimmed color, got %v", svc.lastAdd.Color)
	}
	if svc.lastAdd.Size != nil {
		t.Fatalf("expected blank size to be dropped")
	}
}

func TestCartAddItemRejectsZeroQuantity(t *testing.T) {
	buyerID := uuid.New()
	body := `{"product_id":"` + uuid.NewString() + `","quantity":0}`
	req := asSeller(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body)), buyerID)
	resp := httptest.NewRecorder()
	CartAddItem(&stubCartService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartAddItemSurfacesMinimumOrder(t *testing.T) {
	buyerID := uuid.New()
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeBelowMinimumOrder, "minimum order quantity is 50").
		WithDetails(map[string]any{"moq": 50, "requested": 10})}
	body := `{"product_id":"` + uuid.NewString() + `","quantity":10}`

	req := asSeller(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body)), buyerID)
	resp := httptest.NewRecorder()
	CartAddItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeBelowMinimumOrder) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
	if envelope.Error.Details["moq"] != float64(50) {
		t.Fatalf("expected moq detail, got %v", envelope.Error.Details)
	}
}

func TestCartUpdateItemUsesPathProduct(t *testing.T) {
	buyerID := uuid.New()
	productID := uuid.New()
	svc := &stubCartService{view: sampleView(buyerID)}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/cart/items/"+productID.String(), strings.NewReader(`{"quantity":75}`))
	req = asSeller(withProductParam(req, productID), buyerID)
	resp := httptest.NewRecorder()
	CartUpdateItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastID != productID || svc.lastQty != 75 {
		t.Fatalf("expected update of %s to 75, got %s to %d", productID, svc.lastID, svc.lastQty)
	}
}

func TestCartStepItemPassesDelta(t *testing.T) {
	buyerID := uuid.New()
	productID := uuid.New()
	svc := &stubCartService{view: sampleView(buyerID)}

	req := httptest.NewRequest(http.MethodPost, "/step", strings.NewReader(`{"delta":-1}`))
	req = asSeller(withProductParam(req, productID), buyerID)
	resp := httptest.NewRecorder()
	CartStepItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastDelta != -1 {
		t.Fatalf("expected delta -1 got %d", svc.lastDelta)
	}
}

func TestCartRemoveItemRejectsBadID(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/nope", nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("productId", "nope")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	req = asSeller(req, uuid.New())

	resp := httptest.NewRecorder()
	CartRemoveItem(&stubCartService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
