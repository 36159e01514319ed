package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/siver-b2b-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/siver-b2b-backend/internal/checkout"
	"github.com/angelmondragon/siver-b2b-backend/internal/orders"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
)

type stubCheckoutService struct {
	result *checkoutsvc.OrderResult
	err    error
	input  checkoutsvc.CreateOrderInput
	buyer  uuid.UUID
}

func (s *stubCheckoutService) CreateOrder(ctx context.Context, buyerID uuid.UUID, input checkoutsvc.CreateOrderInput) (*checkoutsvc.OrderResult, error) {
	s.buyer, s.input = buyerID, input
	return s.result, s.err
}

func checkoutResult(buyerID uuid.UUID, replayed bool) *checkoutsvc.OrderResult {
	return &checkoutsvc.OrderResult{
		Order:    &orders.OrderDTO{ID: uuid.New(), BuyerID: buyerID, Status: enums.OrderStatusPending},
		Cart:     cart.EmptyView(buyerID),
		Replayed: replayed,
	}
}

func TestCheckoutCreatesOrder(t *testing.T) {
	buyerID := uuid.New()
	svc := &stubCheckoutService{result: checkoutResult(buyerID, false)}
	body := `{"payment_method":"moncash","payment_reference":"  MC-778  "}`

	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body)), buyerID, enums.RoleSeller)
	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.buyer != buyerID || svc.input.PaymentMethod != enums.PaymentMethodMoncash {
		t.Fatalf("unexpected call %s %+v", svc.buyer, svc.input)
	}
	if svc.input.PaymentReference == nil || *svc.input.PaymentReference != "MC-778" {
		t.Fatalf("expected trimmed reference")
	}
	if svc.input.ActorRole != enums.RoleSeller {
		t.Fatalf("expected seller role forwarded")
	}
}

func TestCheckoutReplayReturnsOK(t *testing.T) {
	buyerID := uuid.New()
	svc := &stubCheckoutService{result: checkoutResult(buyerID, true)}
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"payment_method":"transfer"}`)), buyerID, enums.RoleSeller)
	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCheckoutRejectsUnknownPaymentMethod(t *testing.T) {
	svc := &stubCheckoutService{}
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"payment_method":"cash"}`)), uuid.New(), enums.RoleSeller)
	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.buyer != uuid.Nil {
		t.Fatalf("service should not be called")
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")}
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"payment_method":"stripe"}`)), uuid.New(), enums.RoleAdmin)
	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	if code := decodeErrorCode(t, resp); code != string(pkgerrors.CodeEmptyCart) {
		t.Fatalf("unexpected code %s", code)
	}
}
