package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/siver-b2b-backend/api/middleware"
	"github.com/angelmondragon/siver-b2b-backend/api/responses"
	"github.com/angelmondragon/siver-b2b-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/siver-b2b-backend/internal/checkout"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
)

type checkoutRequest struct {
	PaymentMethod    string  `json:"payment_method" validate:"required,oneof=stripe moncash transfer"`
	PaymentReference *string `json:"payment_reference,omitempty" validate:"omitempty,max=255"`
}

// Checkout converts the caller's open cart into an order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		buyerID, role, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		var reference *string
		if payload.PaymentReference != nil {
			if trimmed := strings.TrimSpace(*payload.PaymentReference); trimmed != "" {
				reference = &trimmed
			}
		}

		result, err := svc.CreateOrder(r.Context(), buyerID, checkoutsvc.CreateOrderInput{
			PaymentMethod:    method,
			PaymentReference: reference,
			ActorRole:        role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Replayed {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}
