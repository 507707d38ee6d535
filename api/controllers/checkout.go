package controllers

import (
	"net/http"

	"github.com/fabricspeaks/fabricspeaks-backend/api/middleware"
	"github.com/fabricspeaks/fabricspeaks-backend/api/responses"
	"github.com/fabricspeaks/fabricspeaks-backend/api/validators"
	checkoutsvc "github.com/fabricspeaks/fabricspeaks-backend/internal/checkout"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/logger"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/types"
)

// Checkout turns the active cart into a pending order plus a gateway order
// the client can pay against.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), middleware.IdentityFromContext(r.Context()), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type checkoutRequest struct {
	ContactEmail    string        `json:"contact_email" validate:"required,email"`
	ContactPhone    *string       `json:"contact_phone,omitempty"`
	ShippingAddress types.Address `json:"shipping_address" validate:"required"`
}

func (r checkoutRequest) toInput() checkoutsvc.CheckoutInput {
	return checkoutsvc.CheckoutInput{
		ContactEmail:    r.ContactEmail,
		ContactPhone:    r.ContactPhone,
		ShippingAddress: r.ShippingAddress,
	}
}
