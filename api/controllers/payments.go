package controllers

import (
	"net/http"

	"github.com/fabricspeaks/fabricspeaks-backend/api/middleware"
	"github.com/fabricspeaks/fabricspeaks-backend/api/responses"
	"github.com/fabricspeaks/fabricspeaks-backend/api/validators"
	paymentsvc "github.com/fabricspeaks/fabricspeaks-backend/internal/payments"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/logger"
)

// VerifyPayment settles a pending order after the client completes the
// Razorpay widget flow. Safe to retry: an already-paid order is returned
// unchanged.
func VerifyPayment(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.VerifyPayment(r.Context(), middleware.IdentityFromContext(r.Context()), paymentsvc.VerifyInput{
			RazorpayOrderID:   payload.RazorpayOrderID,
			RazorpayPaymentID: payload.RazorpayPaymentID,
			RazorpaySignature: payload.RazorpaySignature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
}
