package controllers

import (
	"io"
	"net/http"
	"strings"

	"github.com/fabricspeaks/fabricspeaks-backend/api/responses"
	paymentsvc "github.com/fabricspeaks/fabricspeaks-backend/internal/payments"
	pkgerrors "github.com/fabricspeaks/fabricspeaks-backend/pkg/errors"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/logger"
)

const (
	razorpayEventIDHeader   = "X-Razorpay-Event-Id"
	razorpaySignatureHeader = "X-Razorpay-Signature"
	maxWebhookBodyBytes     = 1 << 20
)

// RazorpayWebhook receives gateway callbacks. The signature covers the raw
// body, so it is read before any parsing.
func RazorpayWebhook(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := strings.TrimSpace(r.Header.Get(razorpayEventIDHeader))
		signature := strings.TrimSpace(r.Header.Get(razorpaySignatureHeader))
		if eventID == "" || signature == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "missing webhook headers"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read webhook body"))
			return
		}

		if err := svc.HandleWebhook(r.Context(), eventID, signature, body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "processed"})
	}
}
