package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/fabricspeaks/fabricspeaks-backend/api/middleware"
	"github.com/fabricspeaks/fabricspeaks-backend/api/responses"
	"github.com/fabricspeaks/fabricspeaks-backend/api/validators"
	inventorysvc "github.com/fabricspeaks/fabricspeaks-backend/internal/inventory"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
	pkgerrors "github.com/fabricspeaks/fabricspeaks-backend/pkg/errors"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/logger"
)

// AdminAdjustStock applies a manual stock correction through the same choke
// point the payment pipeline uses.
func AdminAdjustStock(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload adjustStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reason, err := enums.ParseAdjustmentReason(strings.TrimSpace(payload.Reason))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid adjustment reason"))
			return
		}

		input := inventorysvc.AdjustInput{
			VariantID: payload.VariantID,
			Delta:     payload.Delta,
			Reason:    reason,
			ActorID:   middleware.IdentityFromContext(r.Context()).UserID,
		}
		if note := validators.SanitizeString(payload.Note, 500); note != "" {
			input.Note = &note
		}

		adjustment, err := svc.Adjust(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, adjustment)
	}
}

// AdminAdjustmentHistory pages through the ledger for one variant.
func AdminAdjustmentHistory(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variantID, err := validators.ParsePathUUID(r, "variantID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, next, err := svc.History(r.Context(), variantID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listEnvelope(rows, next))
	}
}

// AdminLowStockReport lists active variants at or below the threshold.
func AdminLowStockReport(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.LowStockReport(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": rows})
	}
}

// AdminStockOutlook projects days until stockout from trailing sales.
func AdminStockOutlook(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variantID, err := validators.ParsePathUUID(r, "variantID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outlook, err := svc.Outlook(r.Context(), variantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, outlook)
	}
}

type adjustStockRequest struct {
	VariantID uuid.UUID `json:"variant_id" validate:"required"`
	Delta     int       `json:"delta" validate:"required"`
	Reason    string    `json:"reason" validate:"required"`
	Note      string    `json:"note,omitempty"`
}
