package controllers

import (
	"net/http"
	"strings"

	"github.com/fabricspeaks/fabricspeaks-backend/api/middleware"
	"github.com/fabricspeaks/fabricspeaks-backend/api/responses"
	"github.com/fabricspeaks/fabricspeaks-backend/api/validators"
	ordersvc "github.com/fabricspeaks/fabricspeaks-backend/internal/orders"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
	pkgerrors "github.com/fabricspeaks/fabricspeaks-backend/pkg/errors"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/logger"
)

// AdminListOrders lists all orders, optionally filtered by status.
func AdminListOrders(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := parseOrderFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, next, err := svc.AdminList(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listEnvelope(rows, next))
	}
}

// AdminUpdateOrderStatus moves an order through its lifecycle. Force skips
// the transition table for corrections.
func AdminUpdateOrderStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParsePathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(strings.TrimSpace(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), middleware.IdentityFromContext(r.Context()), orderID, ordersvc.UpdateStatusInput{
			Status: status,
			Reason: validators.SanitizeString(payload.Reason, 500),
			Force:  payload.Force,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason,omitempty"`
	Force  bool   `json:"force,omitempty"`
}
