package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fabricspeaks/fabricspeaks-backend/api/responses"
	"github.com/fabricspeaks/fabricspeaks-backend/api/validators"
	productsvc "github.com/fabricspeaks/fabricspeaks-backend/internal/products"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
	pkgerrors "github.com/fabricspeaks/fabricspeaks-backend/pkg/errors"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/logger"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/pagination"
)

// BrowseProducts lists purchasable products for the storefront.
func BrowseProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, err := parseProductListInput(r, false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, next, err := svc.Browse(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listEnvelope(rows, next))
	}
}

// ProductBySlug returns one purchasable product with its variants.
func ProductBySlug(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		product, err := svc.GetBySlug(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func parseProductListInput(r *http.Request, admin bool) (productsvc.ListProductsInput, error) {
	params, err := validators.ParsePagination(r)
	if err != nil {
		return productsvc.ListProductsInput{}, err
	}

	filters := productsvc.ProductListFilters{
		Query:        validators.SanitizeString(r.URL.Query().Get("q"), 120),
		FeaturedOnly: r.URL.Query().Get("featured") == "true",
	}
	if category := validators.SanitizeString(r.URL.Query().Get("category"), 60); category != "" {
		filters.Category = &category
	}
	if admin {
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, parseErr := enums.ParseProductStatus(raw)
			if parseErr != nil {
				return productsvc.ListProductsInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status filter")
			}
			filters.Status = &status
		}
	}

	return productsvc.ListProductsInput{Filters: filters, Pagination: params}, nil
}

func listEnvelope(rows any, next *pagination.Cursor) map[string]any {
	envelope := map[string]any{"items": rows}
	if next != nil {
		envelope["next_cursor"] = pagination.EncodeCursor(*next)
	}
	return envelope
}
