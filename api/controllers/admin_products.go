package controllers

import (
	"net/http"
	"strings"

	"github.com/fabricspeaks/fabricspeaks-backend/api/responses"
	"github.com/fabricspeaks/fabricspeaks-backend/api/validators"
	productsvc "github.com/fabricspeaks/fabricspeaks-backend/internal/products"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
	pkgerrors "github.com/fabricspeaks/fabricspeaks-backend/pkg/errors"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/logger"
)

// AdminListProducts lists the full catalog regardless of status.
func AdminListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, err := parseProductListInput(r, true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, next, err := svc.AdminList(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listEnvelope(rows, next))
	}
}

// AdminCreateProduct creates a product with its initial variants.
func AdminCreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// AdminUpdateProduct applies a partial update to a product.
func AdminUpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// AdminArchiveProduct archives a product; archived products stay queryable
// for order history.
func AdminArchiveProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Archive(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "archived"})
	}
}

// AdminAddVariant attaches a new variant to an existing product.
func AdminAddVariant(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload variantRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variant, err := svc.AddVariant(r.Context(), productID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, variant)
	}
}

// AdminUpdateVariant applies a partial update to a variant. Stock changes are
// rejected here; they go through the inventory endpoints.
func AdminUpdateVariant(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variantID, err := validators.ParsePathUUID(r, "variantID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateVariantRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variant, err := svc.UpdateVariant(r.Context(), variantID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, variant)
	}
}

type createProductRequest struct {
	Title       string           `json:"title" validate:"required"`
	Subtitle    *string          `json:"subtitle,omitempty"`
	Description *string          `json:"description,omitempty"`
	Brand       *string          `json:"brand,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Tags        []string         `json:"tags,omitempty" validate:"omitempty,dive,required"`
	Status      *string          `json:"status,omitempty"`
	IsFeatured  bool             `json:"is_featured,omitempty"`
	Variants    []variantRequest `json:"variants" validate:"omitempty,dive"`
}

type variantRequest struct {
	SKU           string  `json:"sku" validate:"required"`
	Label         string  `json:"label" validate:"required"`
	Size          *string `json:"size,omitempty"`
	Color         *string `json:"color,omitempty"`
	PricePaise    int64   `json:"price_paise" validate:"required,min=1"`
	CompareAt     *int64  `json:"compare_at_paise,omitempty" validate:"omitempty,min=1"`
	StockQuantity int     `json:"stock_quantity" validate:"min=0"`
}

type updateProductRequest struct {
	Title       *string  `json:"title,omitempty"`
	Subtitle    *string  `json:"subtitle,omitempty"`
	Description *string  `json:"description,omitempty"`
	Brand       *string  `json:"brand,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Status      *string  `json:"status,omitempty"`
	IsFeatured  *bool    `json:"is_featured,omitempty"`
}

type updateVariantRequest struct {
	Label      *string `json:"label,omitempty"`
	Size       *string `json:"size,omitempty"`
	Color      *string `json:"color,omitempty"`
	PricePaise *int64  `json:"price_paise,omitempty" validate:"omitempty,min=1"`
	CompareAt  *int64  `json:"compare_at_paise,omitempty" validate:"omitempty,min=1"`
	Status     *string `json:"status,omitempty"`
}

func (r createProductRequest) toCreateInput() (productsvc.CreateProductInput, error) {
	input := productsvc.CreateProductInput{
		Title:       r.Title,
		Subtitle:    r.Subtitle,
		Description: r.Description,
		Brand:       r.Brand,
		Category:    r.Category,
		Tags:        r.Tags,
		IsFeatured:  r.IsFeatured,
	}
	if r.Status != nil {
		status, err := enums.ParseProductStatus(strings.TrimSpace(*r.Status))
		if err != nil {
			return productsvc.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product status")
		}
		input.Status = status
	}
	for _, variant := range r.Variants {
		input.Variants = append(input.Variants, variant.toInput())
	}
	return input, nil
}

func (r variantRequest) toInput() productsvc.VariantInput {
	return productsvc.VariantInput{
		SKU:           r.SKU,
		Label:         r.Label,
		Size:          r.Size,
		Color:         r.Color,
		PricePaise:    r.PricePaise,
		CompareAt:     r.CompareAt,
		StockQuantity: r.StockQuantity,
	}
}

func (r updateProductRequest) toUpdateInput() (productsvc.UpdateProductInput, error) {
	input := productsvc.UpdateProductInput{
		Title:       r.Title,
		Subtitle:    r.Subtitle,
		Description: r.Description,
		Brand:       r.Brand,
		Category:    r.Category,
		Tags:        r.Tags,
		IsFeatured:  r.IsFeatured,
	}
	if r.Status != nil {
		status, err := enums.ParseProductStatus(strings.TrimSpace(*r.Status))
		if err != nil {
			return productsvc.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product status")
		}
		input.Status = &status
	}
	return input, nil
}

func (r updateVariantRequest) toInput() (productsvc.UpdateVariantInput, error) {
	input := productsvc.UpdateVariantInput{
		Label:      r.Label,
		Size:       r.Size,
		Color:      r.Color,
		PricePaise: r.PricePaise,
		CompareAt:  r.CompareAt,
	}
	if r.Status != nil {
		status, err := enums.ParseVariantStatus(strings.TrimSpace(*r.Status))
		if err != nil {
			return productsvc.UpdateVariantInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid variant status")
		}
		input.Status = &status
	}
	return input, nil
}
