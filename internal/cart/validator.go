package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fabricspeaks/fabricspeaks-backend/pkg/db/models"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
	pkgerrors "github.com/fabricspeaks/fabricspeaks-backend/pkg/errors"
)

// catalogReader is the slice of the product repository the validator needs.
type catalogReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Issue is a blocking problem with one cart row.
type Issue struct {
	ItemID  uuid.UUID           `json:"item_id"`
	Code    enums.CartIssueCode `json:"code"`
	Message string              `json:"message"`
}

// Warning is a non-blocking condition surfaced to the shopper.
type Warning struct {
	ItemID  uuid.UUID             `json:"item_id"`
	Code    enums.CartWarningCode `json:"code"`
	Message string                `json:"message"`
}

// ValidatedLine is one cart row that passed validation, priced at the live
// variant price.
type ValidatedLine struct {
	Item           models.CartItem
	Product        models.Product
	Variant        models.Variant
	UnitPricePaise int64
}

// LineTotalPaise is quantity times the live unit price.
func (l ValidatedLine) LineTotalPaise() int64 {
	return int64(l.Item.Quantity) * l.UnitPricePaise
}

// ValidationResult is the full outcome of validating a cart.
type ValidationResult struct {
	Lines    []ValidatedLine `json:"-"`
	Issues   []Issue         `json:"issues"`
	Warnings []Warning       `json:"warnings"`
}

// OK reports whether the cart may proceed to checkout.
func (r ValidationResult) OK() bool {
	return len(r.Issues) == 0
}

// SubtotalPaise sums the validated line totals.
func (r ValidationResult) SubtotalPaise() int64 {
	var total int64
	for _, line := range r.Lines {
		total += line.LineTotalPaise()
	}
	return total
}

// Validator re-checks every cart row against the live catalog.
type Validator struct {
	catalog           catalogReader
	lowStockThreshold int
}

// NewValidator builds a cart validator.
func NewValidator(catalog catalogReader, lowStockThreshold int) (*Validator, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	return &Validator{catalog: catalog, lowStockThreshold: lowStockThreshold}, nil
}

// Validate checks each row for existence, status, variant resolution, stock
// and price drift. Blocking problems land in Issues; an empty cart is
// rejected outright.
func (v *Validator) Validate(ctx context.Context, cart *models.Cart) (*ValidationResult, error) {
	if cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart required")
	}
	if len(cart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	result := &ValidationResult{}
	productCache := map[uuid.UUID]*models.Product{}

	for _, item := range cart.Items {
		product, ok := productCache[item.ProductID]
		if !ok {
			loaded, err := v.catalog.FindByID(ctx, item.ProductID)
			if err != nil {
				if !IsNotFound(err) {
					return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
				}
				loaded = nil
			}
			productCache[item.ProductID] = loaded
			product = loaded
		}

		if product == nil {
			result.Issues = append(result.Issues, Issue{
				ItemID:  item.ID,
				Code:    enums.CartIssueProductNotFound,
				Message: "product no longer exists",
			})
			continue
		}
		if !product.IsPurchasable() {
			result.Issues = append(result.Issues, Issue{
				ItemID:  item.ID,
				Code:    enums.CartIssueProductInactive,
				Message: fmt.Sprintf("%s is no longer available", product.Title),
			})
			continue
		}

		variant, issueCode := resolveVariant(product, item.VariantID)
		if issueCode != "" {
			result.Issues = append(result.Issues, Issue{
				ItemID:  item.ID,
				Code:    issueCode,
				Message: variantIssueMessage(issueCode, product.Title),
			})
			continue
		}

		if variant.StockQuantity < item.Quantity {
			result.Issues = append(result.Issues, Issue{
				ItemID:  item.ID,
				Code:    enums.CartIssueInsufficientStock,
				Message: fmt.Sprintf("only %d of %s left", variant.StockQuantity, product.Title),
			})
			continue
		}

		if variant.PricePaise != item.UnitPricePaise {
			result.Warnings = append(result.Warnings, Warning{
				ItemID:  item.ID,
				Code:    enums.CartWarningPriceChanged,
				Message: fmt.Sprintf("price of %s changed since it was added", product.Title),
			})
		}
		if remaining := variant.StockQuantity - item.Quantity; remaining <= v.lowStockThreshold {
			result.Warnings = append(result.Warnings, Warning{
				ItemID:  item.ID,
				Code:    enums.CartWarningLowStock,
				Message: fmt.Sprintf("%s is almost sold out", product.Title),
			})
		}

		result.Lines = append(result.Lines, ValidatedLine{
			Item:           item,
			Product:        *product,
			Variant:        *variant,
			UnitPricePaise: variant.PricePaise,
		})
	}

	return result, nil
}

// resolveVariant picks the variant a cart row refers to. Rows without an
// explicit variant resolve only when the product has exactly one.
func resolveVariant(product *models.Product, variantID *uuid.UUID) (*models.Variant, enums.CartIssueCode) {
	if variantID != nil {
		for i := range product.Variants {
			if product.Variants[i].ID == *variantID {
				if !product.Variants[i].IsSellable() {
					return nil, enums.CartIssueVariantInactive
				}
				return &product.Variants[i], ""
			}
		}
		return nil, enums.CartIssueVariantNotFound
	}

	var sellable []*models.Variant
	for i := range product.Variants {
		if product.Variants[i].IsSellable() {
			sellable = append(sellable, &product.Variants[i])
		}
	}
	switch len(sellable) {
	case 0:
		return nil, enums.CartIssueVariantNotFound
	case 1:
		return sellable[0], ""
	default:
		return nil, enums.CartIssueVariantAmbiguous
	}
}

func variantIssueMessage(code enums.CartIssueCode, title string) string {
	switch code {
	case enums.CartIssueVariantNotFound:
		return fmt.Sprintf("selected option of %s no longer exists", title)
	case enums.CartIssueVariantInactive:
		return fmt.Sprintf("selected option of %s was discontinued", title)
	case enums.CartIssueVariantAmbiguous:
		return fmt.Sprintf("%s needs a size or colour selection", title)
	default:
		return "cart row is invalid"
	}
}
