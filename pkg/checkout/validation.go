package checkout

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/fabricspeaks/fabricspeaks-backend/pkg/errors"
)

// QuantityValidationInput describes the data required to verify a line item's quantity.
type QuantityValidationInput struct {
	ProductID    uuid.UUID
	ProductTitle string
	Quantity     int
}

// QuantityViolationDetail exposes the data returned to callers when a validation fails.
type QuantityViolationDetail struct {
	ProductID    uuid.UUID `json:"product_id"`
	ProductTitle string    `json:"product_title,omitempty"`
	MaxQty       int       `json:"max_qty"`
	RequestedQty int       `json:"requested_qty"`
}

// ValidateQuantities ensures every line item requests a positive quantity no
// larger than the per-row cap. A cap of zero or less disables the upper bound.
func ValidateQuantities(items []QuantityValidationInput, maxPerRow int) error {
	var violations []QuantityViolationDetail
	for _, item := range items {
		if item.Quantity <= 0 {
			violations = append(violations, QuantityViolationDetail{
				ProductID:    item.ProductID,
				ProductTitle: item.ProductTitle,
				MaxQty:       maxPerRow,
				RequestedQty: item.Quantity,
			})
			continue
		}
		if maxPerRow > 0 && item.Quantity > maxPerRow {
			violations = append(violations, QuantityViolationDetail{
				ProductID:    item.ProductID,
				ProductTitle: item.ProductTitle,
				MaxQty:       maxPerRow,
				RequestedQty: item.Quantity,
			})
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid quantity for %d item(s)", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}
