package enums

import "fmt"

// AdjustmentReason classifies why a variant's stock changed. Every stock
// mutation carries exactly one reason in its log row.
type AdjustmentReason string

const (
	// AdjustmentReasonSale is a decrement caused by a paid order.
	AdjustmentReasonSale AdjustmentReason = "sale"
	// AdjustmentReasonManual is an admin correction from the inventory screen.
	AdjustmentReasonManual AdjustmentReason = "manual"
	// AdjustmentReasonReturn restores stock for a cancelled or refunded paid order.
	AdjustmentReasonReturn AdjustmentReason = "return"
	// AdjustmentReasonRestock is an inbound delivery.
	AdjustmentReasonRestock AdjustmentReason = "restock"
)

var validAdjustmentReasons = []AdjustmentReason{
	AdjustmentReasonSale,
	AdjustmentReasonManual,
	AdjustmentReasonReturn,
	AdjustmentReasonRestock,
}

// String implements fmt.Stringer.
func (a AdjustmentReason) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AdjustmentReason.
func (a AdjustmentReason) IsValid() bool {
	for _, candidate := range validAdjustmentReasons {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAdjustmentReason converts raw input into an AdjustmentReason.
func ParseAdjustmentReason(value string) (AdjustmentReason, error) {
	for _, candidate := range validAdjustmentReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid adjustment reason %q", value)
}
