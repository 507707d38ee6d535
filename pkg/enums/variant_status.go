package enums

import "fmt"

// VariantStatus marks whether a SKU is purchasable.
type VariantStatus string

const (
	VariantStatusActive       VariantStatus = "active"
	VariantStatusDiscontinued VariantStatus = "discontinued"
)

var validVariantStatuses = []VariantStatus{
	VariantStatusActive,
	VariantStatusDiscontinued,
}

// String implements fmt.Stringer.
func (v VariantStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VariantStatus.
func (v VariantStatus) IsValid() bool {
	for _, candidate := range validVariantStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVariantStatus converts raw input into a VariantStatus.
func ParseVariantStatus(value string) (VariantStatus, error) {
	for _, candidate := range validVariantStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid variant status %q", value)
}
