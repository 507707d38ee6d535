package enums

// CartIssueCode identifies a blocking error found during cart validation.
type CartIssueCode string

const (
	CartIssueProductNotFound   CartIssueCode = "product_not_found"
	CartIssueProductInactive   CartIssueCode = "product_inactive"
	CartIssueVariantNotFound   CartIssueCode = "variant_not_found"
	CartIssueVariantInactive   CartIssueCode = "variant_discontinued"
	CartIssueVariantAmbiguous  CartIssueCode = "variant_selection_required"
	CartIssueInsufficientStock CartIssueCode = "insufficient_stock"
)

// CartWarningCode identifies a non-blocking condition surfaced to the shopper.
type CartWarningCode string

const (
	CartWarningPriceChanged CartWarningCode = "price_changed"
	CartWarningLowStock     CartWarningCode = "low_stock"
)
