package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
)

// Variant is the sellable unit of a product, e.g. a size and colour combination.
// StockQuantity is only ever mutated through conditional updates so concurrent
// adjustments cannot drive it negative.
type Variant struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID           uuid.UUID           `gorm:"column:product_id;type:uuid;not null;index"`
	SKU                 string              `gorm:"column:sku;not null;uniqueIndex"`
	Label               string              `gorm:"column:label;not null"`
	Size                *string             `gorm:"column:size"`
	Color               *string             `gorm:"column:color"`
	PricePaise          int64               `gorm:"column:price_paise;not null"`
	CompareAtPricePaise *int64              `gorm:"column:compare_at_price_paise"`
	Currency            enums.Currency      `gorm:"column:currency;not null;default:'INR'"`
	StockQuantity       int                 `gorm:"column:stock_quantity;not null;default:0"`
	Status              enums.VariantStatus `gorm:"column:status;not null;default:'active'"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsSellable reports whether the variant may be added to a cart.
func (v Variant) IsSellable() bool {
	return v.Status == enums.VariantStatusActive
}
