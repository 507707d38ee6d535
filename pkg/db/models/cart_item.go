package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one product variant row in a cart. UnitPricePaise snapshots the
// variant price at the time the row was last written; the validator compares
// it against the live price and surfaces drift as a warning.
type CartItem struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID         uuid.UUID  `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_items_cart_variant"`
	ProductID      uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	VariantID      *uuid.UUID `gorm:"column:variant_id;type:uuid;uniqueIndex:idx_cart_items_cart_variant"`
	Quantity       int        `gorm:"column:quantity;not null"`
	UnitPricePaise int64      `gorm:"column:unit_price_paise;not null"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// LineSubtotalPaise is quantity times the snapshotted unit price.
func (i CartItem) LineSubtotalPaise() int64 {
	return int64(i.Quantity) * i.UnitPricePaise
}
