package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLineItem snapshots one cart row at checkout. Title, label and price are
// copied so later catalog edits never change what the customer agreed to pay.
type OrderLineItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	VariantID      uuid.UUID `gorm:"column:variant_id;type:uuid;not null"`
	ProductTitle   string    `gorm:"column:product_title;not null"`
	VariantLabel   string    `gorm:"column:variant_label;not null"`
	SKU            string    `gorm:"column:sku;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPricePaise int64     `gorm:"column:unit_price_paise;not null"`
	LineTotalPaise int64     `gorm:"column:line_total_paise;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
