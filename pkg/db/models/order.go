package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/types"
)

// Order is the immutable record produced at checkout. Money columns are
// integer paise; totals are computed once at creation and never recomputed.
type Order struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID            *uuid.UUID        `gorm:"column:user_id;type:uuid;index"`
	SessionID         *string           `gorm:"column:session_id;index"`
	CartID            uuid.UUID         `gorm:"column:cart_id;type:uuid;not null"`
	Status            enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	Currency          enums.Currency    `gorm:"column:currency;not null;default:'INR'"`
	SubtotalPaise     int64             `gorm:"column:subtotal_paise;not null"`
	ShippingPaise     int64             `gorm:"column:shipping_paise;not null"`
	TaxPaise          int64             `gorm:"column:tax_paise;not null"`
	TotalPaise        int64             `gorm:"column:total_paise;not null"`
	ContactEmail      string            `gorm:"column:contact_email;not null"`
	ContactPhone      *string           `gorm:"column:contact_phone"`
	ShippingAddress   types.Address     `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	RazorpayOrderID   *string           `gorm:"column:razorpay_order_id;index"`
	RazorpayPaymentID *string           `gorm:"column:razorpay_payment_id"`
	LineItems         []OrderLineItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaidAt            *time.Time        `gorm:"column:paid_at"`
	CancelledAt       *time.Time        `gorm:"column:cancelled_at"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
