package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
)

// OrderCreatedEvent is emitted when checkout produces a pending order.
type OrderCreatedEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	CartID          uuid.UUID `json:"cart_id"`
	RazorpayOrderID string    `json:"razorpay_order_id"`
	TotalPaise      int64     `json:"total_paise"`
	Currency        string    `json:"currency"`
	ItemCount       int       `json:"item_count"`
}

// OrderPaidEvent is emitted once a payment signature verifies and stock is
// committed.
type OrderPaidEvent struct {
	OrderID           uuid.UUID `json:"order_id"`
	RazorpayOrderID   string    `json:"razorpay_order_id"`
	RazorpayPaymentID string    `json:"razorpay_payment_id"`
	TotalPaise        int64     `json:"total_paise"`
	PaidAt            time.Time `json:"paid_at"`
}

// OrderCancelledEvent covers both customer cancellations and sweeper expiry.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	Reason      string    `json:"reason,omitempty"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// OrderRefundedEvent is emitted when an order moves to refunded and stock is
// returned.
type OrderRefundedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	TotalPaise int64     `json:"total_paise"`
	RefundedAt time.Time `json:"refunded_at"`
}

// InventoryAdjustedEvent mirrors one row of the stock ledger.
type InventoryAdjustedEvent struct {
	VariantID  uuid.UUID              `json:"variant_id"`
	Delta      int                    `json:"delta"`
	Reason     enums.AdjustmentReason `json:"reason"`
	StockAfter int                    `json:"stock_after"`
	OrderID    *uuid.UUID             `json:"order_id,omitempty"`
}
