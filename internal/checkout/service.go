package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	cartpkg "github.com/fabricspeaks/fabricspeaks-backend/internal/cart"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/auth"
	quantities "github.com/fabricspeaks/fabricspeaks-backend/pkg/checkout"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/config"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/db/models"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
	pkgerrors "github.com/fabricspeaks/fabricspeaks-backend/pkg/errors"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/logger"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/metrics"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/outbox"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/outbox/payloads"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/razorpay"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/types"
)

// CheckoutInput carries the contact and shipping details for an order.
type CheckoutInput struct {
	ContactEmail    string
	ContactPhone    *string
	ShippingAddress types.Address
}

// CheckoutResult is everything the client needs to open the payment widget.
type CheckoutResult struct {
	Order           *models.Order     `json:"order"`
	RazorpayOrderID string            `json:"razorpay_order_id"`
	RazorpayKeyID   string            `json:"razorpay_key_id"`
	AmountPaise     int64             `json:"amount_paise"`
	Currency        enums.Currency    `json:"currency"`
	Warnings        []cartpkg.Warning `json:"warnings,omitempty"`
}

// Service turns a validated cart into a pending order registered with the
// payment gateway.
type Service interface {
	Checkout(ctx context.Context, ident auth.Identity, input CheckoutInput) (*CheckoutResult, error)
}

// txRunner abstracts the transactional database client.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	db        txRunner
	orders    *Repository
	carts     *cartpkg.Repository
	validator *cartpkg.Validator
	gateway   razorpay.OrderCreator
	outbox    *outbox.Service
	cfg       config.CheckoutConfig
	keyID     string
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
}

// NewService builds the checkout orchestrator. The metrics collector is
// optional.
func NewService(
	db txRunner,
	orders *Repository,
	carts *cartpkg.Repository,
	validator *cartpkg.Validator,
	gateway razorpay.OrderCreator,
	outboxSvc *outbox.Service,
	cfg config.CheckoutConfig,
	razorpayKeyID string,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db client required")
	}
	if orders == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if validator == nil {
		return nil, fmt.Errorf("cart validator required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		db:        db,
		orders:    orders,
		carts:     carts,
		validator: validator,
		gateway:   gateway,
		outbox:    outboxSvc,
		cfg:       cfg,
		keyID:     razorpayKeyID,
		metrics:   checkoutMetrics,
		logg:      logg,
	}, nil
}

func (s *service) Checkout(ctx context.Context, ident auth.Identity, input CheckoutInput) (*CheckoutResult, error) {
	if !ident.HasActor() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login or guest session required")
	}

	email := strings.TrimSpace(input.ContactEmail)
	if email == "" || !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid contact email is required")
	}
	if !ident.IsAuthenticated() {
		// Guests have no account to fall back on, so a phone is the only
		// second contact channel for the order.
		if input.ContactPhone == nil || strings.TrimSpace(*input.ContactPhone) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "a contact phone is required for guest checkout")
		}
	}
	address := input.ShippingAddress.Normalized()
	if !address.IsComplete() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete")
	}

	cartRecord, err := s.carts.FindActive(ctx, ident)
	if err != nil {
		if cartpkg.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}

	validation, err := s.validator.Validate(ctx, cartRecord)
	if err != nil {
		return nil, err
	}
	if !validation.OK() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart cannot be checked out").
			WithDetails(map[string]any{
				"issues":   validation.Issues,
				"warnings": validation.Warnings,
			})
	}

	rows := make([]quantities.QuantityValidationInput, 0, len(validation.Lines))
	for _, line := range validation.Lines {
		rows = append(rows, quantities.QuantityValidationInput{
			ProductID:    line.Product.ID,
			ProductTitle: line.Product.Title,
			Quantity:     line.Item.Quantity,
		})
	}
	if err := quantities.ValidateQuantities(rows, s.cfg.MaxQuantityPerRow); err != nil {
		return nil, err
	}

	subtotal := validation.SubtotalPaise()
	shipping := s.cfg.ShippingFeePaise
	tax := taxPaise(subtotal, s.cfg.TaxRatePercent)
	total := subtotal + shipping + tax

	order := &models.Order{
		UserID:          ident.UserID,
		SessionID:       ident.SessionID,
		CartID:          cartRecord.ID,
		Status:          enums.OrderStatusPending,
		Currency:        enums.CurrencyINR,
		SubtotalPaise:   subtotal,
		ShippingPaise:   shipping,
		TaxPaise:        tax,
		TotalPaise:      total,
		ContactEmail:    email,
		ContactPhone:    input.ContactPhone,
		ShippingAddress: address,
		LineItems:       buildLineItems(validation.Lines),
	}
	if ident.IsAuthenticated() {
		order.SessionID = nil
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		_, txErr := s.orders.WithTx(tx).CreateOrder(ctx, order)
		return txErr
	})
	if err != nil {
		s.metrics.IncCheckout("failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
	}

	gatewayOrder, err := s.registerWithGateway(ctx, order)
	if err != nil {
		s.metrics.IncCheckout("gateway_failed")
		if delErr := s.orders.DeleteOrder(context.WithoutCancel(ctx), order.ID); delErr != nil {
			s.logg.Error(ctx, "failed to roll back order after gateway error", delErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentGateway, err, "registering order with gateway")
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if txErr := s.orders.WithTx(tx).SetGatewayOrderID(ctx, order.ID, gatewayOrder.ID); txErr != nil {
			return txErr
		}
		if txErr := s.carts.WithTx(tx).MarkConverted(ctx, cartRecord.ID); txErr != nil {
			return txErr
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderCreated,
			AggregateType: enums.OutboxAggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(ident),
			Data: payloads.OrderCreatedEvent{
				OrderID:         order.ID,
				CartID:          cartRecord.ID,
				RazorpayOrderID: gatewayOrder.ID,
				TotalPaise:      total,
				Currency:        enums.CurrencyINR.String(),
				ItemCount:       len(order.LineItems),
			},
			Version: 1,
		})
	})
	if err != nil {
		s.metrics.IncCheckout("failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finalizing order")
	}

	gatewayID := gatewayOrder.ID
	order.RazorpayOrderID = &gatewayID

	s.metrics.IncCheckout("created")
	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"total_paise":       total,
		"razorpay_order_id": gatewayOrder.ID,
		"line_items":        len(order.LineItems),
	})
	s.logg.Info(logCtx, "checkout created pending order")

	return &CheckoutResult{
		Order:           order,
		RazorpayOrderID: gatewayOrder.ID,
		RazorpayKeyID:   s.keyID,
		AmountPaise:     total,
		Currency:        enums.CurrencyINR,
		Warnings:        validation.Warnings,
	}, nil
}

func (s *service) registerWithGateway(ctx context.Context, order *models.Order) (*razorpay.GatewayOrder, error) {
	timeout := s.cfg.GatewayTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	gatewayCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	gatewayOrder, err := s.gateway.CreateOrder(gatewayCtx, razorpay.CreateOrderInput{
		AmountPaise: order.TotalPaise,
		Currency:    order.Currency.String(),
		Receipt:     order.ID.String(),
		Notes: map[string]interface{}{
			"order_id": order.ID.String(),
			"cart_id":  order.CartID.String(),
		},
	})
	s.metrics.ObserveGatewayLatency(time.Since(start))
	return gatewayOrder, err
}

func buildLineItems(lines []cartpkg.ValidatedLine) []models.OrderLineItem {
	items := make([]models.OrderLineItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.OrderLineItem{
			ProductID:      line.Product.ID,
			VariantID:      line.Variant.ID,
			ProductTitle:   line.Product.Title,
			VariantLabel:   line.Variant.Label,
			SKU:            line.Variant.SKU,
			Quantity:       line.Item.Quantity,
			UnitPricePaise: line.UnitPricePaise,
			LineTotalPaise: line.LineTotalPaise(),
		})
	}
	return items
}

// taxPaise computes the tax on the subtotal, rounded to the nearest paisa.
func taxPaise(subtotalPaise, ratePercent int64) int64 {
	return decimal.NewFromInt(subtotalPaise).
		Mul(decimal.NewFromInt(ratePercent)).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

func actorRef(ident auth.Identity) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID:    ident.UserID,
		SessionID: ident.SessionID,
		Role:      ident.Role.String(),
	}
}
