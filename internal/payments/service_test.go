package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/fabricspeaks/fabricspeaks-backend/internal/inventory"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/auth"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/config"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/db/models"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
	pkgerrors "github.com/fabricspeaks/fabricspeaks-backend/pkg/errors"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/logger"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/outbox"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/outbox/idempotency"
)

const testKeySecret = "rzp_test_secret"

type gormTxRunner struct {
	conn *gorm.DB
}

func (g gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.conn.WithContext(ctx).Transaction(fn)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("FABRICSPEAKS_DB_DSN")
	if dsn == "" {
		t.Skip("FABRICSPEAKS_DB_DSN is not set")
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return conn
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "payments-test", Output: io.Discard})
}

func signPayment(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testKeySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

type paymentFixture struct {
	order   *models.Order
	variant *models.Variant
	session string
}

// seedPaidableOrder writes a committed pending order with one line item.
func seedPaidableOrder(t *testing.T, conn *gorm.DB, quantity, stock int) *paymentFixture {
	t.Helper()
	suffix := uuid.NewString()[:8]

	product := &models.Product{
		ID:     uuid.New(),
		Slug:   fmt.Sprintf("evening-dress-%s", suffix),
		Title:  "Evening Dress",
		Status: enums.ProductStatusActive,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	variant := &models.Variant{
		ID:            uuid.New(),
		ProductID:     product.ID,
		SKU:           fmt.Sprintf("ED-%s", suffix),
		Label:         "S / Black",
		PricePaise:    1450000,
		Currency:      enums.CurrencyINR,
		StockQuantity: stock,
		Status:        enums.VariantStatusActive,
	}
	if err := conn.Create(variant).Error; err != nil {
		t.Fatalf("create variant: %v", err)
	}

	session := fmt.Sprintf("guest-%s", suffix)
	cartRecord := &models.Cart{
		ID:        uuid.New(),
		SessionID: &session,
		Status:    enums.CartStatusConverted,
		Currency:  enums.CurrencyINR,
	}
	if err := conn.Create(cartRecord).Error; err != nil {
		t.Fatalf("create cart: %v", err)
	}

	gatewayID := fmt.Sprintf("order_test_%s", suffix)
	subtotal := int64(quantity) * variant.PricePaise
	order := &models.Order{
		ID:              uuid.New(),
		SessionID:       &session,
		CartID:          cartRecord.ID,
		Status:          enums.OrderStatusPending,
		Currency:        enums.CurrencyINR,
		SubtotalPaise:   subtotal,
		ShippingPaise:   2000,
		TaxPaise:        subtotal * 8 / 100,
		TotalPaise:      subtotal + 2000 + subtotal*8/100,
		ContactEmail:    "guest@example.com",
		RazorpayOrderID: &gatewayID,
		LineItems: []models.OrderLineItem{
			{
				ID:             uuid.New(),
				ProductID:      product.ID,
				VariantID:      variant.ID,
				ProductTitle:   product.Title,
				VariantLabel:   variant.Label,
				SKU:            variant.SKU,
				Quantity:       quantity,
				UnitPricePaise: variant.PricePaise,
				LineTotalPaise: int64(quantity) * variant.PricePaise,
			},
		},
	}
	if err := conn.Create(order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}

	t.Cleanup(func() {
		conn.Delete(&models.OutboxEvent{}, "aggregate_id IN ?", []uuid.UUID{order.ID, variant.ID})
		conn.Delete(&models.InventoryAdjustment{}, "order_id = ?", order.ID)
		conn.Exec("DELETE FROM order_line_items WHERE order_id = ?", order.ID)
		conn.Delete(&models.Order{}, "id = ?", order.ID)
		conn.Delete(&models.Cart{}, "id = ?", cartRecord.ID)
		conn.Delete(&models.Variant{}, "id = ?", variant.ID)
		conn.Delete(&models.Product{}, "id = ?", product.ID)
	})

	return &paymentFixture{order: order, variant: variant, session: session}
}

func newPaymentService(t *testing.T, conn *gorm.DB, idem *idempotency.Manager) Service {
	t.Helper()
	logg := testLogger()
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)
	invSvc, err := inventory.NewService(
		gormTxRunner{conn: conn},
		inventory.NewRepository(conn),
		outboxSvc,
		config.InventoryConfig{LowStockThreshold: 5, OutlookWindowDays: 30},
		nil,
		logg,
	)
	if err != nil {
		t.Fatalf("new inventory service: %v", err)
	}
	svc, err := NewService(
		gormTxRunner{conn: conn},
		NewRepository(conn),
		invSvc,
		outboxSvc,
		idem,
		config.RazorpayConfig{KeyID: "rzp_test_key", KeySecret: testKeySecret, WebhookSecret: "whsec"},
		nil,
		logg,
	)
	if err != nil {
		t.Fatalf("new payment service: %v", err)
	}
	return svc
}

type memEventStore struct {
	values map[string]string
}

func newMemEventStore() *memEventStore {
	return &memEventStore{values: map[string]string{}}
}

func (s *memEventStore) Get(_ context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (s *memEventStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = fmt.Sprint(value)
	return true, nil
}

func (s *memEventStore) IdempotencyKey(scope, id string) string {
	return "idemp:" + scope + ":" + id
}

func (s *memEventStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func signWebhook(body []byte) string {
	mac := hmac.New(sha256.New, []byte("whsec"))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func capturedPaymentBody(gatewayOrderID, paymentID string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":%q,"order_id":%q}}}}`,
		paymentID, gatewayOrderID,
	))
}

func TestVerifyPaymentRejectsForgedSignature(t *testing.T) {
	svc := &service{
		cfg:  config.RazorpayConfig{KeySecret: testKeySecret},
		logg: testLogger(),
	}
	_, err := svc.VerifyPayment(context.Background(), auth.Identity{}, VerifyInput{
		RazorpayOrderID:   "order_abc",
		RazorpayPaymentID: "pay_abc",
		RazorpaySignature: "deadbeef",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for forged signature, got %v", err)
	}

	_, err = svc.VerifyPayment(context.Background(), auth.Identity{}, VerifyInput{})
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty input, got %v", err)
	}
}

func TestCheckOwnership(t *testing.T) {
	userID := uuid.New()
	otherID := uuid.New()
	session := "sess-1"
	otherSession := "sess-2"

	userOrder := &models.Order{UserID: &userID}
	guestOrder := &models.Order{SessionID: &session}

	if err := checkOwnership(userOrder, auth.Identity{UserID: &userID, Role: enums.ActorRoleCustomer}); err != nil {
		t.Fatalf("owner should pass: %v", err)
	}
	if err := checkOwnership(userOrder, auth.Identity{UserID: &otherID, Role: enums.ActorRoleCustomer}); err == nil {
		t.Fatal("expected forbidden for other customer")
	}
	if err := checkOwnership(guestOrder, auth.Identity{SessionID: &session, Role: enums.ActorRoleGuest}); err != nil {
		t.Fatalf("session owner should pass: %v", err)
	}
	if err := checkOwnership(guestOrder, auth.Identity{SessionID: &otherSession, Role: enums.ActorRoleGuest}); err == nil {
		t.Fatal("expected forbidden for other session")
	}
	adminID := uuid.New()
	if err := checkOwnership(userOrder, auth.Identity{UserID: &adminID, Role: enums.ActorRoleAdmin}); err != nil {
		t.Fatalf("admin should pass: %v", err)
	}
}

func TestVerifyPaymentSettlesOnce(t *testing.T) {
	conn := openTestDB(t)
	fx := seedPaidableOrder(t, conn, 2, 5)
	svc := newPaymentService(t, conn, nil)
	ctx := context.Background()
	ident := auth.Identity{SessionID: &fx.session, Role: enums.ActorRoleGuest}

	input := VerifyInput{
		RazorpayOrderID:   *fx.order.RazorpayOrderID,
		RazorpayPaymentID: "pay_settle_once",
		RazorpaySignature: signPayment(*fx.order.RazorpayOrderID, "pay_settle_once"),
	}

	first, err := svc.VerifyPayment(ctx, ident, input)
	if err != nil {
		t.Fatalf("first verify: %v", err)
	}
	if first.Status != enums.OrderStatusPaid {
		t.Fatalf("expected paid order, got %s", first.Status)
	}
	if first.PaidAt == nil || first.RazorpayPaymentID == nil {
		t.Fatal("expected paid_at and payment id to be set")
	}

	second, err := svc.VerifyPayment(ctx, ident, input)
	if err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if second.Status != enums.OrderStatusPaid {
		t.Fatalf("expected paid order on repeat, got %s", second.Status)
	}

	var variant models.Variant
	if err := conn.First(&variant, "id = ?", fx.variant.ID).Error; err != nil {
		t.Fatalf("load variant: %v", err)
	}
	if variant.StockQuantity != 3 {
		t.Fatalf("expected stock decremented once to 3, got %d", variant.StockQuantity)
	}

	var ledgerCount int64
	if err := conn.Model(&models.InventoryAdjustment{}).
		Where("order_id = ? AND reason = ?", fx.order.ID, enums.AdjustmentReasonSale).
		Count(&ledgerCount).Error; err != nil {
		t.Fatalf("count ledger rows: %v", err)
	}
	if ledgerCount != 1 {
		t.Fatalf("expected 1 sale ledger row, got %d", ledgerCount)
	}

	var paidEvents int64
	if err := conn.Model(&models.OutboxEvent{}).
		Where("aggregate_id = ? AND event_type = ?", fx.order.ID, enums.OutboxEventOrderPaid).
		Count(&paidEvents).Error; err != nil {
		t.Fatalf("count outbox events: %v", err)
	}
	if paidEvents != 1 {
		t.Fatalf("expected 1 order.paid event, got %d", paidEvents)
	}
}

func TestVerifyPaymentInsufficientStockKeepsOrderPending(t *testing.T) {
	conn := openTestDB(t)
	fx := seedPaidableOrder(t, conn, 2, 1)
	svc := newPaymentService(t, conn, nil)
	ctx := context.Background()
	ident := auth.Identity{SessionID: &fx.session, Role: enums.ActorRoleGuest}

	_, err := svc.VerifyPayment(ctx, ident, VerifyInput{
		RazorpayOrderID:   *fx.order.RazorpayOrderID,
		RazorpayPaymentID: "pay_stockout",
		RazorpaySignature: signPayment(*fx.order.RazorpayOrderID, "pay_stockout"),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	var order models.Order
	if err := conn.First(&order, "id = ?", fx.order.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("expected order to stay pending, got %s", order.Status)
	}
	if order.RazorpayPaymentID != nil {
		t.Fatal("expected payment id to stay unset after rollback")
	}

	var variant models.Variant
	if err := conn.First(&variant, "id = ?", fx.variant.ID).Error; err != nil {
		t.Fatalf("load variant: %v", err)
	}
	if variant.StockQuantity != 1 {
		t.Fatalf("expected untouched stock 1, got %d", variant.StockQuantity)
	}
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	svc := &service{
		cfg:  config.RazorpayConfig{KeySecret: testKeySecret, WebhookSecret: "whsec"},
		logg: testLogger(),
	}
	err := svc.HandleWebhook(context.Background(), "evt_1", "bad", []byte(`{}`))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestHandleWebhookIgnoresOtherEvents(t *testing.T) {
	svc := &service{
		cfg:  config.RazorpayConfig{KeySecret: testKeySecret, WebhookSecret: "whsec"},
		logg: testLogger(),
	}
	body := []byte(`{"event":"payment.failed"}`)
	mac := hmac.New(sha256.New, []byte("whsec"))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))

	if err := svc.HandleWebhook(context.Background(), "evt_2", sig, body); err != nil {
		t.Fatalf("expected ignored event, got %v", err)
	}
}

func TestHandleWebhookRetriesAfterFailedSettle(t *testing.T) {
	conn := openTestDB(t)
	fx := seedPaidableOrder(t, conn, 2, 1)

	idem, err := idempotency.NewManager(newMemEventStore(), time.Hour)
	if err != nil {
		t.Fatalf("new idempotency manager: %v", err)
	}
	svc := newPaymentService(t, conn, idem)
	ctx := context.Background()

	body := capturedPaymentBody(*fx.order.RazorpayOrderID, "pay_retry")
	sig := signWebhook(body)

	err = svc.HandleWebhook(ctx, "evt_retry_1", sig, body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock on first delivery, got %v", err)
	}

	if err := conn.Model(&models.Variant{}).
		Where("id = ?", fx.variant.ID).
		Update("stock_quantity", 5).Error; err != nil {
		t.Fatalf("restock variant: %v", err)
	}

	// The gateway retries the same event id after the restock.
	if err := svc.HandleWebhook(ctx, "evt_retry_1", sig, body); err != nil {
		t.Fatalf("retried delivery should settle, got %v", err)
	}

	var order models.Order
	if err := conn.First(&order, "id = ?", fx.order.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if order.Status != enums.OrderStatusPaid {
		t.Fatalf("expected paid order after retry, got %s", order.Status)
	}

	var variant models.Variant
	if err := conn.First(&variant, "id = ?", fx.variant.ID).Error; err != nil {
		t.Fatalf("load variant: %v", err)
	}
	if variant.StockQuantity != 3 {
		t.Fatalf("expected stock decremented to 3, got %d", variant.StockQuantity)
	}

	// A duplicate delivery after settlement is dropped without double work.
	if err := svc.HandleWebhook(ctx, "evt_retry_1", sig, body); err != nil {
		t.Fatalf("duplicate delivery after settle: %v", err)
	}
	if err := conn.First(&variant, "id = ?", fx.variant.ID).Error; err != nil {
		t.Fatalf("reload variant: %v", err)
	}
	if variant.StockQuantity != 3 {
		t.Fatalf("expected stock unchanged on duplicate, got %d", variant.StockQuantity)
	}
}
