package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabricspeaks/fabricspeaks-backend/internal/inventory"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/auth"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/config"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/db/models"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
	pkgerrors "github.com/fabricspeaks/fabricspeaks-backend/pkg/errors"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/logger"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/metrics"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/outbox"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/outbox/idempotency"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/outbox/payloads"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/razorpay"
)

const webhookConsumer = "razorpay-webhook"

// VerifyInput carries the gateway callback fields posted by the client after
// payment.
type VerifyInput struct {
	RazorpayOrderID   string
	RazorpayPaymentID string
	RazorpaySignature string
}

// Service settles pending orders once the gateway confirms payment.
type Service interface {
	VerifyPayment(ctx context.Context, ident auth.Identity, input VerifyInput) (*models.Order, error)
	HandleWebhook(ctx context.Context, eventID string, signature string, body []byte) error
}

// txRunner abstracts the transactional database client.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	db          txRunner
	repo        *Repository
	inventory   inventory.Service
	outbox      *outbox.Service
	idempotency *idempotency.Manager
	cfg         config.RazorpayConfig
	metrics     *metrics.CheckoutMetrics
	logg        *logger.Logger
}

// NewService builds the payment verifier. The idempotency manager and metrics
// collector are optional.
func NewService(
	db txRunner,
	repo *Repository,
	inventorySvc inventory.Service,
	outboxSvc *outbox.Service,
	idem *idempotency.Manager,
	cfg config.RazorpayConfig,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if inventorySvc == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if cfg.KeySecret == "" {
		return nil, fmt.Errorf("razorpay key secret required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		db:          db,
		repo:        repo,
		inventory:   inventorySvc,
		outbox:      outboxSvc,
		idempotency: idem,
		cfg:         cfg,
		metrics:     checkoutMetrics,
		logg:        logg,
	}, nil
}

func (s *service) VerifyPayment(ctx context.Context, ident auth.Identity, input VerifyInput) (*models.Order, error) {
	orderID := strings.TrimSpace(input.RazorpayOrderID)
	paymentID := strings.TrimSpace(input.RazorpayPaymentID)
	signature := strings.TrimSpace(input.RazorpaySignature)
	if orderID == "" || paymentID == "" || signature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id, payment id and signature are required")
	}

	if !razorpay.VerifyPaymentSignature(orderID, paymentID, signature, s.cfg.KeySecret) {
		s.metrics.IncVerification("forged")
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "payment signature verification failed")
	}

	order, err := s.repo.FindByGatewayOrderID(ctx, orderID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}

	if err := checkOwnership(order, ident); err != nil {
		return nil, err
	}

	return s.settle(ctx, order, paymentID, actorRef(ident))
}

// webhookEnvelope is the slice of Razorpay's webhook body we act on.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func (s *service) HandleWebhook(ctx context.Context, eventID string, signature string, body []byte) error {
	if s.cfg.WebhookSecret == "" {
		return pkgerrors.New(pkgerrors.CodeDependency, "webhook secret is not configured")
	}
	if !razorpay.VerifyWebhookSignature(body, signature, s.cfg.WebhookSecret) {
		s.metrics.IncVerification("forged")
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature verification failed")
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding webhook body")
	}
	if envelope.Event != "payment.captured" {
		s.logg.Info(s.logg.WithField(ctx, "event", envelope.Event), "ignoring webhook event")
		return nil
	}
	payment := envelope.Payload.Payment.Entity
	if payment.OrderID == "" || payment.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook payload missing payment details")
	}

	var marked bool
	if s.idempotency != nil && eventID != "" {
		processed, err := s.idempotency.CheckAndMarkProcessed(ctx, webhookConsumer, webhookEventUUID(eventID))
		if err != nil {
			s.logg.Error(ctx, "webhook idempotency check failed", err)
		} else if processed {
			return nil
		} else {
			marked = true
		}
	}

	err := s.handleCapturedPayment(ctx, payment.OrderID, payment.ID)
	if err != nil && marked {
		// Release the mark so the gateway's retry of this event id is not
		// swallowed while the order is still unsettled.
		if delErr := s.idempotency.Delete(ctx, webhookConsumer, webhookEventUUID(eventID)); delErr != nil {
			s.logg.Error(ctx, "releasing webhook idempotency mark failed", delErr)
		}
	}
	return err
}

func (s *service) handleCapturedPayment(ctx context.Context, gatewayOrderID, paymentID string) error {
	order, err := s.repo.FindByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		if IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}

	systemRole := enums.ActorRoleSystem
	_, err = s.settle(ctx, order, paymentID, &outbox.ActorRef{Role: systemRole.String()})
	return err
}

// settle flips the order to paid, decrements stock for every line item and
// queues order.paid, all in one transaction. Re-settling a paid order is a
// no-op so stock is never decremented twice.
func (s *service) settle(ctx context.Context, order *models.Order, paymentID string, actor *outbox.ActorRef) (*models.Order, error) {
	if order.Status == enums.OrderStatusPaid {
		s.metrics.IncVerification("duplicate")
		return order, nil
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order is %s and cannot be paid", order.Status))
	}

	paidAt := time.Now()
	var lostRace bool
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		affected, txErr := s.repo.WithTx(tx).MarkPaid(ctx, order.ID, paymentID, paidAt)
		if txErr != nil {
			return txErr
		}
		if affected == 0 {
			lostRace = true
			return nil
		}

		for _, item := range order.LineItems {
			if _, txErr := s.inventory.AdjustTx(ctx, tx, inventory.AdjustInput{
				VariantID: item.VariantID,
				Delta:     -item.Quantity,
				Reason:    enums.AdjustmentReasonSale,
				OrderID:   &order.ID,
			}); txErr != nil {
				return txErr
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderPaid,
			AggregateType: enums.OutboxAggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Data: payloads.OrderPaidEvent{
				OrderID:           order.ID,
				RazorpayOrderID:   stringValue(order.RazorpayOrderID),
				RazorpayPaymentID: paymentID,
				TotalPaise:        order.TotalPaise,
				PaidAt:            paidAt,
			},
			Version: 1,
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeInsufficientStock {
			s.metrics.IncVerification("stock_conflict")
			logCtx := s.logg.WithOrderID(ctx, order.ID.String())
			s.logg.Warn(logCtx, "payment verified but stock ran out; order stays pending")
		}
		return nil, err
	}

	reloaded, err := s.repo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading order")
	}
	if lostRace {
		if reloaded.Status == enums.OrderStatusPaid {
			s.metrics.IncVerification("duplicate")
			return reloaded, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order is %s and cannot be paid", reloaded.Status))
	}

	s.metrics.IncVerification("verified")
	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"razorpay_payment_id": paymentID,
		"total_paise":         order.TotalPaise,
	})
	s.logg.Info(logCtx, "payment verified")

	return reloaded, nil
}

// checkOwnership lets admins verify any order; everyone else must own it.
func checkOwnership(order *models.Order, ident auth.Identity) error {
	if ident.IsAdmin() || ident.Role == enums.ActorRoleSystem {
		return nil
	}
	if order.UserID != nil {
		if ident.UserID == nil || *ident.UserID != *order.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
		}
		return nil
	}
	if order.SessionID != nil {
		if ident.SessionID == nil || *ident.SessionID != *order.SessionID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another session")
		}
	}
	return nil
}

// webhookEventUUID maps Razorpay's string event ids onto the uuid keyspace
// the idempotency store expects.
func webhookEventUUID(eventID string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(eventID))
}

func actorRef(ident auth.Identity) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID:    ident.UserID,
		SessionID: ident.SessionID,
		Role:      ident.Role.String(),
	}
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
