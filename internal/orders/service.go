package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabricspeaks/fabricspeaks-backend/internal/inventory"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/auth"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/db/models"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
	pkgerrors "github.com/fabricspeaks/fabricspeaks-backend/pkg/errors"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/logger"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/outbox"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/outbox/payloads"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/pagination"
)

// txRunner abstracts the transactional database client.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// UpdateStatusInput is the admin request to move an order along its
// lifecycle. Force skips the transition table for corrections.
type UpdateStatusInput struct {
	Status enums.OrderStatus
	Reason string
	Force  bool
}

// Service exposes order reads for customers and lifecycle management for
// admins.
type Service interface {
	Get(ctx context.Context, ident auth.Identity, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, ident auth.Identity, filters ListFilters, params pagination.Params) ([]models.Order, *pagination.Cursor, error)
	AdminList(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Order, *pagination.Cursor, error)
	Cancel(ctx context.Context, ident auth.Identity, orderID uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, ident auth.Identity, orderID uuid.UUID, input UpdateStatusInput) (*models.Order, error)
}

type service struct {
	db        txRunner
	repo      *Repository
	inventory inventory.Service
	outbox    *outbox.Service
	logg      *logger.Logger
}

// NewService builds the order service.
func NewService(
	db txRunner,
	repo *Repository,
	inventorySvc inventory.Service,
	outboxSvc *outbox.Service,
	logg *logger.Logger,
) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if inventorySvc == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		db:        db,
		repo:      repo,
		inventory: inventorySvc,
		outbox:    outboxSvc,
		logg:      logg,
	}, nil
}

func (s *service) Get(ctx context.Context, ident auth.Identity, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := checkOwnership(order, ident); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) List(ctx context.Context, ident auth.Identity, filters ListFilters, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	if !ident.HasActor() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login or guest session required")
	}
	rows, next, err := s.repo.ListByIdentity(ctx, ident, filters, params)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	return rows, next, nil
}

func (s *service) AdminList(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	rows, next, err := s.repo.ListAll(ctx, filters, params)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	return rows, next, nil
}

// Cancel lets a customer abandon their own order before payment. Paid orders
// go through the admin surface instead.
func (s *service) Cancel(ctx context.Context, ident auth.Identity, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.Get(ctx, ident, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("a %s order cannot be cancelled by the customer", order.Status))
	}
	return s.transition(ctx, order, enums.OrderStatusCancelled, "cancelled by customer", actorRef(ident))
}

func (s *service) UpdateStatus(ctx context.Context, ident auth.Identity, orderID uuid.UUID, input UpdateStatusInput) (*models.Order, error) {
	if !ident.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", input.Status))
	}

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == input.Status {
		return order, nil
	}
	if !input.Force && !order.Status.CanTransitionTo(input.Status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order cannot move from %s to %s", order.Status, input.Status)).
			WithDetails(map[string]any{"from": order.Status, "to": input.Status})
	}

	reason := input.Reason
	if reason == "" {
		reason = "updated by admin"
	}
	return s.transition(ctx, order, input.Status, reason, actorRef(ident))
}

// transition applies the status change plus its side effects in one
// transaction: restocking for cancellations and refunds of settled orders,
// and the matching outbox event.
func (s *service) transition(ctx context.Context, order *models.Order, to enums.OrderStatus, reason string, actor *outbox.ActorRef) (*models.Order, error) {
	now := time.Now()
	extra := map[string]any{}
	if to == enums.OrderStatusCancelled {
		extra["cancelled_at"] = now
	}

	restock := needsRestock(order.Status, to)

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		affected, txErr := s.repo.WithTx(tx).UpdateStatus(ctx, order.ID, order.Status, to, extra)
		if txErr != nil {
			return txErr
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently, retry")
		}

		if restock {
			for _, item := range order.LineItems {
				if _, txErr := s.inventory.AdjustTx(ctx, tx, inventory.AdjustInput{
					VariantID: item.VariantID,
					Delta:     item.Quantity,
					Reason:    enums.AdjustmentReasonReturn,
					OrderID:   &order.ID,
				}); txErr != nil {
					return txErr
				}
			}
		}

		event, ok := statusEvent(order, to, reason, now)
		if !ok {
			return nil
		}
		event.Actor = actor
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order status")
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"from":    order.Status,
		"to":      to,
		"restock": restock,
	})
	s.logg.Info(logCtx, "order status updated")

	return s.load(ctx, order.ID)
}

func (s *service) load(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

// needsRestock reports whether leaving the current status for a terminal
// cancellation or refund must return stock. Pending orders never decremented
// stock, so they never restock.
func needsRestock(from, to enums.OrderStatus) bool {
	if to != enums.OrderStatusCancelled && to != enums.OrderStatusRefunded {
		return false
	}
	return from != enums.OrderStatusPending
}

func statusEvent(order *models.Order, to enums.OrderStatus, reason string, at time.Time) (outbox.DomainEvent, bool) {
	base := outbox.DomainEvent{
		AggregateType: enums.OutboxAggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		OccurredAt:    at,
	}
	switch to {
	case enums.OrderStatusCancelled:
		base.EventType = enums.OutboxEventOrderCancelled
		base.Data = payloads.OrderCancelledEvent{
			OrderID:     order.ID,
			Reason:      reason,
			CancelledAt: at,
		}
		return base, true
	case enums.OrderStatusRefunded:
		base.EventType = enums.OutboxEventOrderRefunded
		base.Data = payloads.OrderRefundedEvent{
			OrderID:    order.ID,
			TotalPaise: order.TotalPaise,
			RefundedAt: at,
		}
		return base, true
	default:
		return outbox.DomainEvent{}, false
	}
}

// checkOwnership lets admins read any order; everyone else must own it.
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

func actorRef(ident auth.Identity) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID:    ident.UserID,
		SessionID: ident.SessionID,
		Role:      ident.Role.String(),
	}
}
