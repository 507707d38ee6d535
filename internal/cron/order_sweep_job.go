package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/fabricspeaks/fabricspeaks-backend/internal/orders"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/db/models"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/logger"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/outbox"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/outbox/payloads"
)

const (
	defaultPendingOrderTTL = 30 * time.Minute
	sweepBatchSize         = 100
	sweepCancelReason      = "payment window expired"
)

// OrderSweepJobParams configure the pending order sweeper.
type OrderSweepJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	StaleReader staleOrderReader
	Outbox      outboxEmitter
	PendingTTL  time.Duration
	RepoFactory sweepRepoFactory
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type staleOrderReader interface {
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type orderStatusUpdater interface {
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, extra map[string]any) (int64, error)
}

type sweepRepoFactory func(tx *gorm.DB) orderStatusUpdater

func defaultSweepRepo(tx *gorm.DB) orderStatusUpdater {
	return orders.NewRepository(tx)
}

// NewOrderSweepJob builds the cron job that cancels pending orders whose
// payment window has lapsed.
func NewOrderSweepJob(params OrderSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.StaleReader == nil {
		return nil, fmt.Errorf("stale order reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	ttl := params.PendingTTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	repoFactory := params.RepoFactory
	if repoFactory == nil {
		repoFactory = defaultSweepRepo
	}
	return &orderSweepJob{
		logg:        params.Logger,
		db:          params.DB,
		stale:       params.StaleReader,
		outbox:      params.Outbox,
		ttl:         ttl,
		repoFactory: repoFactory,
		now:         time.Now,
	}, nil
}

type orderSweepJob struct {
	logg        *logger.Logger
	db          txRunner
	stale       staleOrderReader
	outbox      outboxEmitter
	ttl         time.Duration
	repoFactory sweepRepoFactory
	now         func() time.Time
}

func (j *orderSweepJob) Name() string { return "pending-order-sweep" }

func (j *orderSweepJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	staleOrders, err := j.stale.ListStalePending(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return fmt.Errorf("query stale pending orders: %w", err)
	}
	cancelled := 0
	var errs []error
	for _, order := range staleOrders {
		done, err := j.cancelOrder(ctx, order)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if done {
			cancelled++
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"checked":   len(staleOrders),
		"cancelled": cancelled,
	})
	j.logg.Info(logCtx, "pending order sweep complete")
	return multierr.Combine(errs...)
}

// cancelOrder moves one stale order from pending to cancelled. The update is
// conditional on the order still being pending, so a payment verification
// racing the sweeper wins and the order is left alone. Pending orders never
// decremented stock, so there is nothing to restock here.
func (j *orderSweepJob) cancelOrder(ctx context.Context, order models.Order) (bool, error) {
	var cancelled bool
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repoFactory(tx)
		now := j.now().UTC()
		affected, err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled, map[string]any{
			"cancelled_at": now,
		})
		if err != nil {
			return fmt.Errorf("cancel stale order: %w", err)
		}
		if affected == 0 {
			return nil
		}
		cancelled = true
		event := outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderCancelled,
			AggregateType: enums.OutboxAggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{Role: enums.ActorRoleSystem.String()},
			Version:       1,
			OccurredAt:    now,
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				Reason:      sweepCancelReason,
				CancelledAt: now,
			},
		}
		return j.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return false, err
	}
	if cancelled {
		logCtx := j.logg.WithOrderID(ctx, order.ID.String())
		j.logg.Info(logCtx, "stale pending order cancelled")
	}
	return cancelled, nil
}
