package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabricspeaks/fabricspeaks-backend/pkg/config"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/db/models"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
	pkgerrors "github.com/fabricspeaks/fabricspeaks-backend/pkg/errors"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/logger"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/metrics"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/outbox"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/outbox/payloads"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/pagination"
)

// AdjustInput describes one stock movement. Delta is signed: sales are
// negative, restocks and returns are positive.
type AdjustInput struct {
	VariantID uuid.UUID
	Delta     int
	Reason    enums.AdjustmentReason
	OrderID   *uuid.UUID
	ActorID   *uuid.UUID
	Note      *string
}

// LowStockRow is one line of the replenishment report.
type LowStockRow struct {
	VariantID     uuid.UUID `json:"variant_id"`
	SKU           string    `json:"sku"`
	Label         string    `json:"label"`
	StockQuantity int       `json:"stock_quantity"`
}

// StockOutlook estimates how long current stock lasts at the recent sales
// rate. DaysUntilStockout is nil when nothing sold in the window.
type StockOutlook struct {
	VariantID         uuid.UUID `json:"variant_id"`
	StockQuantity     int       `json:"stock_quantity"`
	UnitsSoldInWindow int64     `json:"units_sold_in_window"`
	WindowDays        int       `json:"window_days"`
	DaysUntilStockout *int      `json:"days_until_stockout,omitempty"`
}

// txRunner abstracts the transactional database client.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service coordinates stock mutations with the adjustment ledger.
type Service interface {
	Adjust(ctx context.Context, input AdjustInput) (*models.InventoryAdjustment, error)
	AdjustTx(ctx context.Context, tx *gorm.DB, input AdjustInput) (*models.InventoryAdjustment, error)
	History(ctx context.Context, variantID uuid.UUID, params pagination.Params) ([]models.InventoryAdjustment, *pagination.Cursor, error)
	LowStockReport(ctx context.Context) ([]LowStockRow, error)
	Outlook(ctx context.Context, variantID uuid.UUID) (*StockOutlook, error)
}

type service struct {
	db      txRunner
	repo    *Repository
	outbox  *outbox.Service
	cfg     config.InventoryConfig
	metrics *metrics.CheckoutMetrics
	logg    *logger.Logger
}

// NewService builds the inventory service. The metrics collector is optional.
func NewService(
	db txRunner,
	repo *Repository,
	outboxSvc *outbox.Service,
	cfg config.InventoryConfig,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		db:      db,
		repo:    repo,
		outbox:  outboxSvc,
		cfg:     cfg,
		metrics: checkoutMetrics,
		logg:    logg,
	}, nil
}

// Adjust runs AdjustTx inside its own transaction.
func (s *service) Adjust(ctx context.Context, input AdjustInput) (*models.InventoryAdjustment, error) {
	var row *models.InventoryAdjustment
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		row, txErr = s.AdjustTx(ctx, tx, input)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// AdjustTx applies one stock movement inside the caller's transaction. The
// variant update, the ledger row and the outbox event commit or roll back
// together.
func (s *service) AdjustTx(ctx context.Context, tx *gorm.DB, input AdjustInput) (*models.InventoryAdjustment, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if input.VariantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must be non-zero")
	}
	if !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid adjustment reason %q", input.Reason))
	}

	repo := s.repo.WithTx(tx)

	affected, err := repo.ApplyDelta(ctx, input.VariantID, input.Delta)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adjusting stock")
	}
	if affected == 0 {
		available, err := repo.StockQuantity(ctx, input.VariantID)
		if err != nil {
			if IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking stock")
		}
		s.metrics.IncStockConflict()
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(map[string]any{
				"variant_id": input.VariantID,
				"requested":  -input.Delta,
				"available":  available,
			})
	}

	stockAfter, err := repo.StockQuantity(ctx, input.VariantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading stock after adjustment")
	}

	row := &models.InventoryAdjustment{
		VariantID: input.VariantID,
		Delta:     input.Delta,
		Reason:    input.Reason,
		OrderID:   input.OrderID,
		ActorID:   input.ActorID,
		Note:      input.Note,
	}
	if _, err := repo.InsertAdjustment(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording adjustment")
	}

	event := outbox.DomainEvent{
		EventType:     enums.OutboxEventInventoryAdjusted,
		AggregateType: enums.OutboxAggregateVariant,
		AggregateID:   input.VariantID,
		Data: payloads.InventoryAdjustedEvent{
			VariantID:  input.VariantID,
			Delta:      input.Delta,
			Reason:     input.Reason,
			StockAfter: stockAfter,
			OrderID:    input.OrderID,
		},
		Version: 1,
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queueing inventory event")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"variant_id":  input.VariantID.String(),
		"delta":       input.Delta,
		"reason":      input.Reason.String(),
		"stock_after": stockAfter,
	})
	s.logg.Info(logCtx, "stock adjusted")

	return row, nil
}

func (s *service) History(ctx context.Context, variantID uuid.UUID, params pagination.Params) ([]models.InventoryAdjustment, *pagination.Cursor, error) {
	if variantID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	rows, next, err := s.repo.ListAdjustments(ctx, variantID, params)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing adjustments")
	}
	return rows, next, nil
}

func (s *service) LowStockReport(ctx context.Context) ([]LowStockRow, error) {
	variants, err := s.repo.LowStockVariants(ctx, s.cfg.LowStockThreshold)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading low stock variants")
	}
	rows := make([]LowStockRow, 0, len(variants))
	for _, v := range variants {
		rows = append(rows, LowStockRow{
			VariantID:     v.ID,
			SKU:           v.SKU,
			Label:         v.Label,
			StockQuantity: v.StockQuantity,
		})
	}
	return rows, nil
}

func (s *service) Outlook(ctx context.Context, variantID uuid.UUID) (*StockOutlook, error) {
	if variantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	stock, err := s.repo.StockQuantity(ctx, variantID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading stock")
	}

	windowDays := s.cfg.OutlookWindowDays
	if windowDays <= 0 {
		windowDays = 30
	}
	since := time.Now().AddDate(0, 0, -windowDays)
	sold, err := s.repo.UnitsSoldSince(ctx, variantID, since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summing sales")
	}

	outlook := &StockOutlook{
		VariantID:         variantID,
		StockQuantity:     stock,
		UnitsSoldInWindow: sold,
		WindowDays:        windowDays,
	}
	if sold > 0 {
		perDay := float64(sold) / float64(windowDays)
		days := int(float64(stock) / perDay)
		outlook.DaysUntilStockout = &days
	}
	return outlook, nil
}
