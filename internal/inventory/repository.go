package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabricspeaks/fabricspeaks-backend/pkg/db/models"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/pagination"
)

// Repository owns variant stock mutations and the adjustment ledger.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ApplyDelta adjusts a variant's stock by delta in a single conditional
// UPDATE. The guard keeps stock from ever dropping below zero under
// concurrent writers. Returns the number of rows updated.
func (r *Repository) ApplyDelta(ctx context.Context, variantID uuid.UUID, delta int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Variant{}).
		Where("id = ? AND stock_quantity + ? >= 0", variantID, delta).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", delta))
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// StockQuantity reads the current stock for a variant.
func (r *Repository) StockQuantity(ctx context.Context, variantID uuid.UUID) (int, error) {
	var variant models.Variant
	err := r.db.WithContext(ctx).
		Select("id", "stock_quantity").
		First(&variant, "id = ?", variantID).Error
	if err != nil {
		return 0, err
	}
	return variant.StockQuantity, nil
}

// InsertAdjustment appends one ledger row.
func (r *Repository) InsertAdjustment(ctx context.Context, row *models.InventoryAdjustment) (*models.InventoryAdjustment, error) {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// ListAdjustments returns the ledger for a variant, newest first.
func (r *Repository) ListAdjustments(ctx context.Context, variantID uuid.UUID, params pagination.Params) ([]models.InventoryAdjustment, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Model(&models.InventoryAdjustment{}).
		Where("variant_id = ?", variantID)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var rows []models.InventoryAdjustment
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return rows, next, nil
}

// LowStockVariants returns sellable variants at or below the threshold,
// lowest stock first.
func (r *Repository) LowStockVariants(ctx context.Context, threshold int) ([]models.Variant, error) {
	var rows []models.Variant
	err := r.db.WithContext(ctx).
		Where("status = ? AND stock_quantity <= ?", enums.VariantStatusActive, threshold).
		Order("stock_quantity ASC").
		Order("sku ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UnitsSoldSince sums sale decrements for a variant from the given time.
// Sale deltas are negative, so the result is flipped to a positive count.
func (r *Repository) UnitsSoldSince(ctx context.Context, variantID uuid.UUID, since time.Time) (int64, error) {
	var total *int64
	err := r.db.WithContext(ctx).
		Model(&models.InventoryAdjustment{}).
		Select("SUM(delta)").
		Where("variant_id = ? AND reason = ? AND created_at >= ?", variantID, enums.AdjustmentReasonSale, since).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return -*total, nil
}

// IsNotFound reports whether err is the GORM missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
