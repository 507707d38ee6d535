package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabricspeaks/fabricspeaks-backend/pkg/auth"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/db/models"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
)

// Repository persists carts and their items.
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

// FindActive loads the caller's active cart with its items.
func (r *Repository) FindActive(ctx context.Context, ident auth.Identity) (*models.Cart, error) {
	query := r.db.WithContext(ctx).Preload("Items")
	switch {
	case ident.IsAuthenticated():
		query = query.Where("user_id = ?", *ident.UserID)
	case ident.SessionID != nil && *ident.SessionID != "":
		query = query.Where("session_id = ?", *ident.SessionID)
	default:
		return nil, gorm.ErrRecordNotFound
	}

	var cart models.Cart
	err := query.
		Where("status = ?", enums.CartStatusActive).
		Order("created_at DESC").
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindByID loads a cart with its items regardless of status.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&cart, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// Create inserts a new cart.
func (r *Repository) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

// FindItem loads one item of the given cart.
func (r *Repository) FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		First(&item, "id = ? AND cart_id = ?", itemID, cartID).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindItemByVariant loads the cart row for a variant, if one exists.
func (r *Repository) FindItemByVariant(ctx context.Context, cartID uuid.UUID, variantID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		First(&item, "cart_id = ? AND variant_id = ?", cartID, variantID).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateItem inserts a cart row.
func (r *Repository) CreateItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem saves a cart row.
func (r *Repository) UpdateItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem removes a cart row.
func (r *Repository) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.CartItem{}, "id = ? AND cart_id = ?", itemID, cartID).Error
}

// DeleteItems removes every row of a cart.
func (r *Repository) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.CartItem{}, "cart_id = ?", cartID).Error
}

// MarkConverted finalizes a cart after a successful checkout. Only active
// carts convert, so the update is conditional.
func (r *Repository) MarkConverted(ctx context.Context, cartID uuid.UUID) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND status = ?", cartID, enums.CartStatusActive).
		Updates(map[string]any{
			"status":       enums.CartStatusConverted,
			"converted_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkAbandoned parks a stale cart. Used by the sweeper, never by shoppers.
func (r *Repository) MarkAbandoned(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND status = ?", cartID, enums.CartStatusActive).
		Update("status", enums.CartStatusAbandoned).Error
}

// IsNotFound reports whether err is the GORM missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
