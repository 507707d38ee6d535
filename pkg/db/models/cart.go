package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
)

// Cart is the mutable pre-checkout container. A cart belongs to either an
// authenticated user or a guest session, never both.
type Cart struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      *uuid.UUID       `gorm:"column:user_id;type:uuid;index"`
	SessionID   *string          `gorm:"column:session_id;index"`
	Status      enums.CartStatus `gorm:"column:status;not null;default:'active'"`
	Currency    enums.Currency   `gorm:"column:currency;not null;default:'INR'"`
	Items       []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	ConvertedAt *time.Time       `gorm:"column:converted_at"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// IsMutable reports whether items may still be added or changed.
func (c Cart) IsMutable() bool {
	return c.Status == enums.CartStatusActive
}
