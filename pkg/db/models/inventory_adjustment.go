package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
)

// InventoryAdjustment is the append-only stock ledger. One row is written in
// the same transaction as every stock mutation; rows are never updated.
type InventoryAdjustment struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VariantID uuid.UUID              `gorm:"column:variant_id;type:uuid;not null;index"`
	Delta     int                    `gorm:"column:delta;not null"`
	Reason    enums.AdjustmentReason `gorm:"column:reason;not null"`
	OrderID   *uuid.UUID             `gorm:"column:order_id;type:uuid;index"`
	ActorID   *uuid.UUID             `gorm:"column:actor_id;type:uuid"`
	Note      *string                `gorm:"column:note"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}
