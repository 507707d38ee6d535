package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
)

// Product is the canonical catalog listing. Sellable units live on Variant.
type Product struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Slug        string              `gorm:"column:slug;not null;uniqueIndex"`
	Title       string              `gorm:"column:title;not null"`
	Subtitle    *string             `gorm:"column:subtitle"`
	Description *string             `gorm:"column:description"`
	Brand       *string             `gorm:"column:brand"`
	Category    *string             `gorm:"column:category"`
	Tags        pq.StringArray      `gorm:"column:tags;type:text[]"`
	Status      enums.ProductStatus `gorm:"column:status;not null;default:'draft'"`
	IsFeatured  bool                `gorm:"column:is_featured;not null;default:false"`
	Variants    []Variant           `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsPurchasable reports whether the product may appear in a cart.
func (p Product) IsPurchasable() bool {
	return p.Status == enums.ProductStatusActive
}
