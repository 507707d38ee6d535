package product

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/fabricspeaks/fabricspeaks-backend/pkg/db/models"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
)

func mustCreateTestProduct(t *testing.T, tx *gorm.DB, status enums.ProductStatus) *models.Product {
	t.Helper()
	suffix := uuid.NewString()[:8]
	product := &models.Product{
		ID:       uuid.New(),
		Slug:     fmt.Sprintf("silk-scarf-%s", suffix),
		Title:    "Silk Scarf",
		Brand:    stringPtr("Maison Fabric"),
		Category: stringPtr("accessories"),
		Tags:     pq.StringArray{"silk", "new-season"},
		Status:   status,
		Variants: []models.Variant{
			{
				ID:            uuid.New(),
				SKU:           fmt.Sprintf("SS-%s", suffix),
				Label:         "One Size / Ivory",
				PricePaise:    450000,
				Currency:      enums.CurrencyINR,
				StockQuantity: 10,
				Status:        enums.VariantStatusActive,
			},
		},
	}
	if err := tx.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func stringPtr(s string) *string {
	return &s
}

func int64Ptr(v int64) *int64 {
	return &v
}
