package inventory

import (
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/fabricspeaks/fabricspeaks-backend/pkg/db/models"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("FABRICSPEAKS_DB_DSN")
	if dsn == "" {
		t.Skip("FABRICSPEAKS_DB_DSN is not set")
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return conn
}

func mustCreateTestVariant(t *testing.T, tx *gorm.DB, stock int) *models.Variant {
	t.Helper()
	suffix := uuid.NewString()[:8]
	product := &models.Product{
		ID:     uuid.New(),
		Slug:   fmt.Sprintf("linen-shirt-%s", suffix),
		Title:  "Linen Shirt",
		Status: enums.ProductStatusActive,
	}
	if err := tx.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	variant := &models.Variant{
		ID:            uuid.New(),
		ProductID:     product.ID,
		SKU:           fmt.Sprintf("LS-%s", suffix),
		Label:         "M / White",
		PricePaise:    350000,
		Currency:      enums.CurrencyINR,
		StockQuantity: stock,
		Status:        enums.VariantStatusActive,
	}
	if err := tx.Create(variant).Error; err != nil {
		t.Fatalf("create variant: %v", err)
	}
	return variant
}
