package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabricspeaks/fabricspeaks-backend/pkg/db/models"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
	pkgerrors "github.com/fabricspeaks/fabricspeaks-backend/pkg/errors"
)

type fakeCatalog struct {
	products map[uuid.UUID]*models.Product
}

func (f *fakeCatalog) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func activeProduct(title string, variants ...models.Variant) *models.Product {
	return &models.Product{
		ID:       uuid.New(),
		Slug:     title,
		Title:    title,
		Status:   enums.ProductStatusActive,
		Variants: variants,
	}
}

func activeVariant(price int64, stock int) models.Variant {
	return models.Variant{
		ID:            uuid.New(),
		SKU:           uuid.NewString()[:8],
		Label:         "One Size",
		PricePaise:    price,
		Currency:      enums.CurrencyINR,
		StockQuantity: stock,
		Status:        enums.VariantStatusActive,
	}
}

func cartWith(items ...models.CartItem) *models.Cart {
	return &models.Cart{
		ID:     uuid.New(),
		Status: enums.CartStatusActive,
		Items:  items,
	}
}

func TestValidateRejectsEmptyCart(t *testing.T) {
	v, err := NewValidator(&fakeCatalog{products: map[uuid.UUID]*models.Product{}}, 2)
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}
	_, err = v.Validate(context.Background(), cartWith())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty cart, got %v", err)
	}
}

func TestValidateBlockingIssues(t *testing.T) {
	soldOut := activeVariant(100000, 0)
	discontinued := activeVariant(100000, 5)
	discontinued.Status = enums.VariantStatusDiscontinued

	missingProductItem := models.CartItem{ID: uuid.New(), ProductID: uuid.New(), Quantity: 1}

	draft := activeProduct("Draft Coat", activeVariant(100000, 5))
	draft.Status = enums.ProductStatusDraft

	outOfStock := activeProduct("Sold Out Scarf", soldOut)
	retired := activeProduct("Retired Loafers", discontinued)
	twoOptions := activeProduct("Belt", activeVariant(50000, 5), activeVariant(60000, 5))

	catalog := &fakeCatalog{products: map[uuid.UUID]*models.Product{
		draft.ID:      draft,
		outOfStock.ID: outOfStock,
		retired.ID:    retired,
		twoOptions.ID: twoOptions,
	}}

	soldOutID := soldOut.ID
	discontinuedID := discontinued.ID
	items := []models.CartItem{
		missingProductItem,
		{ID: uuid.New(), ProductID: draft.ID, Quantity: 1},
		{ID: uuid.New(), ProductID: outOfStock.ID, VariantID: &soldOutID, Quantity: 1, UnitPricePaise: 100000},
		{ID: uuid.New(), ProductID: retired.ID, VariantID: &discontinuedID, Quantity: 1, UnitPricePaise: 100000},
		{ID: uuid.New(), ProductID: twoOptions.ID, Quantity: 1, UnitPricePaise: 50000},
	}

	v, _ := NewValidator(catalog, 2)
	result, err := v.Validate(context.Background(), cartWith(items...))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.OK() {
		t.Fatal("expected blocking issues")
	}
	if len(result.Issues) != 5 {
		t.Fatalf("expected 5 issues, got %d: %+v", len(result.Issues), result.Issues)
	}

	byItem := map[uuid.UUID]enums.CartIssueCode{}
	for _, issue := range result.Issues {
		byItem[issue.ItemID] = issue.Code
	}
	expect := map[uuid.UUID]enums.CartIssueCode{
		missingProductItem.ID: enums.CartIssueProductNotFound,
		items[1].ID:           enums.CartIssueProductInactive,
		items[2].ID:           enums.CartIssueInsufficientStock,
		items[3].ID:           enums.CartIssueVariantInactive,
		items[4].ID:           enums.CartIssueVariantAmbiguous,
	}
	for itemID, code := range expect {
		if byItem[itemID] != code {
			t.Fatalf("expected %s for item %s, got %s", code, itemID, byItem[itemID])
		}
	}
}

func TestValidateWarningsAndSubtotal(t *testing.T) {
	variant := activeVariant(120000, 3)
	product := activeProduct("Silk Scarf", variant)
	catalog := &fakeCatalog{products: map[uuid.UUID]*models.Product{product.ID: product}}

	// Single-variant product added without an explicit variant id.
	item := models.CartItem{
		ID:             uuid.New(),
		ProductID:      product.ID,
		Quantity:       2,
		UnitPricePaise: 100000,
	}

	v, _ := NewValidator(catalog, 2)
	result, err := v.Validate(context.Background(), cartWith(item))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.OK() {
		t.Fatalf("expected no blocking issues, got %+v", result.Issues)
	}
	if len(result.Lines) != 1 {
		t.Fatalf("expected 1 validated line, got %d", len(result.Lines))
	}
	if result.Lines[0].Variant.ID != variant.ID {
		t.Fatal("expected single sellable variant to auto-resolve")
	}
	if result.Lines[0].UnitPricePaise != 120000 {
		t.Fatalf("expected live price 120000, got %d", result.Lines[0].UnitPricePaise)
	}
	if got := result.SubtotalPaise(); got != 240000 {
		t.Fatalf("expected subtotal 240000, got %d", got)
	}

	codes := map[enums.CartWarningCode]bool{}
	for _, w := range result.Warnings {
		codes[w.Code] = true
	}
	if !codes[enums.CartWarningPriceChanged] {
		t.Fatal("expected price_changed warning")
	}
	if !codes[enums.CartWarningLowStock] {
		t.Fatal("expected low_stock warning")
	}
}
