package product

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/pagination"
)

func TestRepositoryProductFlow(t *testing.T) {
	conn := openTestDB(t)
	tx := conn.Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	t.Cleanup(func() {
		_ = tx.Rollback()
	})

	repo := NewRepository(tx)
	ctx := context.Background()

	product := mustCreateTestProduct(t, tx, enums.ProductStatusActive)

	byID, err := repo.FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if len(byID.Variants) != 1 {
		t.Fatalf("expected 1 preloaded variant, got %d", len(byID.Variants))
	}

	bySlug, err := repo.FindBySlug(ctx, product.Slug)
	if err != nil {
		t.Fatalf("find by slug: %v", err)
	}
	if bySlug.ID != product.ID {
		t.Fatalf("expected product %s, got %s", product.ID, bySlug.ID)
	}

	byID.Title = "Silk Scarf Reissue"
	if _, err := repo.UpdateProduct(ctx, byID); err != nil {
		t.Fatalf("update product: %v", err)
	}
	fetched, err := repo.FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("find after update: %v", err)
	}
	if fetched.Title != "Silk Scarf Reissue" {
		t.Fatalf("expected updated title, got %s", fetched.Title)
	}

	variantID := product.Variants[0].ID
	variants, err := repo.FindVariantsByIDs(ctx, []uuid.UUID{variantID, uuid.New()})
	if err != nil {
		t.Fatalf("find variants by ids: %v", err)
	}
	if len(variants) != 1 {
		t.Fatalf("expected 1 known variant, got %d", len(variants))
	}
	if variants[variantID].SKU != product.Variants[0].SKU {
		t.Fatalf("expected sku %s, got %s", product.Variants[0].SKU, variants[variantID].SKU)
	}

	if _, err := repo.FindVariantByID(ctx, uuid.New()); !IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestRepositoryListFiltersAndPaginates(t *testing.T) {
	conn := openTestDB(t)
	tx := conn.Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	t.Cleanup(func() {
		_ = tx.Rollback()
	})

	repo := NewRepository(tx)
	ctx := context.Background()

	active := mustCreateTestProduct(t, tx, enums.ProductStatusActive)
	mustCreateTestProduct(t, tx, enums.ProductStatusActive)
	mustCreateTestProduct(t, tx, enums.ProductStatusDraft)

	status := enums.ProductStatusActive
	page1, next, err := repo.List(ctx, ListProductsInput{
		Filters:    ProductListFilters{Status: &status},
		Pagination: pagination.Params{Limit: 1},
	})
	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}
	if len(page1) != 1 {
		t.Fatalf("expected 1 row, got %d", len(page1))
	}
	if next == nil {
		t.Fatal("expected a next cursor")
	}

	page2, _, err := repo.List(ctx, ListProductsInput{
		Filters: ProductListFilters{Status: &status},
		Pagination: pagination.Params{
			Limit:  1,
			Cursor: pagination.EncodeCursor(*next),
		},
	})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(page2) != 1 {
		t.Fatalf("expected 1 row on page 2, got %d", len(page2))
	}
	if page2[0].ID == page1[0].ID {
		t.Fatal("expected cursor to advance past page 1")
	}

	byQuery, _, err := repo.List(ctx, ListProductsInput{
		Filters: ProductListFilters{Query: "maison"},
	})
	if err != nil {
		t.Fatalf("list by query: %v", err)
	}
	if len(byQuery) < 1 {
		t.Fatal("expected brand query to match seeded products")
	}

	byCategory, _, err := repo.List(ctx, ListProductsInput{
		Filters: ProductListFilters{Status: &status, Category: active.Category},
	})
	if err != nil {
		t.Fatalf("list by category: %v", err)
	}
	for _, row := range byCategory {
		if row.Category == nil || *row.Category != *active.Category {
			t.Fatalf("expected category %s, got %v", *active.Category, row.Category)
		}
	}
}
