package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fabricspeaks/fabricspeaks-backend/pkg/db/models"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/pagination"
)

func TestApplyDeltaGuardsAgainstNegativeStock(t *testing.T) {
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
	variant := mustCreateTestVariant(t, tx, 3)

	affected, err := repo.ApplyDelta(ctx, variant.ID, -2)
	if err != nil {
		t.Fatalf("apply delta: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 row affected, got %d", affected)
	}

	affected, err = repo.ApplyDelta(ctx, variant.ID, -2)
	if err != nil {
		t.Fatalf("apply oversell delta: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected oversell to touch 0 rows, got %d", affected)
	}

	stock, err := repo.StockQuantity(ctx, variant.ID)
	if err != nil {
		t.Fatalf("read stock: %v", err)
	}
	if stock != 1 {
		t.Fatalf("expected stock 1, got %d", stock)
	}

	affected, err = repo.ApplyDelta(ctx, uuid.New(), -1)
	if err != nil {
		t.Fatalf("apply delta unknown variant: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected unknown variant to touch 0 rows, got %d", affected)
	}
}

func TestApplyDeltaConcurrentSingleWinner(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	variant := mustCreateTestVariant(t, conn, 1)
	t.Cleanup(func() {
		conn.Delete(&models.Variant{}, "id = ?", variant.ID)
		conn.Delete(&models.Product{}, "id = ?", variant.ProductID)
	})

	repo := NewRepository(conn)

	const writers = 2
	results := make(chan int64, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			affected, err := repo.ApplyDelta(ctx, variant.ID, -1)
			if err != nil {
				t.Errorf("apply delta: %v", err)
				return
			}
			results <- affected
		}()
	}
	wg.Wait()
	close(results)

	var wins int64
	for affected := range results {
		wins += affected
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winning decrement, got %d", wins)
	}

	stock, err := repo.StockQuantity(ctx, variant.ID)
	if err != nil {
		t.Fatalf("read stock: %v", err)
	}
	if stock != 0 {
		t.Fatalf("expected stock 0 after race, got %d", stock)
	}
}

func TestLedgerHistoryAndReports(t *testing.T) {
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
	variant := mustCreateTestVariant(t, tx, 2)

	for _, delta := range []int{-1, -1, 5} {
		reason := enums.AdjustmentReasonSale
		if delta > 0 {
			reason = enums.AdjustmentReasonRestock
		}
		if _, err := repo.InsertAdjustment(ctx, &models.InventoryAdjustment{
			VariantID: variant.ID,
			Delta:     delta,
			Reason:    reason,
		}); err != nil {
			t.Fatalf("insert adjustment: %v", err)
		}
	}

	rows, _, err := repo.ListAdjustments(ctx, variant.ID, pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("list adjustments: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 ledger rows, got %d", len(rows))
	}

	sold, err := repo.UnitsSoldSince(ctx, variant.ID, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("units sold: %v", err)
	}
	if sold != 2 {
		t.Fatalf("expected 2 units sold, got %d", sold)
	}

	low, err := repo.LowStockVariants(ctx, 5)
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	found := false
	for _, v := range low {
		if v.ID == variant.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("expected seeded variant in the low stock report")
	}
}
