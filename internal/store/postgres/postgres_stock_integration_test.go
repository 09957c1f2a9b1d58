package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dapurpos/backend/internal/domain"
)

func TestDeductStockClampsAndAlertDedups(t *testing.T) {
	databaseURL := os.Getenv("DAPURPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set DAPURPOS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	itemID := fmt.Sprintf("inv-stock-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM inventory_alerts WHERE inventory_item_id = $1`, itemID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM inventory_logs WHERE inventory_item_id = $1`, itemID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = $1`, itemID)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_items (id, branch_id, name, unit, current_stock, min_stock, cost_per_unit, updated_at)
		VALUES ($1, 'main-branch', 'Stock IT Item', 'kg', 10, 4, 1.5, now())
	`, itemID); err != nil {
		t.Fatalf("seed inventory item: %v", err)
	}

	// Deduct more than is held: the balance clamps at zero and the returned
	// pair reports the pre-update value.
	old, updated, err := s.DeductStock(ctx, itemID, decimal.NewFromInt(25))
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if !old.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected old stock 10, got %s", old)
	}
	if !updated.IsZero() {
		t.Fatalf("expected stock clamped to 0, got %s", updated)
	}

	alert := domain.InventoryAlert{
		ID:              fmt.Sprintf("alert-stock-it-%d", stamp),
		InventoryItemID: itemID,
		BranchID:        "main-branch",
		ItemName:        "Stock IT Item",
		CurrentStock:    decimal.Zero,
		MinStock:        decimal.NewFromInt(4),
		Unit:            "kg",
		Severity:        domain.AlertSeverityCritical,
		AlertReason:     "integration test alert",
		CreatedAt:       time.Now().UTC(),
	}
	created, err := s.CreateAlertIfAbsent(ctx, alert)
	if err != nil {
		t.Fatalf("first alert insert: %v", err)
	}
	if !created {
		t.Fatalf("expected first alert to be created")
	}

	dup := alert
	dup.ID = fmt.Sprintf("alert-stock-it-dup-%d", stamp)
	created, err = s.CreateAlertIfAbsent(ctx, dup)
	if err != nil {
		t.Fatalf("duplicate alert insert: %v", err)
	}
	if created {
		t.Fatalf("expected duplicate alert to be suppressed by the partial unique index")
	}

	var open int
	if err := s.db.QueryRowContext(ctx, `
		SELECT count(*)
		FROM inventory_alerts
		WHERE inventory_item_id = $1 AND NOT resolved
	`, itemID).Scan(&open); err != nil {
		t.Fatalf("count open alerts: %v", err)
	}
	if open != 1 {
		t.Fatalf("expected one open alert, got %d", open)
	}
}
