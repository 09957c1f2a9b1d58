package recipe

import (
	"testing"

	"github.com/shopspring/decimal"

	"dapurpos/backend/internal/domain"
)

func d(t *testing.T, raw string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(raw)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", raw, err)
	}
	return v
}

func TestResolveAppliesWastageFactor(t *testing.T) {
	lines := []domain.RecipeLine{
		{InventoryItemID: "flour", QuantityRequired: d(t, "2"), WastagePercent: d(t, "10")},
	}

	reqs := Resolve(lines, 3)
	if len(reqs) != 1 {
		t.Fatalf("expected one requirement, got %d", len(reqs))
	}
	// 2 * 1.10 * 3 = 6.6
	if !reqs[0].Quantity.Equal(d(t, "6.6")) {
		t.Fatalf("expected 6.6, got %s", reqs[0].Quantity)
	}
}

func TestResolveSkipsZeroAndNegativeLines(t *testing.T) {
	lines := []domain.RecipeLine{
		{InventoryItemID: "flour", QuantityRequired: d(t, "0"), WastagePercent: d(t, "10")},
		{InventoryItemID: "salt", QuantityRequired: d(t, "-1")},
		{InventoryItemID: "oil", QuantityRequired: d(t, "0.5")},
	}

	reqs := Resolve(lines, 1)
	if len(reqs) != 1 || reqs[0].InventoryItemID != "oil" {
		t.Fatalf("expected only the oil line, got %+v", reqs)
	}
}

func TestResolveEmptyRecipeAndZeroQuantity(t *testing.T) {
	if reqs := Resolve(nil, 5); reqs != nil {
		t.Fatalf("expected nil for empty recipe, got %+v", reqs)
	}
	lines := []domain.RecipeLine{
		{InventoryItemID: "flour", QuantityRequired: d(t, "1")},
	}
	if reqs := Resolve(lines, 0); reqs != nil {
		t.Fatalf("expected nil for zero quantity, got %+v", reqs)
	}
}

func TestResolveBaseOmitsWastage(t *testing.T) {
	lines := []domain.RecipeLine{
		{InventoryItemID: "flour", QuantityRequired: d(t, "2"), WastagePercent: d(t, "10")},
	}

	reqs := ResolveBase(lines, 3)
	if len(reqs) != 1 {
		t.Fatalf("expected one requirement, got %d", len(reqs))
	}
	if !reqs[0].Quantity.Equal(d(t, "6")) {
		t.Fatalf("expected 6 without wastage, got %s", reqs[0].Quantity)
	}
}

func TestMergeSumsPerIngredientInStableOrder(t *testing.T) {
	a := []Requirement{
		{InventoryItemID: "flour", Quantity: d(t, "1.5")},
		{InventoryItemID: "oil", Quantity: d(t, "0.2")},
	}
	b := []Requirement{
		{InventoryItemID: "flour", Quantity: d(t, "2.5")},
	}

	merged := Merge(a, b)
	if len(merged) != 2 {
		t.Fatalf("expected two merged requirements, got %d", len(merged))
	}
	if merged[0].InventoryItemID != "flour" || !merged[0].Quantity.Equal(d(t, "4")) {
		t.Fatalf("expected flour 4 first, got %+v", merged[0])
	}
	if merged[1].InventoryItemID != "oil" || !merged[1].Quantity.Equal(d(t, "0.2")) {
		t.Fatalf("expected oil 0.2 second, got %+v", merged[1])
	}
}
