// Package recipe expands sold products into per-ingredient quantities.
// Resolution is a pure function of catalog data: no store access, no side
// effects, no failure modes beyond a missing recipe (which resolves empty).
package recipe

import (
	"sort"

	"github.com/shopspring/decimal"

	"dapurpos/backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Requirement is one ingredient demand produced by recipe explosion.
type Requirement struct {
	InventoryItemID string
	Quantity        decimal.Decimal
}

// Resolve expands the product's recipe lines for an order quantity, applying
// the wastage factor: needed = quantity_required * (1 + wastage/100) * qty.
// Products with no recipe lines resolve to an empty list, meaning no
// inventory impact.
func Resolve(lines []domain.RecipeLine, qty int) []Requirement {
	if qty < 1 || len(lines) == 0 {
		return nil
	}

	orderQty := decimal.NewFromInt(int64(qty))
	reqs := make([]Requirement, 0, len(lines))
	for _, line := range lines {
		if line.QuantityRequired.Sign() <= 0 {
			continue
		}
		factor := decimal.NewFromInt(1).Add(line.WastagePercent.Div(hundred))
		reqs = append(reqs, Requirement{
			InventoryItemID: line.InventoryItemID,
			Quantity:        line.QuantityRequired.Mul(factor).Mul(orderQty),
		})
	}
	return reqs
}

// ResolveBase expands recipe lines without the wastage factor. Cancellation
// credits use these quantities: wastage is a loss already incurred and is not
// refunded to stock.
func ResolveBase(lines []domain.RecipeLine, qty int) []Requirement {
	if qty < 1 || len(lines) == 0 {
		return nil
	}

	orderQty := decimal.NewFromInt(int64(qty))
	reqs := make([]Requirement, 0, len(lines))
	for _, line := range lines {
		if line.QuantityRequired.Sign() <= 0 {
			continue
		}
		reqs = append(reqs, Requirement{
			InventoryItemID: line.InventoryItemID,
			Quantity:        line.QuantityRequired.Mul(orderQty),
		})
	}
	return reqs
}

// Merge sums requirements across order lines into one demand per ingredient,
// returned in a stable order.
func Merge(groups ...[]Requirement) []Requirement {
	totals := make(map[string]decimal.Decimal)
	for _, group := range groups {
		for _, req := range group {
			totals[req.InventoryItemID] = totals[req.InventoryItemID].Add(req.Quantity)
		}
	}

	merged := make([]Requirement, 0, len(totals))
	for itemID, qty := range totals {
		merged = append(merged, Requirement{InventoryItemID: itemID, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].InventoryItemID < merged[j].InventoryItemID
	})
	return merged
}
