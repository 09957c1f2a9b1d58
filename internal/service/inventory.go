package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"dapurpos/backend/internal/domain"
	"dapurpos/backend/internal/feed"
	"dapurpos/backend/internal/recipe"
	"dapurpos/backend/internal/store"
	"dapurpos/backend/internal/xid"
)

var (
	half    = decimal.NewFromFloat(0.5)
	hundred = decimal.NewFromInt(100)
)

func (s *Service) GetInventoryItem(ctx context.Context, itemID string) (*domain.InventoryItem, error) {
	if strings.TrimSpace(itemID) == "" {
		return nil, fmt.Errorf("%w: inventory item id is required", store.ErrValidation)
	}
	return s.repo.GetInventoryItem(ctx, itemID)
}

func (s *Service) ListInventoryItems(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.repo.ListInventoryItems(ctx, s.policy.BranchID)
}

func (s *Service) ListInventoryLogs(ctx context.Context, itemID string, limit int) ([]domain.InventoryLogEntry, error) {
	if strings.TrimSpace(itemID) == "" {
		return nil, fmt.Errorf("%w: inventory item id is required", store.ErrValidation)
	}
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListInventoryLogs(ctx, itemID, limit)
}

// CheckAvailability compares merged ingredient requirements against current
// stock. A shortfall is a signal, not an error: callers decide whether to
// block on it.
func (s *Service) CheckAvailability(ctx context.Context, reqs []recipe.Requirement) (domain.AvailabilityResult, error) {
	result := domain.AvailabilityResult{Available: true}

	for _, req := range reqs {
		item, err := s.repo.GetInventoryItem(ctx, req.InventoryItemID)
		if err != nil {
			return domain.AvailabilityResult{}, fmt.Errorf("check availability for %s: %w", req.InventoryItemID, err)
		}
		if item.CurrentStock.LessThan(req.Quantity) {
			result.Available = false
			result.Shortages = append(result.Shortages, domain.Shortage{
				InventoryItemID: item.ID,
				ItemName:        item.Name,
				Available:       item.CurrentStock,
				Needed:          req.Quantity,
			})
		}
	}
	return result, nil
}

// DeductStock removes quantity from an item, clamping at zero. The immutable
// log records the delta actually applied, which is smaller than requested when
// the clamp engages. Threshold alerts are evaluated after every mutation.
func (s *Service) DeductStock(ctx context.Context, itemID string, qty decimal.Decimal, reason string) (*domain.InventoryItem, error) {
	if qty.Sign() <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", store.ErrValidation)
	}
	if strings.TrimSpace(reason) == "" {
		reason = "manual deduction"
	}

	old, updated, err := s.repo.DeductStock(ctx, itemID, qty)
	if err != nil {
		return nil, err
	}

	s.writeInventoryLog(ctx, itemID, old, updated, reason)
	s.publish(ctx, feed.EventStockChanged, itemID, map[string]any{
		"old_stock": old,
		"new_stock": updated,
		"reason":    reason,
	})

	item, err := s.repo.GetInventoryItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	s.evaluateThreshold(ctx, item)
	s.logAudit(ctx, "inventory.deduct", "inventory_item", itemID, fmt.Sprintf("stock %s -> %s (%s)", old, updated, reason))
	return item, nil
}

// CreditStock adds quantity back to an item, typically on cancellation or
// restock. Crossing back above the minimum auto-resolves open alerts.
func (s *Service) CreditStock(ctx context.Context, itemID string, qty decimal.Decimal, reason string) (*domain.InventoryItem, error) {
	if qty.Sign() <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", store.ErrValidation)
	}
	if strings.TrimSpace(reason) == "" {
		reason = "manual restock"
	}

	old, updated, err := s.repo.CreditStock(ctx, itemID, qty)
	if err != nil {
		return nil, err
	}

	s.writeInventoryLog(ctx, itemID, old, updated, reason)
	s.publish(ctx, feed.EventStockChanged, itemID, map[string]any{
		"old_stock": old,
		"new_stock": updated,
		"reason":    reason,
	})

	item, err := s.repo.GetInventoryItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	s.evaluateThreshold(ctx, item)
	s.logAudit(ctx, "inventory.credit", "inventory_item", itemID, fmt.Sprintf("stock %s -> %s (%s)", old, updated, reason))
	return item, nil
}

func (s *Service) writeInventoryLog(ctx context.Context, itemID string, old, updated decimal.Decimal, reason string) {
	err := s.repo.CreateInventoryLog(ctx, domain.InventoryLogEntry{
		ID:              xid.New("invlog"),
		InventoryItemID: itemID,
		OldStock:        old,
		NewStock:        updated,
		QuantityDelta:   updated.Sub(old),
		Reason:          reason,
		CreatedAt:       time.Now().UTC(),
	})
	if err != nil {
		s.logAudit(ctx, "inventory.log_failed", "inventory_item", itemID, err.Error())
	}
}

// evaluateThreshold raises a low-stock alert when stock sits at or below the
// minimum, and resolves open alerts when stock recovers. At most one
// unresolved alert exists per item regardless of how many mutations observe
// the low state.
func (s *Service) evaluateThreshold(ctx context.Context, item *domain.InventoryItem) {
	if item.CurrentStock.GreaterThan(item.MinStock) {
		resolved, err := s.repo.ResolveAlertsForItem(ctx, item.ID, time.Now().UTC())
		if err == nil && resolved > 0 {
			s.publish(ctx, feed.EventAlertResolved, item.ID, map[string]any{"resolved": resolved})
		}
		return
	}

	alert := domain.InventoryAlert{
		ID:              xid.New("alert"),
		InventoryItemID: item.ID,
		BranchID:        item.BranchID,
		ItemName:        item.Name,
		CurrentStock:    item.CurrentStock,
		MinStock:        item.MinStock,
		Unit:            item.Unit,
		Severity:        severityFor(item.CurrentStock, item.MinStock),
		AlertReason:     fmt.Sprintf("stock %s %s at or below minimum %s %s", item.CurrentStock, item.Unit, item.MinStock, item.Unit),
		CreatedAt:       time.Now().UTC(),
	}

	created, err := s.repo.CreateAlertIfAbsent(ctx, alert)
	if err != nil {
		s.logAudit(ctx, "alert.create_failed", "inventory_item", item.ID, err.Error())
		return
	}
	if created {
		s.publish(ctx, feed.EventAlertRaised, alert.ID, alert)
		s.logAudit(ctx, "alert.raised", "inventory_alert", alert.ID, alert.AlertReason)
	}
}

func severityFor(current, min decimal.Decimal) string {
	if current.LessThanOrEqual(min.Mul(half)) {
		return domain.AlertSeverityCritical
	}
	return domain.AlertSeverityLow
}

func (s *Service) ListActiveAlerts(ctx context.Context) ([]domain.InventoryAlert, error) {
	return s.repo.ListActiveAlerts(ctx, s.policy.BranchID)
}

func (s *Service) ResolveAlert(ctx context.Context, alertID string) (*domain.InventoryAlert, error) {
	if strings.TrimSpace(alertID) == "" {
		return nil, fmt.Errorf("%w: alert id is required", store.ErrValidation)
	}

	alert, err := s.repo.ResolveAlert(ctx, alertID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.publish(ctx, feed.EventAlertResolved, alert.ID, alert)
	s.logAudit(ctx, "alert.resolved", "inventory_alert", alert.ID, "resolved manually")
	return alert, nil
}
