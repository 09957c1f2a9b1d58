package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"dapurpos/backend/internal/domain"
	"dapurpos/backend/internal/feed"
	"dapurpos/backend/internal/recipe"
	"dapurpos/backend/internal/store"
	"dapurpos/backend/internal/xid"
)

// statusTransitions is the forward order lifecycle. Cancellation is handled
// separately by CancelOrder.
var statusTransitions = map[string]string{
	domain.OrderStatusPending:   domain.OrderStatusConfirmed,
	domain.OrderStatusConfirmed: domain.OrderStatusPreparing,
	domain.OrderStatusPreparing: domain.OrderStatusReady,
	domain.OrderStatusReady:     domain.OrderStatusCompleted,
}

// cancellableStatuses are the states an order may be voided from. Completed
// and already-cancelled orders are final.
var cancellableStatuses = map[string]bool{
	domain.OrderStatusPending:   true,
	domain.OrderStatusConfirmed: true,
	domain.OrderStatusPreparing: true,
}

// CreateOrder runs the full fulfillment pipeline: validate the cart, price it,
// explode recipes into ingredient demand, persist the order, deduct stock and
// accrue loyalty points. Inventory shortfall does not block the sale unless
// oversell is disallowed; it surfaces as warnings plus a critical alert so the
// kitchen keeps moving while the manager restocks.
func (s *Service) CreateOrder(ctx context.Context, req domain.OrderCreateRequest) (*domain.OrderCreateResponse, error) {
	if strings.TrimSpace(req.TableID) == "" {
		return nil, fmt.Errorf("%w: table id is required", store.ErrValidation)
	}

	items := req.Items
	fromCart := false
	if len(items) == 0 {
		actor, ok := ActorFromContext(ctx)
		if !ok {
			return nil, fmt.Errorf("%w: order has no items", store.ErrValidation)
		}
		lines, err := s.repo.GetCart(ctx, actor.Username)
		if err != nil {
			return nil, fmt.Errorf("load cart: %w", err)
		}
		for _, line := range lines {
			items = append(items, domain.OrderItemRequest{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Notes:     line.Notes,
			})
		}
		fromCart = true
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: order has no items", store.ErrValidation)
	}

	branchID := req.BranchID
	if branchID == "" {
		branchID = s.policy.BranchID
	}

	orderID := xid.New("order")
	subtotal := decimal.Zero
	orderItems := make([]domain.OrderItem, 0, len(items))
	demand := make([][]recipe.Requirement, 0, len(items))

	for _, item := range items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity for product %s must be at least 1", store.ErrValidation, item.ProductID)
		}
		product, err := s.repo.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, err)
		}
		if !product.Active {
			return nil, fmt.Errorf("%w: product %s is not available", store.ErrValidation, product.Name)
		}

		qty := decimal.NewFromInt(int64(item.Quantity))
		subtotal = subtotal.Add(product.Price.Mul(qty))
		orderItems = append(orderItems, domain.OrderItem{
			OrderID:      orderID,
			ProductID:    product.ID,
			Quantity:     item.Quantity,
			PriceAtOrder: product.Price,
			Notes:        item.Notes,
		})

		lines, err := s.repo.GetRecipeLines(ctx, product.ID)
		if err != nil {
			return nil, fmt.Errorf("recipe for %s: %w", product.ID, err)
		}
		demand = append(demand, recipe.Resolve(lines, item.Quantity))
	}

	requirements := recipe.Merge(demand...)
	availability, err := s.CheckAvailability(ctx, requirements)
	if err != nil {
		return nil, err
	}
	if !availability.Available && !s.policy.AllowOversell {
		var short []string
		for _, sh := range availability.Shortages {
			short = append(short, fmt.Sprintf("%s (need %s, have %s)", sh.ItemName, sh.Needed, sh.Available))
		}
		return nil, fmt.Errorf("%w: insufficient stock: %s", store.ErrValidation, strings.Join(short, ", "))
	}

	taxAmount := subtotal.Mul(s.policy.TaxRatePercent).Div(hundred)
	order := domain.Order{
		ID:            orderID,
		BranchID:      branchID,
		TableID:       req.TableID,
		CustomerID:    req.CustomerID,
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		Subtotal:      subtotal,
		TaxAmount:     taxAmount,
		TotalAmount:   subtotal.Add(taxAmount),
		CreatedAt:     time.Now().UTC(),
		Items:         orderItems,
	}

	created, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	resp := &domain.OrderCreateResponse{Order: *created, Shortages: availability.Shortages}

	for _, sh := range availability.Shortages {
		log.Printf("[orders] WARN: order %s short on %s: need %s, have %s", orderID, sh.ItemName, sh.Needed, sh.Available)
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("insufficient %s: need %s, have %s", sh.ItemName, sh.Needed, sh.Available))
		s.raiseShortageAlert(ctx, sh, orderID)
	}

	for _, reqmt := range requirements {
		if _, err := s.DeductStock(ctx, reqmt.InventoryItemID, reqmt.Quantity, "order "+orderID); err != nil {
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("stock deduction failed for %s: %v", reqmt.InventoryItemID, err))
		}
	}
	if len(requirements) > 0 {
		if err := s.repo.SetOrderInventoryApplied(ctx, orderID, true); err != nil {
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("failed to record inventory application: %v", err))
		} else {
			resp.Order.InventoryApplied = true
		}
	}

	if req.CustomerID != "" && s.policy.PointsPerUnit > 0 {
		points := int(resp.Order.TotalAmount.Div(s.policy.CurrencyUnit).Floor().IntPart()) * s.policy.PointsPerUnit
		if points > 0 {
			result, err := s.EarnPoints(ctx, domain.EarnPointsRequest{
				CustomerID:  req.CustomerID,
				Points:      points,
				Description: "order " + orderID,
				OrderID:     orderID,
			})
			if err != nil {
				resp.Warnings = append(resp.Warnings, fmt.Sprintf("loyalty accrual failed: %v", err))
			} else {
				resp.PointsEarned = result.Transaction.Points
			}
		}
	}

	if fromCart {
		actor, _ := ActorFromContext(ctx)
		if err := s.repo.ClearCart(ctx, actor.Username); err != nil {
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("failed to clear cart: %v", err))
		}
	}

	s.publish(ctx, feed.EventOrderCreated, orderID, resp.Order)
	s.logAudit(ctx, "order.created", "order", orderID, fmt.Sprintf("table=%s total=%s items=%d", req.TableID, resp.Order.TotalAmount, len(orderItems)))
	return resp, nil
}

// raiseShortageAlert records that an order committed against insufficient
// stock. Always critical: the kitchen is about to run out mid-service.
func (s *Service) raiseShortageAlert(ctx context.Context, sh domain.Shortage, orderID string) {
	item, err := s.repo.GetInventoryItem(ctx, sh.InventoryItemID)
	if err != nil {
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
		Severity:        domain.AlertSeverityCritical,
		AlertReason:     fmt.Sprintf("order %s committed against insufficient stock: need %s, have %s", orderID, sh.Needed, sh.Available),
		CreatedAt:       time.Now().UTC(),
	}
	if created, err := s.repo.CreateAlertIfAbsent(ctx, alert); err == nil && created {
		s.publish(ctx, feed.EventAlertRaised, alert.ID, alert)
	}
}

func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: order id is required", store.ErrValidation)
	}
	return s.repo.GetOrder(ctx, id)
}

// AdvanceOrder moves an order one step along pending -> confirmed ->
// preparing -> ready -> completed. Completion requires payment to have been
// recorded first.
func (s *Service) AdvanceOrder(ctx context.Context, id string, next string) (*domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	expected, ok := statusTransitions[order.Status]
	if !ok || expected != next {
		return nil, fmt.Errorf("%w: cannot move order from %s to %s", store.ErrConflict, order.Status, next)
	}

	var closedAt *time.Time
	if next == domain.OrderStatusCompleted {
		if order.PaymentStatus != domain.PaymentStatusPaid {
			return nil, fmt.Errorf("%w: order must be paid before completion", store.ErrConflict)
		}
		now := time.Now().UTC()
		closedAt = &now
	}

	updated, err := s.repo.UpdateOrderStatus(ctx, id, next, "", closedAt)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, feed.EventOrderUpdated, id, updated)
	s.logAudit(ctx, "order.status", "order", id, fmt.Sprintf("%s -> %s", order.Status, next))
	return updated, nil
}

// RecordPayment marks an order paid and attributes the sale to the acting
// cashier's open shift so the drawer reconciles at close.
func (s *Service) RecordPayment(ctx context.Context, id string, req domain.PaymentRequest) (*domain.Order, error) {
	method := strings.ToLower(strings.TrimSpace(req.Method))
	if method == "" {
		return nil, fmt.Errorf("%w: payment method is required", store.ErrValidation)
	}

	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status == domain.OrderStatusCancelled {
		return nil, fmt.Errorf("%w: cannot pay a cancelled order", store.ErrConflict)
	}
	if order.PaymentStatus == domain.PaymentStatusPaid {
		return nil, fmt.Errorf("%w: order is already paid", store.ErrConflict)
	}

	shiftID := ""
	if actor, ok := ActorFromContext(ctx); ok {
		shift, err := s.repo.GetOpenShiftByUser(ctx, actor.Username)
		if err == nil {
			shiftID = shift.ID
		}
	}
	if method == domain.PaymentMethodCash && shiftID == "" {
		return nil, fmt.Errorf("%w: cash payments require an open shift", store.ErrConflict)
	}

	updated, err := s.repo.MarkOrderPaid(ctx, id, method, shiftID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, feed.EventOrderUpdated, id, updated)
	s.logAudit(ctx, "order.paid", "order", id, fmt.Sprintf("method=%s amount=%s shift=%s", method, updated.TotalAmount, shiftID))
	return updated, nil
}

// CancelOrder voids an order that has not been served. If the order's
// ingredient deduction already committed, base recipe quantities are credited
// back; the wastage overhead stays deducted since that loss was incurred at
// preparation. The credit applies at most once per order.
func (s *Service) CancelOrder(ctx context.Context, id string, reason string) (*domain.Order, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: a cancellation reason is required", store.ErrValidation)
	}

	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cancellableStatuses[order.Status] {
		return nil, fmt.Errorf("%w: cannot cancel order in status %s", store.ErrConflict, order.Status)
	}

	if order.InventoryApplied {
		demand := make([][]recipe.Requirement, 0, len(order.Items))
		for _, item := range order.Items {
			lines, err := s.repo.GetRecipeLines(ctx, item.ProductID)
			if err != nil {
				return nil, fmt.Errorf("recipe for %s: %w", item.ProductID, err)
			}
			demand = append(demand, recipe.ResolveBase(lines, item.Quantity))
		}
		for _, reqmt := range recipe.Merge(demand...) {
			if _, err := s.CreditStock(ctx, reqmt.InventoryItemID, reqmt.Quantity, "cancel order "+id); err != nil {
				s.logAudit(ctx, "order.cancel_credit_failed", "inventory_item", reqmt.InventoryItemID, err.Error())
			}
		}
		if err := s.repo.SetOrderInventoryApplied(ctx, id, false); err != nil {
			return nil, fmt.Errorf("clear inventory flag: %w", err)
		}
	}

	now := time.Now().UTC()
	updated, err := s.repo.UpdateOrderStatus(ctx, id, domain.OrderStatusCancelled, reason, &now)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, feed.EventOrderCancelled, id, updated)
	s.logAudit(ctx, "order.cancelled", "order", id, reason)
	return updated, nil
}

// --- carts ---

func (s *Service) SaveCart(ctx context.Context, lines []domain.CartLine) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return fmt.Errorf("%w: no acting user", store.ErrValidation)
	}
	for _, line := range lines {
		if line.ProductID == "" || line.Quantity < 1 {
			return fmt.Errorf("%w: cart lines need a product and a positive quantity", store.ErrValidation)
		}
	}
	return s.repo.SaveCart(ctx, actor.Username, lines)
}

func (s *Service) GetCart(ctx context.Context) ([]domain.CartLine, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: no acting user", store.ErrValidation)
	}
	return s.repo.GetCart(ctx, actor.Username)
}

func (s *Service) ClearCart(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return fmt.Errorf("%w: no acting user", store.ErrValidation)
	}
	return s.repo.ClearCart(ctx, actor.Username)
}
