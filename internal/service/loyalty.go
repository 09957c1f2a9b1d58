package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dapurpos/backend/internal/domain"
	"dapurpos/backend/internal/feed"
	"dapurpos/backend/internal/store"
	"dapurpos/backend/internal/xid"
)

func (s *Service) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: customer id is required", store.ErrValidation)
	}
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) ListLoyaltyTransactions(ctx context.Context, customerID string, limit int) ([]domain.LoyaltyTransaction, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, fmt.Errorf("%w: customer id is required", store.ErrValidation)
	}
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListLoyaltyTransactions(ctx, customerID, limit)
}

// EarnPoints credits points to a customer's ledger. Earning past the daily
// limit is not blocked: the transaction commits flagged as suspicious so a
// manager reviews it later. A failed limit lookup degrades to an unflagged
// earn rather than blocking the sale.
func (s *Service) EarnPoints(ctx context.Context, req domain.EarnPointsRequest) (*domain.LoyaltyResult, error) {
	if req.Points < 1 {
		return nil, fmt.Errorf("%w: points must be positive", store.ErrValidation)
	}
	customer, err := s.repo.GetCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	suspicious := false
	alertReason := ""
	earnedToday, err := s.repo.SumEarnedPointsSince(ctx, customer.ID, startOfDay)
	if err != nil {
		s.logAudit(ctx, "loyalty.limit_check_failed", "customer", customer.ID, err.Error())
	} else if earnedToday+req.Points > s.policy.DailyPointsLimit {
		suspicious = true
		alertReason = fmt.Sprintf("daily earn limit exceeded: %d earned today, +%d requested, limit %d", earnedToday, req.Points, s.policy.DailyPointsLimit)
	}

	tx := domain.LoyaltyTransaction{
		ID:           xid.New("loyal"),
		CustomerID:   customer.ID,
		Points:       req.Points,
		Type:         domain.LoyaltyTypeEarn,
		Description:  req.Description,
		OrderID:      req.OrderID,
		IsSuspicious: suspicious,
		AlertReason:  alertReason,
		CreatedAt:    now,
	}
	created, err := s.repo.CreateLoyaltyTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("record loyalty earn: %w", err)
	}

	newBalance := customer.LoyaltyPoints + req.Points
	if err := s.repo.SetCustomerPoints(ctx, customer.ID, newBalance); err != nil {
		return nil, fmt.Errorf("update customer balance: %w", err)
	}

	s.publish(ctx, feed.EventLoyaltyRecorded, created.ID, created)
	s.logAudit(ctx, "loyalty.earn", "customer", customer.ID, fmt.Sprintf("+%d points, balance %d, suspicious=%t", req.Points, newBalance, suspicious))
	return &domain.LoyaltyResult{Transaction: *created, NewBalance: newBalance}, nil
}

// RedeemPoints debits points. Unlike earns, an insufficient balance is a hard
// failure and nothing is written.
func (s *Service) RedeemPoints(ctx context.Context, req domain.RedeemPointsRequest) (*domain.LoyaltyResult, error) {
	if req.Points < 1 {
		return nil, fmt.Errorf("%w: points must be positive", store.ErrValidation)
	}
	customer, err := s.repo.GetCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer.LoyaltyPoints < req.Points {
		return nil, fmt.Errorf("%w: balance %d, requested %d", store.ErrInsufficientPoints, customer.LoyaltyPoints, req.Points)
	}

	tx := domain.LoyaltyTransaction{
		ID:          xid.New("loyal"),
		CustomerID:  customer.ID,
		Points:      -req.Points,
		Type:        domain.LoyaltyTypeRedeem,
		Description: req.Description,
		OrderID:     req.OrderID,
		CreatedAt:   time.Now().UTC(),
	}
	created, err := s.repo.CreateLoyaltyTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("record loyalty redeem: %w", err)
	}

	newBalance := customer.LoyaltyPoints - req.Points
	if err := s.repo.SetCustomerPoints(ctx, customer.ID, newBalance); err != nil {
		return nil, fmt.Errorf("update customer balance: %w", err)
	}

	s.publish(ctx, feed.EventLoyaltyRecorded, created.ID, created)
	s.logAudit(ctx, "loyalty.redeem", "customer", customer.ID, fmt.Sprintf("-%d points, balance %d", req.Points, newBalance))
	return &domain.LoyaltyResult{Transaction: *created, NewBalance: newBalance}, nil
}

// AdjustPoints applies a manual correction. The declared type decides the
// direction: earn always credits |points|, redeem always debits, and adjust
// follows the sign of the input. The balance never drops below zero, and the
// ledger row records the delta actually applied so the ledger keeps summing
// to the balance.
func (s *Service) AdjustPoints(ctx context.Context, req domain.AdjustPointsRequest) (*domain.LoyaltyResult, error) {
	if req.Points == 0 {
		return nil, fmt.Errorf("%w: points must be non-zero", store.ErrValidation)
	}
	adjType := strings.ToLower(strings.TrimSpace(req.Type))
	switch adjType {
	case domain.LoyaltyTypeEarn, domain.LoyaltyTypeRedeem, domain.LoyaltyTypeAdjust:
	default:
		return nil, fmt.Errorf("%w: unknown adjustment type %q", store.ErrValidation, req.Type)
	}

	customer, err := s.repo.GetCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	magnitude := req.Points
	if magnitude < 0 {
		magnitude = -magnitude
	}
	delta := magnitude
	if adjType == domain.LoyaltyTypeRedeem || (adjType == domain.LoyaltyTypeAdjust && req.Points < 0) {
		delta = -magnitude
	}
	newBalance := customer.LoyaltyPoints + delta
	if newBalance < 0 {
		newBalance = 0
		delta = -customer.LoyaltyPoints
	}

	tx := domain.LoyaltyTransaction{
		ID:          xid.New("loyal"),
		CustomerID:  customer.ID,
		Points:      delta,
		Type:        adjType,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
	}
	created, err := s.repo.CreateLoyaltyTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("record loyalty adjustment: %w", err)
	}
	if err := s.repo.SetCustomerPoints(ctx, customer.ID, newBalance); err != nil {
		return nil, fmt.Errorf("update customer balance: %w", err)
	}

	s.publish(ctx, feed.EventLoyaltyRecorded, created.ID, created)
	s.logAudit(ctx, "loyalty.adjust", "customer", customer.ID, fmt.Sprintf("%+d points (%s), balance %d", delta, adjType, newBalance))
	return &domain.LoyaltyResult{Transaction: *created, NewBalance: newBalance}, nil
}

// RecomputeLoyaltyBalance rebuilds a customer's cached balance from the
// ledger. Repair tool for when the cache and the ledger drift.
func (s *Service) RecomputeLoyaltyBalance(ctx context.Context, customerID string) (int, error) {
	customer, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return 0, err
	}

	total, err := s.repo.SumLoyaltyPoints(ctx, customer.ID)
	if err != nil {
		return 0, fmt.Errorf("sum loyalty ledger: %w", err)
	}
	if total < 0 {
		total = 0
	}
	if err := s.repo.SetCustomerPoints(ctx, customer.ID, total); err != nil {
		return 0, fmt.Errorf("update customer balance: %w", err)
	}

	s.logAudit(ctx, "loyalty.recompute", "customer", customer.ID, fmt.Sprintf("balance %d -> %d", customer.LoyaltyPoints, total))
	return total, nil
}
