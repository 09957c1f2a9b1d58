package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"dapurpos/backend/internal/domain"
	"dapurpos/backend/internal/feed"
	"dapurpos/backend/internal/store"
	"dapurpos/backend/internal/xid"
)

// OpenShift starts a cash drawer session for the acting user. A user holds at
// most one open shift; opening a second fails without touching the first.
func (s *Service) OpenShift(ctx context.Context, req domain.ShiftOpenRequest) (*domain.CashShift, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: no acting user", store.ErrValidation)
	}
	if req.InitialCash.Sign() < 0 {
		return nil, fmt.Errorf("%w: initial cash cannot be negative", store.ErrValidation)
	}

	shift := domain.CashShift{
		ID:          xid.New("shift"),
		UserID:      actor.Username,
		ShiftStart:  time.Now().UTC(),
		InitialCash: req.InitialCash,
		Status:      domain.ShiftStatusOpen,
	}
	created, err := s.repo.CreateShift(ctx, shift)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, feed.EventShiftOpened, created.ID, created)
	s.logAudit(ctx, "shift.opened", "cash_shift", created.ID, fmt.Sprintf("initial cash %s", req.InitialCash))
	return created, nil
}

func (s *Service) GetActiveShift(ctx context.Context) (*domain.CashShift, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: no acting user", store.ErrValidation)
	}
	return s.repo.GetOpenShiftByUser(ctx, actor.Username)
}

// CloseShift reconciles the drawer. Expected cash is the initial float plus
// cash sales attributed to the shift; card and other tenders are reported but
// never enter the drawer math. When a denomination breakdown is supplied, the
// counted amount is derived from it and overrides the flat figure.
func (s *Service) CloseShift(ctx context.Context, shiftID string, req domain.ShiftCloseRequest) (*domain.CashShift, error) {
	shift, err := s.repo.GetShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if shift.Status != domain.ShiftStatusOpen {
		return nil, fmt.Errorf("%w: shift %s is already closed", store.ErrConflict, shiftID)
	}

	counted := req.ActualCash
	if len(req.Denominations) > 0 {
		counted = decimal.Zero
		for _, denom := range req.Denominations {
			if denom.Count < 0 || denom.Value.Sign() < 0 {
				return nil, fmt.Errorf("%w: denomination counts and values cannot be negative", store.ErrValidation)
			}
			counted = counted.Add(denom.Value.Mul(decimal.NewFromInt(int64(denom.Count))))
		}
	}
	if counted.Sign() < 0 {
		return nil, fmt.Errorf("%w: counted cash cannot be negative", store.ErrValidation)
	}

	sums, err := s.repo.SumOrderPaymentsByShift(ctx, shiftID)
	if err != nil {
		return nil, fmt.Errorf("aggregate shift payments: %w", err)
	}

	cashSales := sums[domain.PaymentMethodCash]
	cardSales := sums[domain.PaymentMethodCard]
	otherSales := decimal.Zero
	for method, total := range sums {
		if method != domain.PaymentMethodCash && method != domain.PaymentMethodCard {
			otherSales = otherSales.Add(total)
		}
	}

	now := time.Now().UTC()
	shift.ShiftEnd = &now
	shift.TotalCashSales = cashSales
	shift.TotalCardSales = cardSales
	shift.TotalOtherSales = otherSales
	shift.ExpectedCash = shift.InitialCash.Add(cashSales)
	shift.ActualCash = counted
	shift.Difference = counted.Sub(shift.ExpectedCash)
	shift.Status = domain.ShiftStatusClosed
	shift.Notes = req.Notes

	closed, err := s.repo.CloseShift(ctx, *shift)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, feed.EventShiftClosed, closed.ID, closed)
	s.logAudit(ctx, "shift.closed", "cash_shift", closed.ID, fmt.Sprintf("expected %s, counted %s, difference %s", closed.ExpectedCash, closed.ActualCash, closed.Difference))
	return closed, nil
}
