package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"dapurpos/backend/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrConflict           = errors.New("conflict")
)

// Repository is the persistence boundary for the fulfillment pipeline.
// Implementations must make DeductStock, CreateAlertIfAbsent and CreateShift
// atomic with respect to their invariants (clamped stock, one unresolved
// alert per item, one open shift per user).
type Repository interface {
	// Catalog (read-only for this core).
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetRecipeLines(ctx context.Context, productID string) ([]domain.RecipeLine, error)

	// Inventory ledger.
	GetInventoryItem(ctx context.Context, id string) (*domain.InventoryItem, error)
	ListInventoryItems(ctx context.Context, branchID string) ([]domain.InventoryItem, error)
	// DeductStock applies new = max(0, current - qty) in a single atomic step
	// and returns the pre- and post-update stock.
	DeductStock(ctx context.Context, itemID string, qty decimal.Decimal) (old, updated decimal.Decimal, err error)
	// CreditStock applies new = current + qty atomically.
	CreditStock(ctx context.Context, itemID string, qty decimal.Decimal) (old, updated decimal.Decimal, err error)
	CreateInventoryLog(ctx context.Context, entry domain.InventoryLogEntry) error
	ListInventoryLogs(ctx context.Context, itemID string, limit int) ([]domain.InventoryLogEntry, error)

	// Alerts. CreateAlertIfAbsent inserts only when no unresolved alert exists
	// for the item; it reports whether a row was created.
	CreateAlertIfAbsent(ctx context.Context, alert domain.InventoryAlert) (bool, error)
	ResolveAlert(ctx context.Context, alertID string, at time.Time) (*domain.InventoryAlert, error)
	// ResolveAlertsForItem resolves every unresolved alert of the item and
	// returns how many were resolved.
	ResolveAlertsForItem(ctx context.Context, itemID string, at time.Time) (int, error)
	ListActiveAlerts(ctx context.Context, branchID string) ([]domain.InventoryAlert, error)

	// Orders.
	CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status string, cancelReason string, closedAt *time.Time) (*domain.Order, error)
	SetOrderInventoryApplied(ctx context.Context, id string, applied bool) error
	MarkOrderPaid(ctx context.Context, id string, method string, shiftID string) (*domain.Order, error)
	// SumOrderPaymentsByShift aggregates paid order totals attributed to the
	// shift, keyed by payment method.
	SumOrderPaymentsByShift(ctx context.Context, shiftID string) (map[string]decimal.Decimal, error)

	// Carts (the cart provider consumed by order creation).
	SaveCart(ctx context.Context, username string, lines []domain.CartLine) error
	GetCart(ctx context.Context, username string) ([]domain.CartLine, error)
	ClearCart(ctx context.Context, username string) error

	// Customers and loyalty ledger.
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	SetCustomerPoints(ctx context.Context, id string, points int) error
	CreateLoyaltyTransaction(ctx context.Context, tx domain.LoyaltyTransaction) (*domain.LoyaltyTransaction, error)
	ListLoyaltyTransactions(ctx context.Context, customerID string, limit int) ([]domain.LoyaltyTransaction, error)
	SumEarnedPointsSince(ctx context.Context, customerID string, since time.Time) (int, error)
	SumLoyaltyPoints(ctx context.Context, customerID string) (int, error)

	// Cash shifts. CreateShift fails with ErrConflict when the user already
	// has an open shift, without mutating it.
	CreateShift(ctx context.Context, shift domain.CashShift) (*domain.CashShift, error)
	GetShift(ctx context.Context, id string) (*domain.CashShift, error)
	GetOpenShiftByUser(ctx context.Context, userID string) (*domain.CashShift, error)
	CloseShift(ctx context.Context, shift domain.CashShift) (*domain.CashShift, error)

	// Audit.
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, branchID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	// Auth accounts.
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
