package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Active bool            `json:"active"`
}

// RecipeLine is one ingredient requirement of a product. WastagePercent is a
// policy input expressed as a percentage (10 = 10%); no upper bound is
// enforced.
type RecipeLine struct {
	ProductID        string          `json:"product_id"`
	InventoryItemID  string          `json:"inventory_item_id"`
	QuantityRequired decimal.Decimal `json:"quantity_required"`
	WastagePercent   decimal.Decimal `json:"wastage_percent"`
}

type InventoryItem struct {
	ID           string          `json:"id"`
	BranchID     string          `json:"branch_id"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	MinStock     decimal.Decimal `json:"min_stock"`
	CostPerUnit  decimal.Decimal `json:"cost_per_unit"`
}

// InventoryLogEntry is an append-only audit record written by every stock
// mutation. QuantityDelta holds the delta actually applied, which may be
// smaller than requested when a deduction clamps at zero.
type InventoryLogEntry struct {
	ID              string          `json:"id"`
	InventoryItemID string          `json:"inventory_item_id"`
	OldStock        decimal.Decimal `json:"old_stock"`
	NewStock        decimal.Decimal `json:"new_stock"`
	QuantityDelta   decimal.Decimal `json:"quantity_delta"`
	Reason          string          `json:"reason"`
	CreatedAt       time.Time       `json:"created_at"`
}

const (
	AlertSeverityLow      = "low"
	AlertSeverityCritical = "critical"
)

type InventoryAlert struct {
	ID              string          `json:"id"`
	InventoryItemID string          `json:"inventory_item_id"`
	BranchID        string          `json:"branch_id"`
	ItemName        string          `json:"item_name"`
	CurrentStock    decimal.Decimal `json:"current_stock"`
	MinStock        decimal.Decimal `json:"min_stock"`
	Unit            string          `json:"unit"`
	Severity        string          `json:"severity"`
	Resolved        bool            `json:"resolved"`
	AlertReason     string          `json:"alert_reason"`
	CreatedAt       time.Time       `json:"created_at"`
	ResolvedAt      *time.Time      `json:"resolved_at,omitempty"`
}

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

type Order struct {
	ID            string          `json:"id"`
	BranchID      string          `json:"branch_id"`
	TableID       string          `json:"table_id"`
	CustomerID    string          `json:"customer_id,omitempty"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	ShiftID       string          `json:"shift_id,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	// InventoryApplied records whether this order's ingredient deduction has
	// committed, so cancellation credits apply at most once.
	InventoryApplied bool        `json:"inventory_applied"`
	CancelReason     string      `json:"cancel_reason,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	ClosedAt         *time.Time  `json:"closed_at,omitempty"`
	Items            []OrderItem `json:"items"`
}

// OrderItem snapshots the product price at order time; PriceAtOrder is
// immutable thereafter.
type OrderItem struct {
	OrderID      string          `json:"order_id"`
	ProductID    string          `json:"product_id"`
	Quantity     int             `json:"quantity"`
	PriceAtOrder decimal.Decimal `json:"price_at_order"`
	Notes        string          `json:"notes,omitempty"`
}

type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes,omitempty"`
}

const (
	LoyaltyTypeEarn   = "earn"
	LoyaltyTypeRedeem = "redeem"
	LoyaltyTypeAdjust = "adjust"
)

// LoyaltyTransaction is an append-only ledger row. Points is signed: earns
// are positive, redeems negative, adjustments either.
type LoyaltyTransaction struct {
	ID           string    `json:"id"`
	CustomerID   string    `json:"customer_id"`
	Points       int       `json:"points"`
	Type         string    `json:"transaction_type"`
	Description  string    `json:"description"`
	OrderID      string    `json:"order_id,omitempty"`
	IsSuspicious bool      `json:"is_suspicious"`
	AlertReason  string    `json:"alert_reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type Customer struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	LoyaltyPoints int    `json:"loyalty_points"`
}

const (
	ShiftStatusOpen   = "open"
	ShiftStatusClosed = "closed"
)

const (
	PaymentMethodCash = "cash"
	PaymentMethodCard = "card"
)

type CashShift struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	ShiftStart      time.Time       `json:"shift_start"`
	ShiftEnd        *time.Time      `json:"shift_end,omitempty"`
	InitialCash     decimal.Decimal `json:"initial_cash"`
	TotalCashSales  decimal.Decimal `json:"total_cash_sales"`
	TotalCardSales  decimal.Decimal `json:"total_card_sales"`
	TotalOtherSales decimal.Decimal `json:"total_other_sales"`
	ExpectedCash    decimal.Decimal `json:"expected_cash"`
	ActualCash      decimal.Decimal `json:"actual_cash"`
	Difference      decimal.Decimal `json:"difference"`
	Status          string          `json:"status"`
	Notes           string          `json:"notes,omitempty"`
}

type Denomination struct {
	Value decimal.Decimal `json:"value"`
	Count int             `json:"count"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	BranchID      string    `json:"branch_id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

// --- request/response types ---

type OrderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes,omitempty"`
}

type OrderCreateRequest struct {
	BranchID   string `json:"branch_id"`
	TableID    string `json:"table_id"`
	CustomerID string `json:"customer_id,omitempty"`
	// Items may be empty, in which case the caller's held cart supplies them.
	Items []OrderItemRequest `json:"items"`
}

type Shortage struct {
	InventoryItemID string          `json:"inventory_item_id"`
	ItemName        string          `json:"item_name"`
	Available       decimal.Decimal `json:"available"`
	Needed          decimal.Decimal `json:"needed"`
}

type AvailabilityResult struct {
	Available bool       `json:"available"`
	Shortages []Shortage `json:"shortages"`
}

// OrderCreateResponse distinguishes a clean creation from one that committed
// with incomplete side effects: Warnings is non-empty when inventory was
// short or loyalty accrual failed after the order was persisted.
type OrderCreateResponse struct {
	Order        Order      `json:"order"`
	Shortages    []Shortage `json:"shortages,omitempty"`
	PointsEarned int        `json:"points_earned"`
	Warnings     []string   `json:"warnings,omitempty"`
}

type OrderCancelRequest struct {
	Reason string `json:"reason"`
}

type PaymentRequest struct {
	Method string `json:"method"`
}

type StockOpRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
	Reason   string          `json:"reason"`
}

type EarnPointsRequest struct {
	CustomerID  string `json:"customer_id"`
	Points      int    `json:"points"`
	Description string `json:"description"`
	OrderID     string `json:"order_id,omitempty"`
}

type RedeemPointsRequest struct {
	CustomerID  string `json:"customer_id"`
	Points      int    `json:"points"`
	Description string `json:"description"`
	OrderID     string `json:"order_id,omitempty"`
}

type AdjustPointsRequest struct {
	CustomerID  string `json:"customer_id"`
	Points      int    `json:"points"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

type LoyaltyResult struct {
	Transaction LoyaltyTransaction `json:"transaction"`
	NewBalance  int                `json:"new_balance"`
}

type ShiftOpenRequest struct {
	InitialCash decimal.Decimal `json:"initial_cash"`
}

type ShiftCloseRequest struct {
	ActualCash    decimal.Decimal `json:"actual_cash"`
	Denominations []Denomination  `json:"denominations,omitempty"`
	Notes         string          `json:"notes"`
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}
