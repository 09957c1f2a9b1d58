package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"dapurpos/backend/internal/domain"
	"dapurpos/backend/internal/store"
	"dapurpos/backend/internal/xid"
)

type Store struct {
	mu                sync.RWMutex
	products          map[string]domain.Product
	recipesByProduct  map[string][]domain.RecipeLine
	inventoryByID     map[string]domain.InventoryItem
	inventoryLogs     []domain.InventoryLogEntry
	alertsByID        map[string]domain.InventoryAlert
	ordersByID        map[string]*domain.Order
	cartsByUser       map[string][]domain.CartLine
	customersByID     map[string]domain.Customer
	loyaltyLedger     []domain.LoyaltyTransaction
	shiftsByID        map[string]domain.CashShift
	openShiftByUser   map[string]string
	auditLogs         []domain.AuditLog
	usersByUsername   map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func NewSeeded() *Store {
	products := []domain.Product{
		{ID: "prod-nasi-goreng", Name: "Nasi Goreng Ayam", Price: dec("45"), Active: true},
		{ID: "prod-ayam-bakar", Name: "Ayam Bakar", Price: dec("55"), Active: true},
		{ID: "prod-mie-goreng", Name: "Mie Goreng Spesial", Price: dec("40"), Active: true},
		{ID: "prod-sate-ayam", Name: "Sate Ayam", Price: dec("38"), Active: true},
		{ID: "prod-es-teh", Name: "Es Teh Manis", Price: dec("10"), Active: true},
		{ID: "prod-jus-alpukat", Name: "Jus Alpukat", Price: dec("22"), Active: true},
	}

	inventory := []domain.InventoryItem{
		{ID: "inv-rice", BranchID: "main-branch", Name: "Beras", Unit: "kg", CurrentStock: dec("40"), MinStock: dec("10"), CostPerUnit: dec("1.2")},
		{ID: "inv-chicken", BranchID: "main-branch", Name: "Ayam Fillet", Unit: "kg", CurrentStock: dec("25"), MinStock: dec("8"), CostPerUnit: dec("6.5")},
		{ID: "inv-noodle", BranchID: "main-branch", Name: "Mie Telur", Unit: "kg", CurrentStock: dec("18"), MinStock: dec("5"), CostPerUnit: dec("2.4")},
		{ID: "inv-oil", BranchID: "main-branch", Name: "Minyak Goreng", Unit: "l", CurrentStock: dec("20"), MinStock: dec("6"), CostPerUnit: dec("1.8")},
		{ID: "inv-egg", BranchID: "main-branch", Name: "Telur", Unit: "pcs", CurrentStock: dec("120"), MinStock: dec("30"), CostPerUnit: dec("0.25")},
		{ID: "inv-tea", BranchID: "main-branch", Name: "Teh Hitam", Unit: "g", CurrentStock: dec("900"), MinStock: dec("200"), CostPerUnit: dec("0.02")},
		{ID: "inv-sugar", BranchID: "main-branch", Name: "Gula Pasir", Unit: "kg", CurrentStock: dec("15"), MinStock: dec("4"), CostPerUnit: dec("0.9")},
		{ID: "inv-avocado", BranchID: "main-branch", Name: "Alpukat", Unit: "pcs", CurrentStock: dec("30"), MinStock: dec("10"), CostPerUnit: dec("0.8")},
	}

	recipes := map[string][]domain.RecipeLine{
		"prod-nasi-goreng": {
			{ProductID: "prod-nasi-goreng", InventoryItemID: "inv-rice", QuantityRequired: dec("0.25"), WastagePercent: dec("5")},
			{ProductID: "prod-nasi-goreng", InventoryItemID: "inv-chicken", QuantityRequired: dec("0.15"), WastagePercent: dec("10")},
			{ProductID: "prod-nasi-goreng", InventoryItemID: "inv-egg", QuantityRequired: dec("1"), WastagePercent: dec("0")},
			{ProductID: "prod-nasi-goreng", InventoryItemID: "inv-oil", QuantityRequired: dec("0.03"), WastagePercent: dec("0")},
		},
		"prod-ayam-bakar": {
			{ProductID: "prod-ayam-bakar", InventoryItemID: "inv-chicken", QuantityRequired: dec("0.35"), WastagePercent: dec("12")},
			{ProductID: "prod-ayam-bakar", InventoryItemID: "inv-rice", QuantityRequired: dec("0.2"), WastagePercent: dec("5")},
		},
		"prod-mie-goreng": {
			{ProductID: "prod-mie-goreng", InventoryItemID: "inv-noodle", QuantityRequired: dec("0.2"), WastagePercent: dec("8")},
			{ProductID: "prod-mie-goreng", InventoryItemID: "inv-egg", QuantityRequired: dec("1"), WastagePercent: dec("0")},
			{ProductID: "prod-mie-goreng", InventoryItemID: "inv-oil", QuantityRequired: dec("0.03"), WastagePercent: dec("0")},
		},
		"prod-sate-ayam": {
			{ProductID: "prod-sate-ayam", InventoryItemID: "inv-chicken", QuantityRequired: dec("0.25"), WastagePercent: dec("15")},
		},
		"prod-es-teh": {
			{ProductID: "prod-es-teh", InventoryItemID: "inv-tea", QuantityRequired: dec("5"), WastagePercent: dec("0")},
			{ProductID: "prod-es-teh", InventoryItemID: "inv-sugar", QuantityRequired: dec("0.02"), WastagePercent: dec("0")},
		},
		"prod-jus-alpukat": {
			{ProductID: "prod-jus-alpukat", InventoryItemID: "inv-avocado", QuantityRequired: dec("2"), WastagePercent: dec("20")},
			{ProductID: "prod-jus-alpukat", InventoryItemID: "inv-sugar", QuantityRequired: dec("0.03"), WastagePercent: dec("0")},
		},
	}

	customers := []domain.Customer{
		{ID: "cust-budi", Name: "Budi Santoso", Phone: "+62811111111", Email: "budi@example.com", LoyaltyPoints: 120},
		{ID: "cust-sari", Name: "Sari Dewi", Phone: "+62822222222", Email: "sari@example.com", LoyaltyPoints: 0},
	}

	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}
	inventoryMap := make(map[string]domain.InventoryItem, len(inventory))
	for _, item := range inventory {
		inventoryMap[item.ID] = item
	}
	customerMap := make(map[string]domain.Customer, len(customers))
	for _, c := range customers {
		customerMap[c.ID] = c
	}

	return &Store{
		products:         productMap,
		recipesByProduct: recipes,
		inventoryByID:    inventoryMap,
		inventoryLogs:    make([]domain.InventoryLogEntry, 0, 128),
		alertsByID:       make(map[string]domain.InventoryAlert),
		ordersByID:       make(map[string]*domain.Order),
		cartsByUser:      make(map[string][]domain.CartLine),
		customersByID:    customerMap,
		loyaltyLedger:    make([]domain.LoyaltyTransaction, 0, 128),
		shiftsByID:       make(map[string]domain.CashShift),
		openShiftByUser:  make(map[string]string),
		auditLogs:        make([]domain.AuditLog, 0, 128),
		usersByUsername:  seedUsers(),
	}
}

// --- catalog ---

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return cmpString(a.Name, b.Name)
	})
	return products, nil
}

func (s *Store) GetRecipeLines(_ context.Context, productID string) ([]domain.RecipeLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.products[productID]; !exists {
		return nil, store.ErrNotFound
	}
	lines := s.recipesByProduct[productID]
	result := make([]domain.RecipeLine, len(lines))
	copy(result, lines)
	return result, nil
}

// --- inventory ---

func (s *Store) GetInventoryItem(_ context.Context, id string) (*domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.inventoryByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyItem := item
	return &copyItem, nil
}

func (s *Store) ListInventoryItems(_ context.Context, branchID string) ([]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.InventoryItem, 0, len(s.inventoryByID))
	for _, item := range s.inventoryByID {
		if branchID != "" && item.BranchID != branchID {
			continue
		}
		items = append(items, item)
	}
	slices.SortFunc(items, func(a, b domain.InventoryItem) int {
		return cmpString(a.Name, b.Name)
	})
	return items, nil
}

func (s *Store) DeductStock(_ context.Context, itemID string, qty decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if qty.Sign() <= 0 {
		return decimal.Zero, decimal.Zero, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.inventoryByID[itemID]
	if !exists {
		return decimal.Zero, decimal.Zero, store.ErrNotFound
	}

	old := item.CurrentStock
	updated := old.Sub(qty)
	if updated.Sign() < 0 {
		updated = decimal.Zero
	}
	item.CurrentStock = updated
	s.inventoryByID[itemID] = item
	return old, updated, nil
}

func (s *Store) CreditStock(_ context.Context, itemID string, qty decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if qty.Sign() <= 0 {
		return decimal.Zero, decimal.Zero, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.inventoryByID[itemID]
	if !exists {
		return decimal.Zero, decimal.Zero, store.ErrNotFound
	}

	old := item.CurrentStock
	updated := old.Add(qty)
	item.CurrentStock = updated
	s.inventoryByID[itemID] = item
	return old, updated, nil
}

func (s *Store) CreateInventoryLog(_ context.Context, entry domain.InventoryLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("invlog")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.inventoryLogs = append(s.inventoryLogs, entry)
	return nil
}

func (s *Store) ListInventoryLogs(_ context.Context, itemID string, limit int) ([]domain.InventoryLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.InventoryLogEntry, 0, 32)
	for _, entry := range s.inventoryLogs {
		if entry.InventoryItemID != itemID {
			continue
		}
		result = append(result, entry)
	}
	slices.SortFunc(result, func(a, b domain.InventoryLogEntry) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// --- alerts ---

func (s *Store) CreateAlertIfAbsent(_ context.Context, alert domain.InventoryAlert) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.alertsByID {
		if existing.InventoryItemID == alert.InventoryItemID && !existing.Resolved {
			return false, nil
		}
	}

	if alert.ID == "" {
		alert.ID = xid.New("alert")
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	alert.Resolved = false
	alert.ResolvedAt = nil
	s.alertsByID[alert.ID] = alert
	return true, nil
}

func (s *Store) ResolveAlert(_ context.Context, alertID string, at time.Time) (*domain.InventoryAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, exists := s.alertsByID[alertID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if alert.Resolved {
		return nil, store.ErrConflict
	}
	alert.Resolved = true
	resolvedAt := at.UTC()
	alert.ResolvedAt = &resolvedAt
	s.alertsByID[alertID] = alert
	copyAlert := alert
	return &copyAlert, nil
}

func (s *Store) ResolveAlertsForItem(_ context.Context, itemID string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resolved := 0
	resolvedAt := at.UTC()
	for id, alert := range s.alertsByID {
		if alert.InventoryItemID != itemID || alert.Resolved {
			continue
		}
		alert.Resolved = true
		alert.ResolvedAt = &resolvedAt
		s.alertsByID[id] = alert
		resolved++
	}
	return resolved, nil
}

func (s *Store) ListActiveAlerts(_ context.Context, branchID string) ([]domain.InventoryAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.InventoryAlert, 0, len(s.alertsByID))
	for _, alert := range s.alertsByID {
		if alert.Resolved {
			continue
		}
		if branchID != "" && alert.BranchID != branchID {
			continue
		}
		result = append(result, alert)
	}
	slices.SortFunc(result, func(a, b domain.InventoryAlert) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return result, nil
}

// --- orders ---

func (s *Store) CreateOrder(_ context.Context, order domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID == "" {
		order.ID = xid.New("order")
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	if order.Status == "" {
		order.Status = domain.OrderStatusPending
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = domain.PaymentStatusPending
	}
	if len(order.Items) == 0 {
		return nil, store.ErrValidation
	}

	s.ordersByID[order.ID] = cloneOrder(&order)
	return cloneOrder(s.ordersByID[order.ID]), nil
}

func (s *Store) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, exists := s.ordersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return cloneOrder(order), nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, id string, status string, cancelReason string, closedAt *time.Time) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, exists := s.ordersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	order.Status = status
	if cancelReason != "" {
		order.CancelReason = cancelReason
	}
	if closedAt != nil {
		at := closedAt.UTC()
		order.ClosedAt = &at
	}
	return cloneOrder(order), nil
}

func (s *Store) SetOrderInventoryApplied(_ context.Context, id string, applied bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, exists := s.ordersByID[id]
	if !exists {
		return store.ErrNotFound
	}
	order.InventoryApplied = applied
	return nil
}

func (s *Store) MarkOrderPaid(_ context.Context, id string, method string, shiftID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, exists := s.ordersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	if order.PaymentStatus == domain.PaymentStatusPaid {
		return nil, store.ErrConflict
	}
	order.PaymentStatus = domain.PaymentStatusPaid
	order.PaymentMethod = method
	order.ShiftID = shiftID
	return cloneOrder(order), nil
}

func (s *Store) SumOrderPaymentsByShift(_ context.Context, shiftID string) (map[string]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sums := make(map[string]decimal.Decimal)
	for _, order := range s.ordersByID {
		if order.ShiftID != shiftID || order.PaymentStatus != domain.PaymentStatusPaid {
			continue
		}
		if order.Status == domain.OrderStatusCancelled {
			continue
		}
		sums[order.PaymentMethod] = sums[order.PaymentMethod].Add(order.TotalAmount)
	}
	return sums, nil
}

// --- carts ---

func (s *Store) SaveCart(_ context.Context, username string, lines []domain.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := make([]domain.CartLine, len(lines))
	copy(saved, lines)
	s.cartsByUser[username] = saved
	return nil
}

func (s *Store) GetCart(_ context.Context, username string) ([]domain.CartLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := s.cartsByUser[username]
	result := make([]domain.CartLine, len(lines))
	copy(result, lines)
	return result, nil
}

func (s *Store) ClearCart(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cartsByUser, username)
	return nil
}

// --- customers and loyalty ---

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, exists := s.customersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyCustomer := customer
	return &copyCustomer, nil
}

func (s *Store) SetCustomerPoints(_ context.Context, id string, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, exists := s.customersByID[id]
	if !exists {
		return store.ErrNotFound
	}
	customer.LoyaltyPoints = points
	s.customersByID[id] = customer
	return nil
}

func (s *Store) CreateLoyaltyTransaction(_ context.Context, tx domain.LoyaltyTransaction) (*domain.LoyaltyTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customersByID[tx.CustomerID]; !exists {
		return nil, store.ErrNotFound
	}
	if tx.ID == "" {
		tx.ID = xid.New("loyal")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	s.loyaltyLedger = append(s.loyaltyLedger, tx)
	copyTx := tx
	return &copyTx, nil
}

func (s *Store) ListLoyaltyTransactions(_ context.Context, customerID string, limit int) ([]domain.LoyaltyTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.LoyaltyTransaction, 0, 32)
	for _, tx := range s.loyaltyLedger {
		if tx.CustomerID != customerID {
			continue
		}
		result = append(result, tx)
	}
	slices.SortFunc(result, func(a, b domain.LoyaltyTransaction) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) SumEarnedPointsSince(_ context.Context, customerID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, tx := range s.loyaltyLedger {
		if tx.CustomerID != customerID || tx.Type != domain.LoyaltyTypeEarn {
			continue
		}
		if tx.CreatedAt.Before(since) {
			continue
		}
		total += tx.Points
	}
	return total, nil
}

func (s *Store) SumLoyaltyPoints(_ context.Context, customerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, tx := range s.loyaltyLedger {
		if tx.CustomerID != customerID {
			continue
		}
		total += tx.Points
	}
	return total, nil
}

// --- cash shifts ---

func (s *Store) CreateShift(_ context.Context, shift domain.CashShift) (*domain.CashShift, error) {
	if strings.TrimSpace(shift.UserID) == "" {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.openShiftByUser[shift.UserID]; exists {
		return nil, store.ErrConflict
	}
	if shift.ID == "" {
		shift.ID = xid.New("shift")
	}
	if shift.ShiftStart.IsZero() {
		shift.ShiftStart = time.Now().UTC()
	}
	shift.Status = domain.ShiftStatusOpen
	shift.ShiftEnd = nil

	s.shiftsByID[shift.ID] = shift
	s.openShiftByUser[shift.UserID] = shift.ID
	copyShift := shift
	return &copyShift, nil
}

func (s *Store) GetShift(_ context.Context, id string) (*domain.CashShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shift, exists := s.shiftsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyShift := shift
	return &copyShift, nil
}

func (s *Store) GetOpenShiftByUser(_ context.Context, userID string) (*domain.CashShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shiftID, exists := s.openShiftByUser[userID]
	if !exists {
		return nil, store.ErrNotFound
	}
	shift, exists := s.shiftsByID[shiftID]
	if !exists || shift.Status != domain.ShiftStatusOpen {
		return nil, store.ErrNotFound
	}
	copyShift := shift
	return &copyShift, nil
}

func (s *Store) CloseShift(_ context.Context, shift domain.CashShift) (*domain.CashShift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.shiftsByID[shift.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if existing.Status != domain.ShiftStatusOpen {
		return nil, store.ErrConflict
	}

	shift.Status = domain.ShiftStatusClosed
	s.shiftsByID[shift.ID] = shift
	delete(s.openShiftByUser, existing.UserID)
	copyShift := shift
	return &copyShift, nil
}

// --- audit ---

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, branchID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if branchID != "" && entry.BranchID != branchID {
			continue
		}
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}
	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// --- auth accounts ---

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrValidation
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrConflict
	}
	user.Username = username
	if user.Role == "" {
		user.Role = "cashier"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrValidation
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

// --- helpers ---

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneOrder(src *domain.Order) *domain.Order {
	if src == nil {
		return nil
	}
	dup := *src
	items := make([]domain.OrderItem, len(src.Items))
	copy(items, src.Items)
	dup.Items = items
	if src.ClosedAt != nil {
		at := src.ClosedAt.UTC()
		dup.ClosedAt = &at
	}
	return &dup
}
