package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"dapurpos/backend/internal/domain"
	"dapurpos/backend/internal/store"
	"dapurpos/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// --- catalog ---

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var product domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, price, active
		FROM products
		WHERE id = $1
	`, id).Scan(&product.ID, &product.Name, &product.Price, &product.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price, active
		FROM products
		WHERE active = true
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Active); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetRecipeLines(ctx context.Context, productID string) ([]domain.RecipeLine, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, inventory_item_id, quantity_required, wastage_percent
		FROM recipe_lines
		WHERE product_id = $1
		ORDER BY inventory_item_id
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.RecipeLine, 0, 8)
	for rows.Next() {
		var line domain.RecipeLine
		if err := rows.Scan(&line.ProductID, &line.InventoryItemID, &line.QuantityRequired, &line.WastagePercent); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// --- inventory ---

func (s *Store) GetInventoryItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := s.db.QueryRowContext(ctx, `
		SELECT id, branch_id, name, unit, current_stock, min_stock, cost_per_unit
		FROM inventory_items
		WHERE id = $1
	`, id).Scan(&item.ID, &item.BranchID, &item.Name, &item.Unit, &item.CurrentStock, &item.MinStock, &item.CostPerUnit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListInventoryItems(ctx context.Context, branchID string) ([]domain.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, branch_id, name, unit, current_stock, min_stock, cost_per_unit
		FROM inventory_items
		WHERE ($1 = '' OR branch_id = $1)
		ORDER BY name
	`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.InventoryItem, 0, 64)
	for rows.Next() {
		var item domain.InventoryItem
		if err := rows.Scan(&item.ID, &item.BranchID, &item.Name, &item.Unit, &item.CurrentStock, &item.MinStock, &item.CostPerUnit); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// DeductStock clamps at zero inside a single UPDATE so concurrent deductions
// never race the floor.
func (s *Store) DeductStock(ctx context.Context, itemID string, qty decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if qty.Sign() <= 0 {
		return decimal.Zero, decimal.Zero, store.ErrValidation
	}

	var old, updated decimal.Decimal
	err := s.db.QueryRowContext(ctx, `
		UPDATE inventory_items
		SET current_stock = GREATEST(0, current_stock - $2), updated_at = now()
		WHERE id = $1
		RETURNING (SELECT current_stock FROM inventory_items WHERE id = $1), current_stock
	`, itemID, qty).Scan(&old, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, decimal.Zero, store.ErrNotFound
		}
		return decimal.Zero, decimal.Zero, err
	}
	return old, updated, nil
}

func (s *Store) CreditStock(ctx context.Context, itemID string, qty decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if qty.Sign() <= 0 {
		return decimal.Zero, decimal.Zero, store.ErrValidation
	}

	var old, updated decimal.Decimal
	err := s.db.QueryRowContext(ctx, `
		UPDATE inventory_items
		SET current_stock = current_stock + $2, updated_at = now()
		WHERE id = $1
		RETURNING current_stock - $2, current_stock
	`, itemID, qty).Scan(&old, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, decimal.Zero, store.ErrNotFound
		}
		return decimal.Zero, decimal.Zero, err
	}
	return old, updated, nil
}

func (s *Store) CreateInventoryLog(ctx context.Context, entry domain.InventoryLogEntry) error {
	if entry.ID == "" {
		entry.ID = xid.New("invlog")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_logs (id, inventory_item_id, old_stock, new_stock, quantity_delta, reason, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, entry.ID, entry.InventoryItemID, entry.OldStock, entry.NewStock, entry.QuantityDelta, entry.Reason, entry.CreatedAt)
	return err
}

func (s *Store) ListInventoryLogs(ctx context.Context, itemID string, limit int) ([]domain.InventoryLogEntry, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, inventory_item_id, old_stock, new_stock, quantity_delta, reason, created_at
		FROM inventory_logs
		WHERE inventory_item_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, itemID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.InventoryLogEntry, 0, limit)
	for rows.Next() {
		var entry domain.InventoryLogEntry
		if err := rows.Scan(&entry.ID, &entry.InventoryItemID, &entry.OldStock, &entry.NewStock, &entry.QuantityDelta, &entry.Reason, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// --- alerts ---

// CreateAlertIfAbsent relies on the partial unique index
// inventory_alerts_one_open_per_item ON inventory_alerts (inventory_item_id)
// WHERE NOT resolved, so concurrent evaluators cannot double-insert.
func (s *Store) CreateAlertIfAbsent(ctx context.Context, alert domain.InventoryAlert) (bool, error) {
	if alert.ID == "" {
		alert.ID = xid.New("alert")
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_alerts (id, inventory_item_id, branch_id, item_name, current_stock, min_stock, unit, severity, resolved, alert_reason, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,false,$9,$10)
		ON CONFLICT (inventory_item_id) WHERE NOT resolved DO NOTHING
	`, alert.ID, alert.InventoryItemID, alert.BranchID, alert.ItemName, alert.CurrentStock, alert.MinStock, alert.Unit, alert.Severity, alert.AlertReason, alert.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *Store) ResolveAlert(ctx context.Context, alertID string, at time.Time) (*domain.InventoryAlert, error) {
	var alert domain.InventoryAlert
	err := s.db.QueryRowContext(ctx, `
		UPDATE inventory_alerts
		SET resolved = true, resolved_at = $2
		WHERE id = $1 AND NOT resolved
		RETURNING id, inventory_item_id, branch_id, item_name, current_stock, min_stock, unit, severity, resolved, alert_reason, created_at, resolved_at
	`, alertID, at.UTC()).Scan(&alert.ID, &alert.InventoryItemID, &alert.BranchID, &alert.ItemName, &alert.CurrentStock, &alert.MinStock, &alert.Unit, &alert.Severity, &alert.Resolved, &alert.AlertReason, &alert.CreatedAt, &alert.ResolvedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			if checkErr := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM inventory_alerts WHERE id = $1)`, alertID).Scan(&exists); checkErr == nil && exists {
				return nil, store.ErrConflict
			}
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &alert, nil
}

func (s *Store) ResolveAlertsForItem(ctx context.Context, itemID string, at time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE inventory_alerts
		SET resolved = true, resolved_at = $2
		WHERE inventory_item_id = $1 AND NOT resolved
	`, itemID, at.UTC())
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *Store) ListActiveAlerts(ctx context.Context, branchID string) ([]domain.InventoryAlert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, inventory_item_id, branch_id, item_name, current_stock, min_stock, unit, severity, resolved, alert_reason, created_at, resolved_at
		FROM inventory_alerts
		WHERE NOT resolved AND ($1 = '' OR branch_id = $1)
		ORDER BY created_at DESC, id
	`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := make([]domain.InventoryAlert, 0, 32)
	for rows.Next() {
		var alert domain.InventoryAlert
		if err := rows.Scan(&alert.ID, &alert.InventoryItemID, &alert.BranchID, &alert.ItemName, &alert.CurrentStock, &alert.MinStock, &alert.Unit, &alert.Severity, &alert.Resolved, &alert.AlertReason, &alert.CreatedAt, &alert.ResolvedAt); err != nil {
			return nil, err
		}
		alert.CreatedAt = alert.CreatedAt.UTC()
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return alerts, nil
}

// --- orders ---

func (s *Store) CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	if len(order.Items) == 0 {
		return nil, store.ErrValidation
	}
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

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, branch_id, table_id, customer_id, status, payment_status, payment_method, shift_id, subtotal, tax_amount, total_amount, inventory_applied, cancel_reason, created_at, closed_at)
		VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,NULLIF($7,''),NULLIF($8,''),$9,$10,$11,$12,NULLIF($13,''),$14,$15)
	`, order.ID, order.BranchID, order.TableID, order.CustomerID, order.Status, order.PaymentStatus, order.PaymentMethod, order.ShiftID,
		order.Subtotal, order.TaxAmount, order.TotalAmount, order.InventoryApplied, order.CancelReason, order.CreatedAt, order.ClosedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, price_at_order, notes)
			VALUES ($1,$2,$3,$4,$5)
		`, order.ID, item.ProductID, item.Quantity, item.PriceAtOrder, item.Notes)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := order
	return &created, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	var customerID, paymentMethod, shiftID, cancelReason sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, branch_id, table_id, customer_id, status, payment_status, payment_method, shift_id, subtotal, tax_amount, total_amount, inventory_applied, cancel_reason, created_at, closed_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.BranchID, &order.TableID, &customerID, &order.Status, &order.PaymentStatus, &paymentMethod, &shiftID,
		&order.Subtotal, &order.TaxAmount, &order.TotalAmount, &order.InventoryApplied, &cancelReason, &order.CreatedAt, &order.ClosedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	order.CustomerID = customerID.String
	order.PaymentMethod = paymentMethod.String
	order.ShiftID = shiftID.String
	order.CancelReason = cancelReason.String
	order.CreatedAt = order.CreatedAt.UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, product_id, quantity, price_at_order, notes
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.OrderID, &item.ProductID, &item.Quantity, &item.PriceAtOrder, &item.Notes); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status string, cancelReason string, closedAt *time.Time) (*domain.Order, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2,
		    cancel_reason = COALESCE(NULLIF($3,''), cancel_reason),
		    closed_at = COALESCE($4, closed_at),
		    updated_at = now()
		WHERE id = $1
	`, id, status, cancelReason, closedAt)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetOrder(ctx, id)
}

func (s *Store) SetOrderInventoryApplied(ctx context.Context, id string, applied bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET inventory_applied = $2, updated_at = now() WHERE id = $1
	`, id, applied)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) MarkOrderPaid(ctx context.Context, id string, method string, shiftID string) (*domain.Order, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = $2, payment_method = $3, shift_id = NULLIF($4,''), updated_at = now()
		WHERE id = $1 AND payment_status <> $2
	`, id, domain.PaymentStatusPaid, method, shiftID)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		var exists bool
		if checkErr := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); checkErr == nil && exists {
			return nil, store.ErrConflict
		}
		return nil, store.ErrNotFound
	}
	return s.GetOrder(ctx, id)
}

func (s *Store) SumOrderPaymentsByShift(ctx context.Context, shiftID string) (map[string]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payment_method, COALESCE(SUM(total_amount), 0)
		FROM orders
		WHERE shift_id = $1 AND payment_status = $2 AND status <> $3
		GROUP BY payment_method
	`, shiftID, domain.PaymentStatusPaid, domain.OrderStatusCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sums := make(map[string]decimal.Decimal)
	for rows.Next() {
		var method string
		var total decimal.Decimal
		if err := rows.Scan(&method, &total); err != nil {
			return nil, err
		}
		sums[method] = total
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sums, nil
}

// --- carts ---

func (s *Store) SaveCart(ctx context.Context, username string, lines []domain.CartLine) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE username = $1`, username); err != nil {
		return err
	}
	for _, line := range lines {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cart_lines (username, product_id, quantity, notes)
			VALUES ($1,$2,$3,$4)
		`, username, line.ProductID, line.Quantity, line.Notes)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) GetCart(ctx context.Context, username string) ([]domain.CartLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, quantity, notes
		FROM cart_lines
		WHERE username = $1
		ORDER BY product_id
	`, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.CartLine, 0, 8)
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ProductID, &line.Quantity, &line.Notes); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Store) ClearCart(ctx context.Context, username string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cart_lines WHERE username = $1`, username)
	return err
}

// --- customers and loyalty ---

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var customer domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, email, loyalty_points
		FROM customers
		WHERE id = $1
	`, id).Scan(&customer.ID, &customer.Name, &customer.Phone, &customer.Email, &customer.LoyaltyPoints)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

func (s *Store) SetCustomerPoints(ctx context.Context, id string, points int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE customers SET loyalty_points = $2, updated_at = now() WHERE id = $1
	`, id, points)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateLoyaltyTransaction(ctx context.Context, tx domain.LoyaltyTransaction) (*domain.LoyaltyTransaction, error) {
	if tx.ID == "" {
		tx.ID = xid.New("loyal")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO loyalty_transactions (id, customer_id, points, transaction_type, description, order_id, is_suspicious, alert_reason, created_at)
		VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7,NULLIF($8,''),$9)
	`, tx.ID, tx.CustomerID, tx.Points, tx.Type, tx.Description, tx.OrderID, tx.IsSuspicious, tx.AlertReason, tx.CreatedAt)
	if err != nil {
		return nil, err
	}
	created := tx
	return &created, nil
}

func (s *Store) ListLoyaltyTransactions(ctx context.Context, customerID string, limit int) ([]domain.LoyaltyTransaction, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, points, transaction_type, description, COALESCE(order_id, ''), is_suspicious, COALESCE(alert_reason, ''), created_at
		FROM loyalty_transactions
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.LoyaltyTransaction, 0, limit)
	for rows.Next() {
		var tx domain.LoyaltyTransaction
		if err := rows.Scan(&tx.ID, &tx.CustomerID, &tx.Points, &tx.Type, &tx.Description, &tx.OrderID, &tx.IsSuspicious, &tx.AlertReason, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.CreatedAt = tx.CreatedAt.UTC()
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) SumEarnedPointsSince(ctx context.Context, customerID string, since time.Time) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(points), 0)
		FROM loyalty_transactions
		WHERE customer_id = $1 AND transaction_type = $2 AND created_at >= $3
	`, customerID, domain.LoyaltyTypeEarn, since.UTC()).Scan(&total)
	return total, err
}

func (s *Store) SumLoyaltyPoints(ctx context.Context, customerID string) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(points), 0)
		FROM loyalty_transactions
		WHERE customer_id = $1
	`, customerID).Scan(&total)
	return total, err
}

// --- cash shifts ---

// CreateShift relies on the partial unique index cash_shifts_one_open_per_user
// ON cash_shifts (user_id) WHERE status = 'open'.
func (s *Store) CreateShift(ctx context.Context, shift domain.CashShift) (*domain.CashShift, error) {
	if shift.UserID == "" {
		return nil, store.ErrValidation
	}
	if shift.ID == "" {
		shift.ID = xid.New("shift")
	}
	if shift.ShiftStart.IsZero() {
		shift.ShiftStart = time.Now().UTC()
	}
	shift.Status = domain.ShiftStatusOpen

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cash_shifts (id, user_id, shift_start, initial_cash, status)
		VALUES ($1,$2,$3,$4,$5)
	`, shift.ID, shift.UserID, shift.ShiftStart, shift.InitialCash, shift.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := shift
	return &created, nil
}

func (s *Store) GetShift(ctx context.Context, id string) (*domain.CashShift, error) {
	var shift domain.CashShift
	var notes sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, shift_start, shift_end, initial_cash,
		       COALESCE(total_cash_sales, 0), COALESCE(total_card_sales, 0), COALESCE(total_other_sales, 0),
		       COALESCE(expected_cash, 0), COALESCE(actual_cash, 0), COALESCE(difference, 0), status, notes
		FROM cash_shifts
		WHERE id = $1
	`, id).Scan(&shift.ID, &shift.UserID, &shift.ShiftStart, &shift.ShiftEnd, &shift.InitialCash,
		&shift.TotalCashSales, &shift.TotalCardSales, &shift.TotalOtherSales,
		&shift.ExpectedCash, &shift.ActualCash, &shift.Difference, &shift.Status, &notes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	shift.Notes = notes.String
	shift.ShiftStart = shift.ShiftStart.UTC()
	return &shift, nil
}

func (s *Store) GetOpenShiftByUser(ctx context.Context, userID string) (*domain.CashShift, error) {
	var shift domain.CashShift
	var notes sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, shift_start, shift_end, initial_cash,
		       COALESCE(total_cash_sales, 0), COALESCE(total_card_sales, 0), COALESCE(total_other_sales, 0),
		       COALESCE(expected_cash, 0), COALESCE(actual_cash, 0), COALESCE(difference, 0), status, notes
		FROM cash_shifts
		WHERE user_id = $1 AND status = $2
	`, userID, domain.ShiftStatusOpen).Scan(&shift.ID, &shift.UserID, &shift.ShiftStart, &shift.ShiftEnd, &shift.InitialCash,
		&shift.TotalCashSales, &shift.TotalCardSales, &shift.TotalOtherSales,
		&shift.ExpectedCash, &shift.ActualCash, &shift.Difference, &shift.Status, &notes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	shift.Notes = notes.String
	shift.ShiftStart = shift.ShiftStart.UTC()
	return &shift, nil
}

func (s *Store) CloseShift(ctx context.Context, shift domain.CashShift) (*domain.CashShift, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE cash_shifts
		SET shift_end = $2, total_cash_sales = $3, total_card_sales = $4, total_other_sales = $5,
		    expected_cash = $6, actual_cash = $7, difference = $8, status = $9, notes = NULLIF($10,'')
		WHERE id = $1 AND status = $11
	`, shift.ID, shift.ShiftEnd, shift.TotalCashSales, shift.TotalCardSales, shift.TotalOtherSales,
		shift.ExpectedCash, shift.ActualCash, shift.Difference, domain.ShiftStatusClosed, shift.Notes, domain.ShiftStatusOpen)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		var exists bool
		if checkErr := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM cash_shifts WHERE id = $1)`, shift.ID).Scan(&exists); checkErr == nil && exists {
			return nil, store.ErrConflict
		}
		return nil, store.ErrNotFound
	}
	shift.Status = domain.ShiftStatusClosed
	closed := shift
	return &closed, nil
}

// --- audit ---

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, branch_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.BranchID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, branchID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, branch_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE ($1 = '' OR branch_id = $1) AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, branchID, from.UTC(), to.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.BranchID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// --- auth accounts ---

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || user.Password == "" {
		return store.ErrValidation
	}
	role := user.Role
	if role == "" {
		role = "cashier"
	}
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, role, active, created_at)
		VALUES ($1,$2,$3,true,$4)
	`, username, user.Password, role, createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password_hash, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return store.ErrValidation
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
