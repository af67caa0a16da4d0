package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storefront-service/internal/models"
)

// CreateOrder creates a new order
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (id, customer_id, address_id, total_amount, discount_amount,
		                    shipping_amount, coupon_code, status, payment_status,
		                    preference_id, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	row := s.db.QueryRowxContext(ctx, query,
		order.ID, order.CustomerID, order.AddressID, order.TotalAmount, order.DiscountAmount,
		order.ShippingAmount, order.CouponCode, order.Status, order.PaymentStatus,
		order.PreferenceID, order.IdempotencyKey)
	return row.Scan(&order.CreatedAt, &order.UpdatedAt)
}

// GetOrderByID retrieves an order by its primary identifier
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByPreferenceID retrieves an order by the gateway correlation token
func (s *Store) GetOrderByPreferenceID(ctx context.Context, preferenceID string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE preference_id = $1", preferenceID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order with preference %s: %w", preferenceID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByPaymentExternalID retrieves an order by the gateway payment identifier
func (s *Store) GetOrderByPaymentExternalID(ctx context.Context, externalID string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE payment_external_id = $1", externalID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order with payment %s: %w", externalID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByIdempotencyKey retrieves an order by checkout idempotency key.
// Returns (nil, nil) when no order exists for the key.
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE idempotency_key = $1", key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderPayment writes the gateway outcome onto the order in a single
// statement. The update is conditional on the payment status the caller read,
// so a concurrent webhook cannot be silently overwritten; zero rows affected
// means the caller lost the race and must re-read.
func (s *Store) UpdateOrderPayment(ctx context.Context, orderID string,
	from, to models.PaymentStatus, externalID, method string) (bool, error) {

	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = $1, payment_external_id = $2, payment_method = $3, updated_at = NOW()
		WHERE id = $4 AND payment_status = $5`,
		to, externalID, method, orderID, from)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// UpdateOrderStatus updates the order lifecycle status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	return nil
}

// ListOrders retrieves orders for the admin back office, optionally by status
func (s *Store) ListOrders(ctx context.Context, status models.OrderStatus, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	if status != "" {
		err := s.db.SelectContext(ctx, &orders,
			"SELECT * FROM orders WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
			status, limit, offset)
		return orders, err
	}
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	return orders, err
}

// ListOrdersByCustomer retrieves a customer's orders, newest first
func (s *Store) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE customer_id = $1 ORDER BY created_at DESC", customerID)
	return orders, err
}

// ListStalePendingOrders retrieves orders whose payment is still pending after
// the given age. The reconcile sweep feeds these to the fallback poller.
func (s *Store) ListStalePendingOrders(ctx context.Context, olderThan time.Duration, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, `
		SELECT * FROM orders
		WHERE payment_status = $1 AND created_at < NOW() - $2::interval
		ORDER BY created_at
		LIMIT $3`,
		models.PaymentStatusPending, fmt.Sprintf("%d seconds", int(olderThan.Seconds())), limit)
	return orders, err
}

// StatusProjection reads the normalized status view for an order
func (s *Store) StatusProjection(ctx context.Context, orderID string) (*models.StatusProjection, error) {
	var proj models.StatusProjection
	err := s.db.GetContext(ctx, &proj,
		"SELECT id, status, payment_status, payment_external_id, updated_at FROM orders WHERE id = $1",
		orderID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	proj.IsPaid = proj.PaymentStatus == models.PaymentStatusApproved
	proj.IsConfirmed = proj.Status == models.OrderStatusConfirmed
	return &proj, nil
}

// SalesSummary aggregates paid order totals since a point in time (admin dashboard)
type SalesSummary struct {
	OrderCount   int64 `db:"order_count" json:"order_count"`
	TotalRevenue int64 `db:"total_revenue" json:"total_revenue"`
}

// GetSalesSummary aggregates confirmed-or-later orders created since the cutoff
func (s *Store) GetSalesSummary(ctx context.Context, since time.Time) (*SalesSummary, error) {
	var summary SalesSummary
	err := s.db.GetContext(ctx, &summary, `
		SELECT COUNT(*) AS order_count, COALESCE(SUM(total_amount), 0) AS total_revenue
		FROM orders
		WHERE payment_status = $1 AND created_at >= $2`,
		models.PaymentStatusApproved, since)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// CreateOrderItem creates a new order item
func (s *Store) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	return s.db.GetContext(ctx, &item.ID, query,
		item.OrderID, item.ProductID, item.Quantity, item.UnitPrice)
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1", orderID)
	return items, err
}
