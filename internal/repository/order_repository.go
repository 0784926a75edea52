package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"shopcore/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// Create inserts the order and its items in one transaction.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, user_id, shipping_address, payment_method,
			subtotal, shipping_price, tax_price, total,
			status, is_paid, is_delivered, created_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		order.ID, order.UserID, order.ShippingAddress, order.PaymentMethod,
		order.Subtotal, order.ShippingPrice, order.TaxPrice, order.Total,
		order.Status, order.IsPaid, order.IsDelivered, order.CreatedBy,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to insert order")
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, price, color, size)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, item.ID, order.ID, item.ProductID, item.Quantity, item.Price, item.Color, item.Size)
		if err != nil {
			r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to insert order item")
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	return nil
}

const orderColumns = `
	id, user_id, shipping_address, payment_method,
	subtotal, shipping_price, tax_price, total,
	status, is_paid, paid_at, COALESCE(payment_ref, ''),
	is_delivered, delivered_at, created_by, created_at, updated_at`

func scanOrder(row pgx.Row, o *model.Order) error {
	return row.Scan(
		&o.ID, &o.UserID, &o.ShippingAddress, &o.PaymentMethod,
		&o.Subtotal, &o.ShippingPrice, &o.TaxPrice, &o.Total,
		&o.Status, &o.IsPaid, &o.PaidAt, &o.PaymentRef,
		&o.IsDelivered, &o.DeliveredAt, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	err := scanOrder(r.pool.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE id = $1`, id), &order)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	items, err := r.itemsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return &order, nil
}

func (r *orderRepository) itemsFor(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, product_id, quantity, price, COALESCE(color, ''), COALESCE(size, '')
		FROM order_items
		WHERE order_id = $1
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price, &item.Color, &item.Size); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// Delete removes the order; items follow via ON DELETE CASCADE.
func (r *orderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to delete order")
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return nil
}

// UpdateStatus persists status and fulfillment flags.
func (r *orderRepository) UpdateStatus(ctx context.Context, order *model.Order) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE orders
		SET status = $2, is_delivered = $3, delivered_at = $4, updated_at = NOW()
		WHERE id = $1
	`, order.ID, order.Status, order.IsDelivered, order.DeliveredAt)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return nil
}

// MarkPaid persists status and payment flags.
func (r *orderRepository) MarkPaid(ctx context.Context, order *model.Order) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE orders
		SET status = $2, is_paid = $3, paid_at = $4, payment_ref = $5, updated_at = NOW()
		WHERE id = $1
	`, order.ID, order.Status, order.IsPaid, order.PaidAt, order.PaymentRef)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to mark order paid")
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	return nil
}

// ListByUser returns a page of the user's orders, newest first, with a
// status summary over all of the user's orders.
func (r *orderRepository) ListByUser(ctx context.Context, userID string, page, limit int) (*model.OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	counts := map[model.Status]int{}
	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM orders WHERE user_id = $1 GROUP BY status`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarise order statuses: %w", err)
	}
	for rows.Next() {
		var s model.Status
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[s] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status counts: %w", err)
	}

	rows, err = r.pool.Query(ctx, `
		SELECT`+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	for i := range orders {
		items, err := r.itemsFor(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return &model.OrderPage{
		Orders:       orders,
		Total:        total,
		Page:         page,
		TotalPages:   int(math.Ceil(float64(total) / float64(limit))),
		StatusCounts: counts,
	}, nil
}

// ListAll returns a page of every order, newest first. A non-empty
// status narrows the page and the total; the status summary always
// spans all orders.
func (r *orderRepository) ListAll(ctx context.Context, status model.Status, page, limit int) (*model.OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE ($1 = '' OR status = $1)`, string(status),
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	counts := map[model.Status]int{}
	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarise order statuses: %w", err)
	}
	for rows.Next() {
		var s model.Status
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[s] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status counts: %w", err)
	}

	rows, err = r.pool.Query(ctx, `
		SELECT`+orderColumns+`
		FROM orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	for i := range orders {
		items, err := r.itemsFor(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return &model.OrderPage{
		Orders:       orders,
		Total:        total,
		Page:         page,
		TotalPages:   int(math.Ceil(float64(total) / float64(limit))),
		StatusCounts: counts,
	}, nil
}

// ListExpiredPending returns ids of orders still pending on a deferred
// payment method and created before the cutoff. The durable created_at
// column is the source of truth for expiry, independent of any
// in-memory timer.
func (r *orderRepository) ListExpiredPending(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id
		FROM orders
		WHERE status = $1 AND payment_method = $2 AND created_at < $3
	`, model.StatusPending, model.PaymentCard, cutoff)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query expired pending orders")
		return nil, fmt.Errorf("failed to query expired pending orders: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan expired order id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
