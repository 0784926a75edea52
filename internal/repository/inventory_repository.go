package repository

import (
	"context"
	"errors"
	"fmt"

	"shopcore/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// inventoryRepository implements InventoryRepository using PostgreSQL.
//
// Stock mutation is always a conditional update inside one transaction,
// never a read-then-write in two round trips, so interleaved checkouts
// cannot lose updates or drive a counter negative. Each hold is recorded
// in the reservations table; flipping RESERVED to RELEASED is what makes
// release idempotent per order.
type inventoryRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewInventoryRepository creates a new PostgreSQL-backed inventory ledger.
func NewInventoryRepository(pool *pgxpool.Pool, logger zerolog.Logger) InventoryRepository {
	return &inventoryRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "inventory").Logger(),
	}
}

// hold is the aggregated stock claim for one product of an order.
// Reservations are keyed per (order, product), so line items that split
// one product across variants must collapse into a single hold before
// the ledger is touched.
type hold struct {
	productID string
	quantity  int
}

// aggregateHolds sums item quantities per product, preserving the order
// products first appear in.
func aggregateHolds(items []model.OrderItem) []hold {
	index := make(map[string]int, len(items))
	holds := make([]hold, 0, len(items))
	for _, item := range items {
		if i, ok := index[item.ProductID]; ok {
			holds[i].quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(holds)
		holds = append(holds, hold{productID: item.ProductID, quantity: item.Quantity})
	}
	return holds
}

// Reserve decrements stock for every item of the order, all or nothing.
// Quantities are aggregated per product first, so two variant lines of
// one product become one reservation row holding their combined amount.
// If any product lacks stock the whole transaction rolls back and an
// INSUFFICIENT_STOCK error naming the product is returned.
func (r *inventoryRepository) Reserve(ctx context.Context, orderID uuid.UUID, items []model.OrderItem) ([]model.Product, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin reservation transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	holds := aggregateHolds(items)

	// Idempotency short-circuit: if the order already holds its full
	// reservation, do not decrement again.
	var held int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM reservations WHERE order_id = $1 AND status = 'RESERVED'`,
		orderID,
	).Scan(&held)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing reservation: %w", err)
	}
	if held == len(holds) && held > 0 {
		r.logger.Debug().Str("order_id", orderID.String()).Msg("reservation already held")
		return r.productsForItems(ctx, tx, items)
	}

	for _, h := range holds {
		var name string
		var stock int
		err := tx.QueryRow(ctx,
			`SELECT name, stock FROM products WHERE id = $1 FOR UPDATE`,
			h.productID,
		).Scan(&name, &stock)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, model.ErrProductNotFound(h.productID)
			}
			return nil, fmt.Errorf("failed to lock product %s: %w", h.productID, err)
		}

		if stock < h.quantity {
			r.logger.Warn().
				Str("order_id", orderID.String()).
				Str("product_id", h.productID).
				Int("requested", h.quantity).
				Int("available", stock).
				Msg("insufficient stock")
			return nil, model.ErrInsufficientStock(name)
		}

		ct, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1 AND stock >= $2`,
			h.productID, h.quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to decrement stock for %s: %w", h.productID, err)
		}
		if ct.RowsAffected() != 1 {
			return nil, model.ErrInsufficientStock(name)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO reservations (order_id, product_id, quantity, status)
			VALUES ($1, $2, $3, 'RESERVED')
			ON CONFLICT (order_id, product_id) DO NOTHING
		`, orderID, h.productID, h.quantity); err != nil {
			return nil, fmt.Errorf("failed to record reservation: %w", err)
		}
	}

	products, err := r.productsForItems(ctx, tx, items)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit reservation: %w", err)
	}

	r.logger.Debug().
		Str("order_id", orderID.String()).
		Int("items", len(items)).
		Msg("stock reserved")

	return products, nil
}

// Release returns held stock to the ledger and flips the reservation
// rows to RELEASED. A release is always accepted; running it again, or
// concurrently from the timer and the sweep, adjusts stock only once.
func (r *inventoryRepository) Release(ctx context.Context, orderID uuid.UUID) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to begin release transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE products p
		SET stock = p.stock + r.quantity, updated_at = NOW()
		FROM reservations r
		WHERE r.order_id = $1 AND r.status = 'RESERVED' AND p.id = r.product_id
	`, orderID); err != nil {
		return 0, fmt.Errorf("failed to restore stock: %w", err)
	}

	ct, err := tx.Exec(ctx,
		`UPDATE reservations SET status = 'RELEASED' WHERE order_id = $1 AND status = 'RESERVED'`,
		orderID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark reservation released: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit release: %w", err)
	}

	released := int(ct.RowsAffected())
	if released > 0 {
		r.logger.Debug().
			Str("order_id", orderID.String()).
			Int("lines", released).
			Msg("stock released")
	}
	return released, nil
}

// HeldCount reports how many per-product holds the order still has.
func (r *inventoryRepository) HeldCount(ctx context.Context, orderID uuid.UUID) (int, error) {
	var held int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM reservations WHERE order_id = $1 AND status = 'RESERVED'`,
		orderID,
	).Scan(&held)
	if err != nil {
		return 0, fmt.Errorf("failed to count held reservations: %w", err)
	}
	return held, nil
}

// productsForItems loads the (possibly just-updated) product rows for
// the order's items inside the same transaction. The result is aligned
// with items: products[i] is the row for items[i].ProductID.
func (r *inventoryRepository) productsForItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) ([]model.Product, error) {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	rows, err := tx.Query(ctx, `
		SELECT id, name, price, stock, category, created_at, updated_at
		FROM products
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query reserved products: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]model.Product, len(items))
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Category, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	products := make([]model.Product, len(items))
	for i, item := range items {
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, model.ErrProductNotFound(item.ProductID)
		}
		products[i] = p
	}
	return products, nil
}
