package repository

import (
	"context"
	"time"

	"shopcore/internal/model"

	"github.com/google/uuid"
)

// ProductRepository defines read access to the catalog boundary.
type ProductRepository interface {
	// GetByID retrieves a single product, or nil if absent.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)
}

// InventoryRepository is the ledger of per-product stock counters.
// A reservation is exactly one decrement per (order, product), matched
// by at most one increment when released.
type InventoryRepository interface {
	// Reserve atomically decrements stock for every item of the order,
	// or for none of them. Quantities are summed per product, so variant
	// lines of one product share a single hold. Returns the
	// post-decrement product rows, aligned with items, so callers can
	// snapshot prices and raise low-stock alerts. Calling it again for
	// an order that already holds its reservation is a no-op.
	Reserve(ctx context.Context, orderID uuid.UUID, items []model.OrderItem) ([]model.Product, error)

	// Release returns all stock still held by the order and marks the
	// reservation released. Safe to call any number of times; stock is
	// adjusted exactly once. Returns how many product holds were
	// released.
	Release(ctx context.Context, orderID uuid.UUID) (int, error)

	// HeldCount reports how many per-product holds the order still has.
	HeldCount(ctx context.Context, orderID uuid.UUID) (int, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// Create inserts the order and its items in one transaction.
	Create(ctx context.Context, order *model.Order) error

	// GetByID retrieves an order with its items, or nil if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// Delete removes the order and its items. Used only by the
	// checkout compensation and timeout-cancellation paths.
	Delete(ctx context.Context, id uuid.UUID) error

	// UpdateStatus persists status and fulfillment flags.
	UpdateStatus(ctx context.Context, order *model.Order) error

	// MarkPaid persists status and payment flags.
	MarkPaid(ctx context.Context, order *model.Order) error

	// ListByUser returns a page of the user's orders, newest first.
	ListByUser(ctx context.Context, userID string, page, limit int) (*model.OrderPage, error)

	// ListAll returns a page of every order, newest first, optionally
	// filtered by status (empty status matches all).
	ListAll(ctx context.Context, status model.Status, page, limit int) (*model.OrderPage, error)

	// ListExpiredPending returns ids of orders still pending on a
	// deferred payment method and created before the cutoff.
	ListExpiredPending(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

// NotificationRepository defines the durable notification log.
type NotificationRepository interface {
	// Create appends a notification record.
	Create(ctx context.Context, n *model.Notification) error

	// GetByID retrieves a notification, or nil if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error)

	// ListFor returns the newest notifications visible to the user:
	// targeted at them, at their role, or global, and created no
	// earlier than their account.
	ListFor(ctx context.Context, user *model.User, limit int) ([]model.Notification, error)

	// UnreadCountFor counts visible notifications the user has not read.
	UnreadCountFor(ctx context.Context, user *model.User) (int, error)

	// MarkRead records that the user read the notification. Idempotent.
	MarkRead(ctx context.Context, notificationID uuid.UUID, userID string) error

	// MarkAllRead marks every visible notification read for the user.
	// Idempotent.
	MarkAllRead(ctx context.Context, user *model.User) error
}

// UserRepository defines read access to account records.
type UserRepository interface {
	// GetByID retrieves a user, or nil if absent.
	GetByID(ctx context.Context, id string) (*model.User, error)
}
