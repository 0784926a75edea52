// Package service holds the business rules of the order core: checkout
// with compensating rollback, payment finalization, lifecycle
// transitions, reservation expiry, and the notification fan-out.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"shopcore/internal/model"
)

// OrderService defines business logic for the order lifecycle.
type OrderService interface {
	// Checkout reserves stock and creates the order, or does neither.
	Checkout(ctx context.Context, identity model.Identity, req *model.CheckoutRequest) (*model.Order, error)

	// GetOrder returns one order; customers only see their own.
	GetOrder(ctx context.Context, identity model.Identity, orderID uuid.UUID) (*model.Order, error)

	// ListOrders returns a page of the caller's orders, newest first.
	ListOrders(ctx context.Context, identity model.Identity, page, limit int) (*model.OrderPage, error)

	// ListAllOrders returns a page of every order, optionally filtered
	// by status. Staff only.
	ListAllOrders(ctx context.Context, identity model.Identity, status model.Status, page, limit int) (*model.OrderPage, error)

	// FinalizePayment confirms a deferred payment and moves the order
	// to processing. Only valid for a pending card order.
	FinalizePayment(ctx context.Context, identity model.Identity, orderID uuid.UUID, paymentRef string) (*model.Order, error)

	// UpdateStatus applies a lifecycle transition. Staff only.
	UpdateStatus(ctx context.Context, identity model.Identity, orderID uuid.UUID, next model.Status) (*model.Order, error)

	// ExpireOrder cancels a pending deferred-payment order whose window
	// lapsed, returning its stock. No-op when the order already moved on.
	ExpireOrder(ctx context.Context, orderID uuid.UUID) error

	// ExpiredPending lists orders eligible for expiry at the cutoff.
	ExpiredPending(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

// NotificationService defines the durable notification feed plus the
// persist-then-push dispatch used by the order flows.
type NotificationService interface {
	// Notify persists the notification, then pushes it to connected
	// recipients. Push delivery is best-effort; persistence is not.
	Notify(ctx context.Context, n *model.Notification) error

	// Feed returns the notifications visible to the caller with their
	// unread count.
	Feed(ctx context.Context, identity model.Identity, limit int) (*model.NotificationFeed, error)

	// MarkRead records that the caller read one notification.
	MarkRead(ctx context.Context, identity model.Identity, notificationID uuid.UUID) error

	// MarkAllRead marks every visible notification read for the caller.
	MarkAllRead(ctx context.Context, identity model.Identity) error
}

// Pusher is the live delivery channel. Sends never block and never
// fail: an unreachable recipient simply misses the push and reads the
// record later.
type Pusher interface {
	SendToUser(userID string, msg model.PushMessage)
	SendToRoles(msg model.PushMessage, roles ...string)
	Broadcast(msg model.PushMessage)
}

// TimerRegistry arms and disarms per-order expiry timers.
type TimerRegistry interface {
	Arm(orderID uuid.UUID)
	Disarm(orderID uuid.UUID)
}

// OrderEvents publishes order lifecycle events to the stream. All
// methods are fire-and-forget.
type OrderEvents interface {
	OrderCreated(o *model.Order)
	OrderPaid(o *model.Order)
	OrderStatusChanged(o *model.Order, old model.Status)
	OrderCancelled(orderID uuid.UUID, userID, reason string)
}
