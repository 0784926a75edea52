package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"shopcore/internal/model"
	"shopcore/internal/repository"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 50
)

type orderService struct {
	orders    repository.OrderRepository
	products  repository.ProductRepository
	inventory repository.InventoryRepository
	notifier  NotificationService
	timers    TimerRegistry
	events    OrderEvents
	lowStock  int
	logger    zerolog.Logger
}

// NewOrderService creates the order service. lowStock is the threshold
// at or below which a reservation raises an inventory alert.
func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	inventory repository.InventoryRepository,
	notifier NotificationService,
	timers TimerRegistry,
	events OrderEvents,
	lowStock int,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orders:    orders,
		products:  products,
		inventory: inventory,
		notifier:  notifier,
		timers:    timers,
		events:    events,
		lowStock:  lowStock,
		logger:    logger.With().Str("service", "order").Logger(),
	}
}

// Checkout reserves stock for every requested line, then creates the
// order. The two steps are not one transaction, so a failed create
// compensates by releasing the reservation before surfacing the error;
// the caller observes either a complete order or no trace of one.
func (s *orderService) Checkout(ctx context.Context, identity model.Identity, req *model.CheckoutRequest) (*model.Order, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, model.ErrEmptyOrder
	}
	if !req.PaymentMethod.Valid() {
		return nil, model.ErrInvalidPayment
	}

	orderID := uuid.New()
	items := make([]model.OrderItem, len(req.Items))
	for i, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, model.ErrInvalidQuantity
		}
		items[i] = model.OrderItem{
			ID:        uuid.New(),
			OrderID:   orderID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Color:     line.Color,
			Size:      line.Size,
		}
	}

	// Snapshot unit prices from the catalog before touching stock, so a
	// request naming an unknown product fails without opening a write
	// transaction.
	catalog, err := s.catalogFor(ctx, items)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Price = catalog[items[i].ProductID].Price
	}

	products, err := s.inventory.Reserve(ctx, orderID, items)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	order := &model.Order{
		ID:              orderID,
		UserID:          identity.ID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		ShippingPrice:   req.ShippingPrice,
		TaxPrice:        req.TaxPrice,
		Status:          model.StatusPending,
		CreatedBy:       identity.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if !req.PaymentMethod.Deferred() {
		// Nothing left to confirm; the order goes straight to fulfilment.
		order.Status = model.StatusProcessing
	}
	order.RecomputeTotals()

	if err := s.orders.Create(ctx, order); err != nil {
		if _, relErr := s.inventory.Release(ctx, orderID); relErr != nil {
			s.logger.Error().Err(relErr).
				Str("order_id", orderID.String()).
				Msg("compensating release failed, stock may be leaked")
		}
		return nil, err
	}

	if order.PaymentMethod.Deferred() {
		s.timers.Arm(order.ID)
	}

	s.events.OrderCreated(order)
	s.notifyOrderCreated(ctx, order)
	s.notifyLowStock(ctx, products)

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("user_id", order.UserID).
		Str("status", string(order.Status)).
		Float64("total", order.Total).
		Msg("order created")

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, identity model.Identity, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if order.UserID != identity.ID && !identity.IsStaff() {
		return nil, model.ErrNotYourOrder
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, identity model.Identity, page, limit int) (*model.OrderPage, error) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 || limit > maxLimit {
		limit = defaultLimit
	}
	return s.orders.ListByUser(ctx, identity.ID, page, limit)
}

func (s *orderService) ListAllOrders(ctx context.Context, identity model.Identity, status model.Status, page, limit int) (*model.OrderPage, error) {
	if !identity.IsStaff() {
		return nil, model.ErrStaffOnly
	}
	if status != "" && !status.Valid() {
		return nil, model.NewDomainError(model.ErrCodeInvalidOrder, fmt.Sprintf("Unknown status filter: %s", status))
	}
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 || limit > maxLimit {
		limit = defaultLimit
	}
	return s.orders.ListAll(ctx, status, page, limit)
}

// FinalizePayment is idempotent by precondition: only a pending card
// order can settle, and settling moves it out of pending, so a repeat
// call reports an invalid transition without touching anything.
func (s *orderService) FinalizePayment(ctx context.Context, identity model.Identity, orderID uuid.UUID, paymentRef string) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if order.UserID != identity.ID && !identity.IsStaff() {
		return nil, model.ErrNotYourOrder
	}
	if !order.PaymentMethod.Deferred() || order.Status != model.StatusPending {
		return nil, model.ErrInvalidTransition(order.Status, model.StatusProcessing)
	}

	// The reservation is the proof the stock is still held; if expiry
	// raced us and won, the hold is gone and so is the order. Holds are
	// per product, so variant lines of one product count once.
	held, err := s.inventory.HeldCount(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if held < distinctProducts(order.Items) {
		return nil, model.ErrReservationLapsed
	}

	now := time.Now()
	order.Status = model.StatusProcessing
	order.IsPaid = true
	order.PaidAt = &now
	order.PaymentRef = paymentRef
	order.UpdatedAt = now

	if err := s.orders.MarkPaid(ctx, order); err != nil {
		return nil, err
	}

	s.timers.Disarm(order.ID)
	s.events.OrderPaid(order)
	s.notify(ctx, &model.Notification{
		Type:      model.NotificationNewOrderPayment,
		Title:     "Payment received",
		Message:   fmt.Sprintf("Order %s paid, total %.2f", order.ID, order.Total),
		RelatedID: order.ID.String(),
		UserID:    order.UserID,
		Roles:     model.StaffRoles,
	})

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("payment_ref", paymentRef).
		Msg("payment finalized")

	return order, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, identity model.Identity, orderID uuid.UUID, next model.Status) (*model.Order, error) {
	if !identity.IsStaff() {
		return nil, model.ErrStaffOnly
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if !next.Valid() || !model.CanTransition(order.Status, next) {
		return nil, model.ErrInvalidTransition(order.Status, next)
	}

	// Cancellation returns the held stock before the status flips, so a
	// failed release leaves the order retryable instead of leaking stock.
	if next == model.StatusCancelled {
		if _, err := s.inventory.Release(ctx, orderID); err != nil {
			return nil, err
		}
		s.timers.Disarm(orderID)
	}

	old := order.Status
	now := time.Now()
	order.Status = next
	order.UpdatedAt = now
	if next == model.StatusDelivered {
		order.IsDelivered = true
		order.DeliveredAt = &now
	}

	if err := s.orders.UpdateStatus(ctx, order); err != nil {
		return nil, err
	}

	if next == model.StatusCancelled {
		s.events.OrderCancelled(order.ID, order.UserID, "cancelled by staff")
		s.notify(ctx, &model.Notification{
			Type:      model.NotificationOrderCancelled,
			Title:     "Order cancelled",
			Message:   fmt.Sprintf("Order %s was cancelled", order.ID),
			RelatedID: order.ID.String(),
			UserID:    order.UserID,
			Roles:     model.StaffRoles,
		})
	} else {
		s.events.OrderStatusChanged(order, old)
		s.notify(ctx, &model.Notification{
			Type:      model.NotificationStatusUpdate,
			Title:     "Order update",
			Message:   fmt.Sprintf("Order %s is now %s", order.ID, next),
			RelatedID: order.ID.String(),
			UserID:    order.UserID,
		})
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("from", string(old)).
		Str("to", string(next)).
		Msg("order status updated")

	return order, nil
}

// ExpireOrder cancels one order whose payment window lapsed. It is the
// shared target of the per-order timer and the sweep, so it tolerates
// both racing: any order no longer pending on a deferred payment is
// left alone.
func (s *orderService) ExpireOrder(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return nil
	}
	if order.Status != model.StatusPending || !order.PaymentMethod.Deferred() {
		return nil
	}

	if _, err := s.inventory.Release(ctx, orderID); err != nil {
		return err
	}
	if err := s.orders.Delete(ctx, orderID); err != nil {
		return err
	}
	s.timers.Disarm(orderID)

	s.events.OrderCancelled(orderID, order.UserID, "payment window elapsed")
	s.notify(ctx, &model.Notification{
		Type:      model.NotificationOrderCancelled,
		Title:     "Order cancelled",
		Message:   fmt.Sprintf("Order %s was cancelled: payment was not completed in time", orderID),
		RelatedID: orderID.String(),
		UserID:    order.UserID,
		Roles:     model.StaffRoles,
	})

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("user_id", order.UserID).
		Msg("pending order expired")

	return nil
}

func (s *orderService) ExpiredPending(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	return s.orders.ListExpiredPending(ctx, cutoff)
}

func (s *orderService) notifyOrderCreated(ctx context.Context, order *model.Order) {
	s.notify(ctx, &model.Notification{
		Type:      model.NotificationNewOrder,
		Title:     "New order",
		Message:   fmt.Sprintf("Order %s placed, total %.2f", order.ID, order.Total),
		RelatedID: order.ID.String(),
		UserID:    order.UserID,
		Roles:     model.StaffRoles,
	})
}

// notifyLowStock raises one alert per distinct product at or below the
// threshold after the reservation.
func (s *orderService) notifyLowStock(ctx context.Context, products []model.Product) {
	seen := make(map[string]bool, len(products))
	for _, p := range products {
		if p.Stock > s.lowStock || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		s.notify(ctx, &model.Notification{
			Type:      model.NotificationInventoryAlert,
			Title:     "Low stock",
			Message:   fmt.Sprintf("%s is down to %d units", p.Name, p.Stock),
			RelatedID: p.ID,
			Roles:     model.StaffRoles,
		})
	}
}

// distinctProducts counts the products an order's items span.
func distinctProducts(items []model.OrderItem) int {
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		seen[item.ProductID] = true
	}
	return len(seen)
}

// catalogFor loads the catalog rows for the requested items, keyed by
// product id. Every item must resolve.
func (s *orderService) catalogFor(ctx context.Context, items []model.OrderItem) (map[string]model.Product, error) {
	ids := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}

	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, model.ErrProductNotFound(id)
		}
	}
	return byID, nil
}

// notify dispatches best-effort: a notification failure never fails the
// order operation that produced it.
func (s *orderService) notify(ctx context.Context, n *model.Notification) {
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Error().Err(err).
			Str("type", string(n.Type)).
			Str("related_id", n.RelatedID).
			Msg("failed to dispatch notification")
	}
}
