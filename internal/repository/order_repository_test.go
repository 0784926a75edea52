package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopcore/internal/model"
)

func testOrder(userID string, method model.PaymentMethod, status model.Status) *model.Order {
	now := time.Now().UTC().Truncate(time.Millisecond)
	orderID := uuid.New()
	order := &model.Order{
		ID:     orderID,
		UserID: userID,
		Items: []model.OrderItem{
			{ID: uuid.New(), OrderID: orderID, ProductID: "prod-a", Quantity: 2, Price: 10, Color: "red"},
			{ID: uuid.New(), OrderID: orderID, ProductID: "prod-b", Quantity: 1, Price: 5},
		},
		ShippingAddress: model.Address{FullName: "Jane Doe", Address1: "1 Main St", Country: "NL"},
		PaymentMethod:   method,
		ShippingPrice:   4,
		TaxPrice:        1,
		Status:          status,
		CreatedBy:       userID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	order.RecomputeTotals()
	return order
}

func setupOrderTestDB(t *testing.T) (*pgxpool.Pool, OrderRepository, func()) {
	pool, cleanup := setupTestDB(t)
	seedProduct(t, pool, "prod-a", "Product A", 10, 50)
	seedProduct(t, pool, "prod-b", "Product B", 5, 50)
	return pool, NewOrderRepository(pool, zerolog.Nop()), cleanup
}

func TestOrderRepository_CreateAndGet(t *testing.T) {
	_, repo, cleanup := setupOrderTestDB(t)
	defer cleanup()

	order := testOrder("user-1", model.PaymentCard, model.StatusPending)
	require.NoError(t, repo.Create(context.Background(), order))

	got, err := repo.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, order.ID, got.ID)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, model.PaymentCard, got.PaymentMethod)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, 25.0, got.Subtotal)
	assert.Equal(t, 30.0, got.Total)
	assert.Equal(t, "Jane Doe", got.ShippingAddress.FullName)
	assert.Empty(t, got.PaymentRef)
	require.Len(t, got.Items, 2)
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	_, repo, cleanup := setupOrderTestDB(t)
	defer cleanup()

	got, err := repo.GetByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOrderRepository_DeleteCascadesItems(t *testing.T) {
	pool, repo, cleanup := setupOrderTestDB(t)
	defer cleanup()

	order := testOrder("user-1", model.PaymentCard, model.StatusPending)
	require.NoError(t, repo.Create(context.Background(), order))
	require.NoError(t, repo.Delete(context.Background(), order.ID))

	got, err := repo.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	var itemCount int
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM order_items WHERE order_id = $1`, order.ID).Scan(&itemCount))
	assert.Zero(t, itemCount)
}

func TestOrderRepository_MarkPaid(t *testing.T) {
	_, repo, cleanup := setupOrderTestDB(t)
	defer cleanup()

	order := testOrder("user-1", model.PaymentCard, model.StatusPending)
	require.NoError(t, repo.Create(context.Background(), order))

	now := time.Now().UTC().Truncate(time.Millisecond)
	order.Status = model.StatusProcessing
	order.IsPaid = true
	order.PaidAt = &now
	order.PaymentRef = "pay_123"
	require.NoError(t, repo.MarkPaid(context.Background(), order))

	got, err := repo.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, got.Status)
	assert.True(t, got.IsPaid)
	require.NotNil(t, got.PaidAt)
	assert.Equal(t, "pay_123", got.PaymentRef)
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	_, repo, cleanup := setupOrderTestDB(t)
	defer cleanup()

	order := testOrder("user-1", model.PaymentCashOnDelivery, model.StatusProcessing)
	require.NoError(t, repo.Create(context.Background(), order))

	now := time.Now().UTC().Truncate(time.Millisecond)
	order.Status = model.StatusDelivered
	order.IsDelivered = true
	order.DeliveredAt = &now
	require.NoError(t, repo.UpdateStatus(context.Background(), order))

	got, err := repo.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDelivered, got.Status)
	assert.True(t, got.IsDelivered)
	require.NotNil(t, got.DeliveredAt)
}

func TestOrderRepository_ListByUser(t *testing.T) {
	_, repo, cleanup := setupOrderTestDB(t)
	defer cleanup()

	for i := 0; i < 3; i++ {
		order := testOrder("user-1", model.PaymentCard, model.StatusPending)
		order.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(context.Background(), order))
	}
	delivered := testOrder("user-1", model.PaymentCashOnDelivery, model.StatusDelivered)
	require.NoError(t, repo.Create(context.Background(), delivered))
	other := testOrder("user-2", model.PaymentCard, model.StatusPending)
	require.NoError(t, repo.Create(context.Background(), other))

	page, err := repo.ListByUser(context.Background(), "user-1", 1, 2)
	require.NoError(t, err)

	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Orders, 2)
	assert.Equal(t, 3, page.StatusCounts[model.StatusPending], "summary spans all pages")
	assert.Equal(t, 1, page.StatusCounts[model.StatusDelivered])
	require.Len(t, page.Orders[0].Items, 2, "items loaded for listed orders")

	// Newest first.
	assert.True(t, !page.Orders[0].CreatedAt.Before(page.Orders[1].CreatedAt))

	page2, err := repo.ListByUser(context.Background(), "user-1", 2, 2)
	require.NoError(t, err)
	assert.Len(t, page2.Orders, 2)
	assert.Equal(t, 2, page2.Page)
}

func TestOrderRepository_ListAll(t *testing.T) {
	_, repo, cleanup := setupOrderTestDB(t)
	defer cleanup()

	for _, userID := range []string{"user-1", "user-2"} {
		order := testOrder(userID, model.PaymentCard, model.StatusPending)
		require.NoError(t, repo.Create(context.Background(), order))
	}
	shipped := testOrder("user-3", model.PaymentCashOnDelivery, model.StatusShipped)
	require.NoError(t, repo.Create(context.Background(), shipped))

	// No filter: orders across every customer.
	page, err := repo.ListAll(context.Background(), "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Orders, 3)
	assert.Equal(t, 2, page.StatusCounts[model.StatusPending])
	assert.Equal(t, 1, page.StatusCounts[model.StatusShipped])

	// Status filter narrows the page but the summary still spans all.
	page, err = repo.ListAll(context.Background(), model.StatusShipped, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, shipped.ID, page.Orders[0].ID)
	assert.Equal(t, 2, page.StatusCounts[model.StatusPending])
}

func TestOrderRepository_ListExpiredPending(t *testing.T) {
	_, repo, cleanup := setupOrderTestDB(t)
	defer cleanup()

	old := time.Now().UTC().Add(-time.Hour)

	expired := testOrder("user-1", model.PaymentCard, model.StatusPending)
	expired.CreatedAt = old
	require.NoError(t, repo.Create(context.Background(), expired))

	fresh := testOrder("user-1", model.PaymentCard, model.StatusPending)
	require.NoError(t, repo.Create(context.Background(), fresh))

	paid := testOrder("user-1", model.PaymentCard, model.StatusProcessing)
	paid.CreatedAt = old
	require.NoError(t, repo.Create(context.Background(), paid))

	cash := testOrder("user-1", model.PaymentCashOnDelivery, model.StatusPending)
	cash.CreatedAt = old
	require.NoError(t, repo.Create(context.Background(), cash))

	ids, err := repo.ListExpiredPending(context.Background(), time.Now().UTC().Add(-15*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{expired.ID}, ids,
		"only old orders still pending on a deferred method qualify")
}
