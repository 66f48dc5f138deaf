package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/domain"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/repository"
	apperrors "github.com/abuzarkhan1/Ecommerce-Hoc/pkg/errors"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/pagination"
)

func sampleOrder() *domain.Order {
	now := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	return &domain.Order{
		ID:     "order-1",
		UserID: "user-1",
		ShippingInfo: domain.ShippingInfo{
			FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
			Address: "1 Analytical St", City: "London", Country: "UK",
		},
		Items: []domain.OrderItem{
			{ID: "item-1", ProductID: "prod-1", Title: "Linen Shirt", Color: "c1", Quantity: 2, Price: 2500},
			{ID: "item-2", ProductID: "prod-2", Title: "Belt", Quantity: 1, Price: 900},
		},
		TotalPrice:              5900,
		TotalPriceAfterDiscount: 5900,
		Status:                  domain.OrderStatusPlaced,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
}

func expectOrderInsert(mock pgxmock.PgxPoolIface, o *domain.Order) {
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(o.ID, o.UserID, pgxmock.AnyArg(), pgxmock.AnyArg(), o.TotalPrice,
			o.TotalPriceAfterDiscount, o.Status, o.CreatedAt, o.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func TestOrderRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	o := sampleOrder()

	expectOrderInsert(mock, o)
	for i, item := range o.Items {
		mock.ExpectExec("INSERT INTO order_items").
			WithArgs(item.ID, o.ID, item.ProductID, item.Title, item.Color, item.Quantity, item.Price, i).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(regexp.QuoteMeta("WHERE id = $3 AND stock >= $1")).
			WithArgs(item.Quantity, o.CreatedAt, item.ProductID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), o))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Create_InsufficientStock(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	o := sampleOrder()
	first := o.Items[0]

	expectOrderInsert(mock, o)
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(first.ID, o.ID, first.ProductID, first.Title, first.Color, first.Quantity, first.Price, 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $3 AND stock >= $1")).
		WithArgs(first.Quantity, o.CreatedAt, first.ProductID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT stock FROM products WHERE id = $1")).
		WithArgs(first.ProductID).
		WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), o)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInsufficientStock))
	assert.Contains(t, err.Error(), "prod-1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Create_ProductGone(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	o := sampleOrder()
	o.Items = o.Items[:1]
	item := o.Items[0]

	expectOrderInsert(mock, o)
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(item.ID, o.ID, item.ProductID, item.Title, item.Color, item.Quantity, item.Price, 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $3 AND stock >= $1")).
		WithArgs(item.Quantity, o.CreatedAt, item.ProductID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT stock FROM products WHERE id = $1")).
		WithArgs(item.ProductID).
		WillReturnRows(pgxmock.NewRows([]string{"stock"}))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), o)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

var orderCols = []string{
	"id", "user_id", "shipping_info", "payment_info", "total_price",
	"total_price_after_discount", "status", "created_at", "updated_at",
}

func TestOrderRepository_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	now := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	items := `[{"id":"item-1","order_id":"order-1","product_id":"prod-1","title":"Linen Shirt","color":"c1","quantity":2,"price":2500}]`

	mock.ExpectQuery("FROM orders o").
		WithArgs("order-1").
		WillReturnRows(pgxmock.NewRows(append(orderCols, "items")).AddRow(
			"order-1", "user-1",
			[]byte(`{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com"}`),
			[]byte(`{"provider":"cod"}`),
			int64(5000), int64(5000), domain.OrderStatusPlaced, now, now,
			[]byte(items),
		))

	o, err := repo.GetByID(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", o.ShippingInfo.FirstName)
	assert.Equal(t, "cod", o.PaymentInfo.Provider)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.Equal(t, int64(5000), o.Items[0].LineTotal())
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectQuery("FROM orders o").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(append(orderCols, "items")))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestOrderRepository_List_FiltersAndAttachesItems(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	now := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	userID, status := "user-1", domain.OrderStatusPlaced

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 AND status = $2")).
		WithArgs(userID, status, 10, 0).
		WillReturnRows(pgxmock.NewRows(append(orderCols, "total_count")).
			AddRow("order-1", userID, []byte(`{}`), []byte(`{}`), int64(100), int64(100), status, now, now, 2).
			AddRow("order-2", userID, []byte(`{}`), []byte(`{}`), int64(50), int64(50), status, now, now, 2))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE order_id = ANY($1)")).
		WithArgs([]string{"order-1", "order-2"}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "order_id", "product_id", "title", "color", "quantity", "price"}).
			AddRow("item-1", "order-1", "prod-1", "Shirt", "", 1, int64(100)))

	orders, total, err := repo.List(context.Background(), repository.OrderFilter{
		UserID: &userID,
		Status: &status,
		Page:   pagination.New(1, 10),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, orders, 2)
	assert.Len(t, orders[0].Items, 1)
	assert.NotNil(t, orders[1].Items)
	assert.Empty(t, orders[1].Items)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_List_Empty(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectQuery("FROM orders").
		WithArgs(20, 0).
		WillReturnRows(pgxmock.NewRows(append(orderCols, "total_count")))

	orders, total, err := repo.List(context.Background(), repository.OrderFilter{Page: pagination.DefaultParams()})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, orders)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectExec(`UPDATE orders SET status = \$1, updated_at = \$2 WHERE id = \$3 AND status = \$4`).
		WithArgs(domain.OrderStatusShipped, pgxmock.AnyArg(), "order-1", domain.OrderStatusProcessing).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(domain.OrderStatusShipped, pgxmock.AnyArg(), "missing", domain.OrderStatusProcessing).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	require.NoError(t, repo.UpdateStatus(context.Background(), "order-1", domain.OrderStatusProcessing, domain.OrderStatusShipped))
	err := repo.UpdateStatus(context.Background(), "missing", domain.OrderStatusProcessing, domain.OrderStatusShipped)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_UpdateStatus_StaleFromStatus(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	// Another admin already shipped the order.
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(domain.OrderStatusCancelled, pgxmock.AnyArg(), "order-1", domain.OrderStatusProcessing).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("order-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.UpdateStatus(context.Background(), "order-1", domain.OrderStatusProcessing, domain.OrderStatusCancelled)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Stats(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	since := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("GROUP BY 1, 2").
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"year", "month", "amount", "count"}).
			AddRow(2025, 12, int64(12000), 3).
			AddRow(2026, 1, int64(800), 1))
	mock.ExpectQuery("COUNT").
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"sum", "count"}).AddRow(int64(12800), 4))

	months, err := repo.MonthlyIncome(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, months, 2)
	assert.Equal(t, domain.MonthlyIncome{Year: 2025, Month: 12, Amount: 12000, Count: 3}, months[0])

	totals, err := repo.Totals(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderTotals{Amount: 12800, Count: 4}, totals)
	require.NoError(t, mock.ExpectationsWereMet())
}
