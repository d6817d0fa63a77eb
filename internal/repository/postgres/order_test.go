package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mahmoudramadan21/Bookify/internal/domain"
	"github.com/Mahmoudramadan21/Bookify/internal/repository"
	"github.com/Mahmoudramadan21/Bookify/pkg/database"
	apperrors "github.com/Mahmoudramadan21/Bookify/pkg/errors"
)

var (
	orderCols = []string{
		"id", "user_id", "payment_method", "tax_price", "shipping_price", "total_price",
		"is_paid", "paid_at", "is_delivered", "delivered_at", "created_at",
		"address", "city", "postal_code", "country",
	}
	itemCols = []string{"id", "order_id", "book_id", "name", "qty", "price", "image"}
)

func newOrder() *domain.Order {
	return &domain.Order{
		ID:              "o1",
		UserID:          "u1",
		PaymentMethod:   "PayPal",
		TaxPrice:        decimal.RequireFromString("1.00"),
		ShippingPrice:   decimal.RequireFromString("5.00"),
		TotalPrice:      decimal.RequireFromString("43.50"),
		CreatedAt:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		ShippingAddress: &domain.ShippingAddress{Address: "1 Nile St", City: "Cairo", PostalCode: "11511", Country: "EG"},
	}
}

func TestOrderRepository_CreateSnapshotsItemsAndDecrementsStock(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewOrderRepository(mock)
	o := newOrder()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(o.ID, "u1", o.PaymentMethod, o.TaxPrice, o.ShippingPrice, o.TotalPrice, o.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO shipping_addresses").
		WithArgs(o.ID, "1 Nile St", "Cairo", "11511", "EG").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE books SET count_in_stock = count_in_stock - $2")).
		WithArgs("b1", 3).
		WillReturnRows(pgxmock.NewRows([]string{"name", "price", "image"}).
			AddRow("Dune", decimal.RequireFromString("12.50"), "/img/dune.png"))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(pgxmock.AnyArg(), o.ID, "b1", "Dune", 3, pgxmock.AnyArg(), "/img/dune.png").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), o, []domain.LineRequest{{BookID: "b1", Qty: 3}})
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	it := o.Items[0]
	assert.NotEmpty(t, it.ID)
	assert.Equal(t, "o1", it.OrderID)
	require.NotNil(t, it.BookID)
	assert.Equal(t, "b1", *it.BookID)
	assert.Equal(t, "Dune", it.Name)
	assert.True(t, decimal.RequireFromString("12.5").Equal(it.Price))
}

func TestOrderRepository_CreateUnknownBookRollsBack(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewOrderRepository(mock)
	o := newOrder()
	o.ShippingAddress = nil

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("UPDATE books SET count_in_stock").
		WithArgs("ghost", 1).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), o, []domain.LineRequest{{BookID: "ghost", Qty: 1}})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOrderRepository_GetByID(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewOrderRepository(mock)

	paidAt := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT o.id").
		WithArgs("o1").
		WillReturnRows(pgxmock.NewRows(orderCols).AddRow(
			"o1", "u1", "PayPal",
			decimal.RequireFromString("1"), decimal.RequireFromString("5"), decimal.RequireFromString("43.5"),
			true, &paidAt, false, nil, time.Now(),
			ptr("1 Nile St"), ptr("Cairo"), ptr("11511"), ptr("EG"),
		))
	mock.ExpectQuery("SELECT id, order_id").
		WithArgs([]string{"o1"}).
		WillReturnRows(pgxmock.NewRows(itemCols).
			AddRow("i1", "o1", ptr("b1"), "Dune", 3, decimal.RequireFromString("12.5"), "/img/dune.png").
			AddRow("i2", "o1", nil, "Deleted Book", 1, decimal.RequireFromString("5"), ""))

	o, err := repo.GetByID(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatePaid, o.State())
	require.NotNil(t, o.PaidAt)
	assert.Nil(t, o.DeliveredAt)
	require.NotNil(t, o.ShippingAddress)
	assert.Equal(t, "Cairo", o.ShippingAddress.City)
	require.Len(t, o.Items, 2)
	assert.Nil(t, o.Items[1].BookID)
	assert.Equal(t, map[string]int{"b1": 3}, o.QuantitiesByBook())
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewOrderRepository(mock)

	mock.ExpectQuery("SELECT o.id").WithArgs("o9").WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "o9")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOrderRepository_ListForUser(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewOrderRepository(mock)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE o.user_id = $1")).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows(orderCols).
			AddRow("o2", "u1", "PayPal", decimal.Zero, decimal.Zero, decimal.RequireFromString("10"),
				false, nil, false, nil, now, nil, nil, nil, nil).
			AddRow("o1", "u1", "PayPal", decimal.Zero, decimal.Zero, decimal.RequireFromString("20"),
				false, nil, false, nil, now.Add(-time.Hour), nil, nil, nil, nil))
	mock.ExpectQuery("SELECT id, order_id").
		WithArgs([]string{"o2", "o1"}).
		WillReturnRows(pgxmock.NewRows(itemCols).
			AddRow("i1", "o1", ptr("b1"), "Dune", 1, decimal.RequireFromString("20"), ""))

	uid := "u1"
	orders, err := repo.List(context.Background(), repository.OrderFilter{UserID: &uid})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Empty(t, orders[0].Items)
	assert.NotNil(t, orders[0].Items)
	assert.Len(t, orders[1].Items, 1)
	assert.Nil(t, orders[0].ShippingAddress)
}

func TestOrderRepository_ListAllEmpty(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewOrderRepository(mock)

	mock.ExpectQuery("SELECT o.id").WithArgs().WillReturnRows(pgxmock.NewRows(orderCols))

	orders, err := repo.List(context.Background(), repository.OrderFilter{})
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}

func TestOrderRepository_MarkPaid(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewOrderRepository(mock)
	at := time.Now()

	mock.ExpectExec("UPDATE orders SET is_paid").WithArgs("o1", at).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE orders SET is_paid").WithArgs("o9", at).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.MarkPaid(context.Background(), "o1", at))
	assert.ErrorIs(t, repo.MarkPaid(context.Background(), "o9", at), apperrors.ErrNotFound)
}

func TestOrderRepository_MarkDeliveredCreditsSales(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewOrderRepository(mock)
	at := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND is_delivered = FALSE")).
		WithArgs("o1", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE books SET num_of_sales = books.num_of_sales + agg.qty")).
		WithArgs("o1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectCommit()

	delivered, err := repo.MarkDelivered(context.Background(), "o1", at)
	require.NoError(t, err)
	assert.True(t, delivered)
}

func TestOrderRepository_MarkDeliveredTwiceHasNoSideEffects(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewOrderRepository(mock)
	at := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET is_delivered").
		WithArgs("o1", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("o1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectCommit()

	delivered, err := repo.MarkDelivered(context.Background(), "o1", at)
	require.NoError(t, err)
	assert.False(t, delivered)
}

func TestOrderRepository_MarkDeliveredMissing(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewOrderRepository(mock)
	at := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET is_delivered").
		WithArgs("o9", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("o9").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err := repo.MarkDelivered(context.Background(), "o9", at)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
