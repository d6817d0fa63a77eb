package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Mahmoudramadan21/Bookify/internal/domain"
	"github.com/Mahmoudramadan21/Bookify/internal/repository"
	"github.com/Mahmoudramadan21/Bookify/pkg/database"
	apperrors "github.com/Mahmoudramadan21/Bookify/pkg/errors"
)

const orderSelect = `SELECT o.id, COALESCE(o.user_id::text, ''), o.payment_method,
		o.tax_price, o.shipping_price, o.total_price,
		o.is_paid, o.paid_at, o.is_delivered, o.delivered_at, o.created_at,
		a.address, a.city, a.postal_code, a.country
	FROM orders o
	LEFT JOIN shipping_addresses a ON a.order_id = o.id`

// OrderRepository implements repository.OrderRepository.
type OrderRepository struct {
	db database.DBTX
}

func NewOrderRepository(db database.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create decrements stock with a single UPDATE per line, so concurrent
// orders never lose a decrement. There is no floor; stock may go negative.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order, lines []domain.LineRequest) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateOrder", "INSERT INTO orders")
	defer func() { end(err) }()

	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO orders
				(id, user_id, payment_method, tax_price, shipping_price, total_price, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			o.ID, nullable(o.UserID), o.PaymentMethod, o.TaxPrice, o.ShippingPrice, o.TotalPrice, o.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		if a := o.ShippingAddress; a != nil {
			_, err = tx.Exec(ctx, `INSERT INTO shipping_addresses (order_id, address, city, postal_code, country)
				VALUES ($1, $2, $3, $4, $5)`,
				o.ID, a.Address, a.City, a.PostalCode, a.Country,
			)
			if err != nil {
				return fmt.Errorf("insert shipping address: %w", err)
			}
		}

		o.Items = make([]domain.OrderItem, 0, len(lines))
		for _, l := range lines {
			bookID := l.BookID
			it := domain.OrderItem{ID: uuid.NewString(), OrderID: o.ID, BookID: &bookID, Qty: l.Qty}

			err := tx.QueryRow(ctx, `UPDATE books SET count_in_stock = count_in_stock - $2
				WHERE id = $1
				RETURNING name, price, image`, l.BookID, l.Qty,
			).Scan(&it.Name, &it.Price, &it.Image)
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFound("book", l.BookID)
			}
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}

			_, err = tx.Exec(ctx, `INSERT INTO order_items (id, order_id, book_id, name, qty, price, image)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				it.ID, it.OrderID, l.BookID, it.Name, it.Qty, it.Price, it.Image,
			)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
			o.Items = append(o.Items, it)
		}
		return nil
	})
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o                              domain.Order
		address, city, postal, country *string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.PaymentMethod,
		&o.TaxPrice, &o.ShippingPrice, &o.TotalPrice,
		&o.IsPaid, &o.PaidAt, &o.IsDelivered, &o.DeliveredAt, &o.CreatedAt,
		&address, &city, &postal, &country,
	)
	if err != nil {
		return o, err
	}
	if address != nil {
		o.ShippingAddress = &domain.ShippingAddress{
			Address:    *address,
			City:       deref(city),
			PostalCode: deref(postal),
			Country:    deref(country),
		}
	}
	o.Items = []domain.OrderItem{}
	return o, nil
}

// nullable maps an empty id to SQL NULL.
func nullable(id string) any {
	if id == "" {
		return nil
	}
	return id
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (_ *domain.Order, err error) {
	q := orderSelect + ` WHERE o.id = $1`
	ctx, end := database.TraceQuery(ctx, "GetOrder", q)
	defer func() { end(err) }()

	o, err := scanOrder(r.db.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("order", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	orders := []domain.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *OrderRepository) List(ctx context.Context, f repository.OrderFilter) (_ []domain.Order, err error) {
	q := orderSelect
	var args []any
	if f.UserID != nil {
		q += ` WHERE o.user_id = $1`
		args = append(args, *f.UserID)
	}
	q += ` ORDER BY o.created_at DESC, o.id`

	ctx, end := database.TraceQuery(ctx, "ListOrders", q)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads the items of every order in one query.
func (r *OrderRepository) attachItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := r.db.Query(ctx, `SELECT id, order_id, book_id::text, name, qty, price, image
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, id`, ids)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.BookID, &it.Name, &it.Qty, &it.Price, &it.Image); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if i, ok := index[it.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return rows.Err()
}

func (r *OrderRepository) MarkPaid(ctx context.Context, id string, at time.Time) (err error) {
	const q = `UPDATE orders SET is_paid = TRUE, paid_at = $2 WHERE id = $1`
	ctx, end := database.TraceQuery(ctx, "MarkOrderPaid", q)
	defer func() { end(err) }()

	tag, err := r.db.Exec(ctx, q, id, at)
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("order", id)
	}
	return nil
}

// MarkDelivered relies on the is_delivered = FALSE guard so that only one of
// several concurrent calls credits the sales counters.
func (r *OrderRepository) MarkDelivered(ctx context.Context, id string, at time.Time) (delivered bool, err error) {
	ctx, end := database.TraceQuery(ctx, "MarkOrderDelivered", "UPDATE orders SET is_delivered")
	defer func() { end(err) }()

	err = database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE orders SET is_delivered = TRUE, delivered_at = $2
			WHERE id = $1 AND is_delivered = FALSE`, id, at)
		if err != nil {
			return fmt.Errorf("mark order delivered: %w", err)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
				return fmt.Errorf("check order: %w", err)
			}
			if !exists {
				return apperrors.NotFound("order", id)
			}
			return nil
		}

		_, err = tx.Exec(ctx, `UPDATE books SET num_of_sales = books.num_of_sales + agg.qty
			FROM (
				SELECT book_id, SUM(qty)::int AS qty
				FROM order_items
				WHERE order_id = $1 AND book_id IS NOT NULL
				GROUP BY book_id
			) AS agg
			WHERE books.id = agg.book_id`, id)
		if err != nil {
			return fmt.Errorf("credit sales: %w", err)
		}
		delivered = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return delivered, nil
}
