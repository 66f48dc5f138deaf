package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/domain"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/repository"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/database"
	apperrors "github.com/abuzarkhan1/Ecommerce-Hoc/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts the order, its items and the stock movements atomically.
// It is never retried: a second attempt could place a duplicate order.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (err error) {
	shippingJSON, err := json.Marshal(o.ShippingInfo)
	if err != nil {
		return fmt.Errorf("marshal shipping info: %w", err)
	}
	paymentJSON, err := json.Marshal(o.PaymentInfo)
	if err != nil {
		return fmt.Errorf("marshal payment info: %w", err)
	}

	ctx, end := database.TraceQuery(ctx, "CreateOrder", "order placement transaction")
	defer func() { end(err) }()

	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (id, user_id, shipping_info, payment_info, total_price,
				total_price_after_discount, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			o.ID,
			o.UserID,
			shippingJSON,
			paymentJSON,
			o.TotalPrice,
			o.TotalPriceAfterDiscount,
			o.Status,
			o.CreatedAt,
			o.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for i, item := range o.Items {
			_, err = tx.Exec(ctx, `
				INSERT INTO order_items (id, order_id, product_id, title, color, quantity, price, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				item.ID,
				o.ID,
				item.ProductID,
				item.Title,
				item.Color,
				item.Quantity,
				item.Price,
				i,
			)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}

			if err := takeStock(ctx, tx, item.ProductID, item.Quantity, o.CreatedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

// takeStock moves qty units from stock to sold, failing when stock is short.
func takeStock(ctx context.Context, tx pgx.Tx, productID string, qty int, now time.Time) error {
	ct, err := tx.Exec(ctx, `
		UPDATE products
		SET stock = stock - $1, sold = sold + $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND stock >= $1`,
		qty, now, productID,
	)
	if err != nil {
		return fmt.Errorf("take stock: %w", err)
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	var available int
	err = tx.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("product", productID)
		}
		return fmt.Errorf("read stock: %w", err)
	}
	return apperrors.InsufficientStock(productID, qty, available)
}

const orderColumns = `id, user_id, shipping_info, payment_info, total_price,
	total_price_after_discount, status, created_at, updated_at`

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT o.id, o.user_id, o.shipping_info, o.payment_info, o.total_price,
			o.total_price_after_discount, o.status, o.created_at, o.updated_at,
			COALESCE(
				JSONB_AGG(
					JSONB_BUILD_OBJECT(
						'id', oi.id,
						'order_id', oi.order_id,
						'product_id', oi.product_id,
						'title', oi.title,
						'color', oi.color,
						'quantity', oi.quantity,
						'price', oi.price
					) ORDER BY oi.position
				) FILTER (WHERE oi.id IS NOT NULL),
				'[]'::jsonb
			) AS items
		FROM orders o
		LEFT JOIN order_items oi ON o.id = oi.order_id
		WHERE o.id = $1
		GROUP BY o.id`

	var (
		o            domain.Order
		shippingJSON []byte
		paymentJSON  []byte
		itemsJSON    []byte
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID,
		&o.UserID,
		&shippingJSON,
		&paymentJSON,
		&o.TotalPrice,
		&o.TotalPriceAfterDiscount,
		&o.Status,
		&o.CreatedAt,
		&o.UpdatedAt,
		&itemsJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if err := decodeOrderJSON(&o, shippingJSON, paymentJSON); err != nil {
		return nil, err
	}
	o.Items = []domain.OrderItem{}
	if len(itemsJSON) > 0 && string(itemsJSON) != "null" {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	}
	return &o, nil
}

// List returns one page of orders, newest first, with the total match count.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM orders
		%s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d`,
		orderColumns, whereClause, len(args)+1, len(args)+2,
	)
	args = append(args, filter.Page.Limit, filter.Page.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var total int
	orders := make([]domain.Order, 0)
	for rows.Next() {
		var (
			o            domain.Order
			shippingJSON []byte
			paymentJSON  []byte
		)
		if err := rows.Scan(
			&o.ID,
			&o.UserID,
			&shippingJSON,
			&paymentJSON,
			&o.TotalPrice,
			&o.TotalPriceAfterDiscount,
			&o.Status,
			&o.CreatedAt,
			&o.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		if err := decodeOrderJSON(&o, shippingJSON, paymentJSON); err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// attachItems loads the items of all orders with one query.
func (r *OrderRepository) attachItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, product_id, title, color, quantity, price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`, ids)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	byOrder := make(map[string][]domain.OrderItem, len(orders))
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Title,
			&item.Color,
			&item.Quantity,
			&item.Price,
		); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate order item rows: %w", err)
	}

	for i := range orders {
		if items, ok := byOrder[orders[i].ID]; ok {
			orders[i].Items = items
		} else {
			orders[i].Items = []domain.OrderItem{}
		}
	}
	return nil
}

// UpdateStatus is a compare-and-set on the status column, so two concurrent
// transitions from the same status cannot both apply.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, from, to string) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		to, time.Now().UTC(), id, from,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check order: %w", err)
	}
	if !exists {
		return apperrors.NotFound("order", id)
	}
	return apperrors.Conflict(fmt.Sprintf("order %s is no longer %s", id, from))
}

// MonthlyIncome groups non-cancelled orders created since the given time by
// calendar month.
func (r *OrderRepository) MonthlyIncome(ctx context.Context, since time.Time) ([]domain.MonthlyIncome, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT EXTRACT(YEAR FROM created_at)::int AS year,
			EXTRACT(MONTH FROM created_at)::int AS month,
			COALESCE(SUM(total_price_after_discount), 0)::bigint AS amount,
			COUNT(*)::int AS count
		FROM orders
		WHERE created_at >= $1 AND status <> 'cancelled'
		GROUP BY 1, 2
		ORDER BY 1, 2`, since)
	if err != nil {
		return nil, fmt.Errorf("monthly income: %w", err)
	}
	defer rows.Close()

	out := make([]domain.MonthlyIncome, 0, 12)
	for rows.Next() {
		var m domain.MonthlyIncome
		if err := rows.Scan(&m.Year, &m.Month, &m.Amount, &m.Count); err != nil {
			return nil, fmt.Errorf("scan monthly income: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly income: %w", err)
	}
	return out, nil
}

func (r *OrderRepository) Totals(ctx context.Context, since time.Time) (domain.OrderTotals, error) {
	var t domain.OrderTotals
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_price_after_discount), 0)::bigint, COUNT(*)::int
		FROM orders
		WHERE created_at >= $1 AND status <> 'cancelled'`, since,
	).Scan(&t.Amount, &t.Count)
	if err != nil {
		return domain.OrderTotals{}, fmt.Errorf("order totals: %w", err)
	}
	return t, nil
}

func decodeOrderJSON(o *domain.Order, shippingJSON, paymentJSON []byte) error {
	if err := json.Unmarshal(shippingJSON, &o.ShippingInfo); err != nil {
		return fmt.Errorf("unmarshal shipping info: %w", err)
	}
	if err := json.Unmarshal(paymentJSON, &o.PaymentInfo); err != nil {
		return fmt.Errorf("unmarshal payment info: %w", err)
	}
	return nil
}
