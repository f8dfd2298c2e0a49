package database

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"storefront/models"
	"storefront/services"
)

// PostgresOrders stores orders in Postgres. Every mutation runs in one transaction; when an
// event topic is configured the matching outbox row is written in that same transaction.
type PostgresOrders struct {
	pool  *pgxpool.Pool
	topic string
}

// NewPostgresOrders returns an order store. An empty topic disables outbox writes.
func NewPostgresOrders(pool *pgxpool.Pool, topic string) *PostgresOrders {
	return &PostgresOrders{pool: pool, topic: topic}
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const orderColumns = `id, owner_user_id, status, total_amount::text, shipping_address,
	customer_name, customer_phone, customer_name_by_admin, customer_phone_by_admin,
	created_at, updated_at`

func orderKey(orderID int64) string {
	return strconv.FormatInt(orderID, 10)
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		o      models.Order
		status string
		total  string
	)
	err := row.Scan(&o.ID, &o.OwnerUserID, &status, &total, &o.ShippingAddress,
		&o.CustomerName, &o.CustomerPhone, &o.CustomerNameByAdmin, &o.CustomerPhoneByAdmin,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	o.Status = models.OrderStatus(status)
	if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("order %d: bad total %q: %w", o.ID, total, err)
	}
	return &o, nil
}

// loadItems attaches items to orders, keeping each order's items in insertion order.
func loadItems(ctx context.Context, q querier, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	byID := make(map[int64]*models.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		o.Items = []models.OrderItem{}
		byID[o.ID] = o
	}

	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price::text
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return translate(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item  models.OrderItem
			price string
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &price); err != nil {
			return translate(err)
		}
		if item.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("order item %d: bad unit price %q: %w", item.ID, price, err)
		}
		byID[item.OrderID].Items = append(byID[item.OrderID].Items, item)
	}
	return translate(rows.Err())
}

func getOrder(ctx context.Context, q querier, orderID int64) (*models.Order, error) {
	order, err := scanOrder(q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if err != nil {
		return nil, err
	}
	if err := loadItems(ctx, q, []*models.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *PostgresOrders) event(ctx context.Context, tx pgx.Tx, eventType string, orderID int64, payload any) error {
	if s.topic == "" {
		return nil
	}
	if err := insertEvent(ctx, tx, s.topic, eventType, orderID, payload); err != nil {
		return fmt.Errorf("outbox %s: %w", eventType, err)
	}
	return nil
}

func (s *PostgresOrders) Create(ctx context.Context, order *models.Order, idempotencyKey string) error {
	return inTx(ctx, s.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO orders (owner_user_id, status, total_amount, shipping_address,
				customer_name, customer_phone, customer_name_by_admin, customer_phone_by_admin)
			VALUES ($1, $2, $3::text::numeric, $4, $5, $6, $7, $8)
			RETURNING id, created_at, updated_at`,
			order.OwnerUserID, string(order.Status), order.TotalAmount.StringFixed(2), order.ShippingAddress,
			order.CustomerName, order.CustomerPhone, order.CustomerNameByAdmin, order.CustomerPhoneByAdmin)
		if err := row.Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return translate(err)
		}

		for i := range order.Items {
			item := &order.Items[i]
			item.OrderID = order.ID
			err := tx.QueryRow(ctx, `
				INSERT INTO order_items (order_id, product_id, quantity, unit_price)
				VALUES ($1, $2, $3, $4::text::numeric) RETURNING id`,
				order.ID, item.ProductID, item.Quantity, item.UnitPrice.StringFixed(2)).Scan(&item.ID)
			if err != nil {
				return translate(err)
			}
		}

		if idempotencyKey != "" {
			_, err := tx.Exec(ctx,
				`INSERT INTO order_idempotency (idempotency_key, order_id) VALUES ($1, $2)`,
				idempotencyKey, order.ID)
			if pgCode(err) == pgUniqueViolation {
				return services.ErrDuplicateKey
			}
			if err != nil {
				return translate(err)
			}
		}

		return s.event(ctx, tx, EventOrderCreated, order.ID, order)
	})
}

func (s *PostgresOrders) FindByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var orderID int64
	err := s.pool.QueryRow(ctx, `SELECT order_id FROM order_idempotency WHERE idempotency_key = $1`, key).Scan(&orderID)
	if err != nil {
		return nil, translate(err)
	}
	return getOrder(ctx, s.pool, orderID)
}

func (s *PostgresOrders) Get(ctx context.Context, orderID int64) (*models.Order, error) {
	return getOrder(ctx, s.pool, orderID)
}

func (s *PostgresOrders) List(ctx context.Context, filter services.OrderFilter) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var args []any
	if filter.OwnerUserID != nil {
		query += ` WHERE owner_user_id = $1`
		args = append(args, *filter.OwnerUserID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		orders = append(orders, order)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}

	if err := loadItems(ctx, s.pool, orders); err != nil {
		return nil, err
	}
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, *o)
	}
	return out, nil
}

func (s *PostgresOrders) UpdateStatus(ctx context.Context, orderID int64, status models.OrderStatus) (*models.Order, error) {
	var order *models.Order
	err := inTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`, orderID, string(status))
		if err != nil {
			return translate(err)
		}
		if tag.RowsAffected() == 0 {
			return services.ErrNotFound
		}
		if order, err = getOrder(ctx, tx, orderID); err != nil {
			return err
		}
		return s.event(ctx, tx, EventOrderStatusChanged, orderID, map[string]any{"status": status})
	})
	return order, err
}

func (s *PostgresOrders) Update(ctx context.Context, orderID int64, patch services.OrderPatch) (*models.Order, error) {
	var status *string
	if patch.Status != nil {
		v := string(*patch.Status)
		status = &v
	}

	var order *models.Order
	err := inTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE orders SET
				status = COALESCE($2, status),
				shipping_address = COALESCE($3, shipping_address),
				customer_name = CASE WHEN $4::text IS NULL THEN customer_name ELSE NULLIF($4::text, '') END,
				customer_phone = CASE WHEN $5::text IS NULL THEN customer_phone ELSE NULLIF($5::text, '') END,
				customer_name_by_admin = CASE WHEN $6::text IS NULL THEN customer_name_by_admin ELSE NULLIF($6::text, '') END,
				customer_phone_by_admin = CASE WHEN $7::text IS NULL THEN customer_phone_by_admin ELSE NULLIF($7::text, '') END,
				updated_at = now()
			WHERE id = $1`,
			orderID, status, patch.ShippingAddress,
			patch.CustomerName, patch.CustomerPhone, patch.CustomerNameByAdmin, patch.CustomerPhoneByAdmin)
		if err != nil {
			return translate(err)
		}
		if tag.RowsAffected() == 0 {
			return services.ErrNotFound
		}
		if order, err = getOrder(ctx, tx, orderID); err != nil {
			return err
		}
		return s.event(ctx, tx, EventOrderUpdated, orderID, order)
	})
	return order, err
}

func (s *PostgresOrders) Delete(ctx context.Context, orderID int64) error {
	return inTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
		if err != nil {
			return translate(err)
		}
		if tag.RowsAffected() == 0 {
			return services.ErrNotFound
		}
		return s.event(ctx, tx, EventOrderDeleted, orderID, nil)
	})
}

// lockOrder takes a row lock so concurrent item corrections on one order serialise.
func lockOrder(ctx context.Context, tx pgx.Tx, orderID int64) error {
	var id int64
	if err := tx.QueryRow(ctx, `SELECT id FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&id); err != nil {
		return translate(err)
	}
	return nil
}

// retotal recomputes the order total from the stored unit prices.
func (s *PostgresOrders) retotal(ctx context.Context, tx pgx.Tx, orderID int64) (*models.Order, error) {
	_, err := tx.Exec(ctx, `
		UPDATE orders SET
			total_amount = (SELECT COALESCE(SUM(quantity * unit_price), 0) FROM order_items WHERE order_id = $1),
			updated_at = now()
		WHERE id = $1`, orderID)
	if err != nil {
		return nil, translate(err)
	}
	order, err := getOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	return order, s.event(ctx, tx, EventOrderUpdated, orderID, order)
}

func (s *PostgresOrders) AddItem(ctx context.Context, orderID int64, item models.OrderItem) (*models.Order, error) {
	var order *models.Order
	err := inTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := lockOrder(ctx, tx, orderID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4::text::numeric)`,
			orderID, item.ProductID, item.Quantity, item.UnitPrice.StringFixed(2))
		if err != nil {
			return translate(err)
		}
		order, err = s.retotal(ctx, tx, orderID)
		return err
	})
	return order, err
}

func (s *PostgresOrders) UpdateItem(ctx context.Context, orderID, itemID int64, patch services.ItemPatch) (*models.Order, error) {
	var price *string
	if patch.UnitPrice != nil {
		v := patch.UnitPrice.StringFixed(2)
		price = &v
	}

	var order *models.Order
	err := inTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := lockOrder(ctx, tx, orderID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			UPDATE order_items SET
				quantity = COALESCE($3, quantity),
				unit_price = COALESCE($4::text::numeric, unit_price)
			WHERE id = $2 AND order_id = $1`,
			orderID, itemID, patch.Quantity, price)
		if err != nil {
			return translate(err)
		}
		if tag.RowsAffected() == 0 {
			return services.ErrNotFound
		}
		order, err = s.retotal(ctx, tx, orderID)
		return err
	})
	return order, err
}

func (s *PostgresOrders) DeleteItem(ctx context.Context, orderID, itemID int64) (*models.Order, error) {
	var order *models.Order
	err := inTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := lockOrder(ctx, tx, orderID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM order_items WHERE id = $2 AND order_id = $1`, orderID, itemID)
		if err != nil {
			return translate(err)
		}
		if tag.RowsAffected() == 0 {
			return services.ErrNotFound
		}

		var remaining int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM order_items WHERE order_id = $1`, orderID).Scan(&remaining); err != nil {
			return translate(err)
		}
		if remaining == 0 {
			// Rolling back keeps the last line in place.
			return services.ErrEmptyOrder
		}
		order, err = s.retotal(ctx, tx, orderID)
		return err
	})
	return order, err
}
