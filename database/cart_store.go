package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/models"
	"storefront/services"
)

// PostgresCarts stores carts in Postgres. The merge in AddItem is a single upsert against
// the (cart_id, product_id) unique constraint, so concurrent adds never race.
type PostgresCarts struct {
	pool *pgxpool.Pool
}

func NewPostgresCarts(pool *pgxpool.Pool) *PostgresCarts {
	return &PostgresCarts{pool: pool}
}

const cartItemColumns = `ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at`

func scanCartItem(row pgx.Row) (*models.CartItem, error) {
	var item models.CartItem
	if err := row.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (s *PostgresCarts) GetOrCreateCart(ctx context.Context, ownerUserID string) (*models.Cart, error) {
	// The no-op update makes RETURNING yield the existing row on conflict.
	row := s.pool.QueryRow(ctx, `
		INSERT INTO carts (owner_user_id) VALUES ($1)
		ON CONFLICT (owner_user_id) DO UPDATE SET owner_user_id = EXCLUDED.owner_user_id
		RETURNING id, owner_user_id, created_at`, ownerUserID)

	var cart models.Cart
	if err := row.Scan(&cart.ID, &cart.OwnerUserID, &cart.CreatedAt); err != nil {
		return nil, translate(err)
	}
	return &cart, nil
}

func (s *PostgresCarts) FindCart(ctx context.Context, ownerUserID string) (*models.Cart, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, owner_user_id, created_at FROM carts WHERE owner_user_id = $1`, ownerUserID)

	var cart models.Cart
	if err := row.Scan(&cart.ID, &cart.OwnerUserID, &cart.CreatedAt); err != nil {
		return nil, translate(err)
	}
	return &cart, nil
}

func (s *PostgresCarts) AddItem(ctx context.Context, cartID int64, productID string, quantity int) (*models.CartItem, error) {
	item, err := scanCartItem(s.pool.QueryRow(ctx, `
		INSERT INTO cart_items AS ci (cart_id, product_id, quantity) VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT cart_items_cart_product_key
		DO UPDATE SET quantity = ci.quantity + EXCLUDED.quantity, updated_at = now()
		RETURNING `+cartItemColumns, cartID, productID, quantity))
	// The merged quantity overflowed the INTEGER column.
	if errors.Is(err, services.ErrInvalidInput) {
		return nil, fmt.Errorf("%w: %w", services.ErrInvalidQuantity, err)
	}
	return item, err
}

func (s *PostgresCarts) UpdateItemQuantity(ctx context.Context, itemID int64, ownerUserID string, quantity int) (*models.CartItem, error) {
	return scanCartItem(s.pool.QueryRow(ctx, `
		UPDATE cart_items AS ci SET quantity = $3, updated_at = now()
		FROM carts c
		WHERE ci.id = $1 AND ci.cart_id = c.id AND c.owner_user_id = $2
		RETURNING `+cartItemColumns, itemID, ownerUserID, quantity))
}

func (s *PostgresCarts) DeleteItem(ctx context.Context, itemID int64, ownerUserID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM cart_items ci USING carts c
		WHERE ci.id = $1 AND ci.cart_id = c.id AND c.owner_user_id = $2`, itemID, ownerUserID)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return translate(pgx.ErrNoRows)
	}
	return nil
}

func (s *PostgresCarts) ListItems(ctx context.Context, ownerUserID string) ([]models.CartItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+cartItemColumns+`
		FROM cart_items ci JOIN carts c ON c.id = ci.cart_id
		WHERE c.owner_user_id = $1
		ORDER BY ci.id`, ownerUserID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, translate(rows.Err())
}
