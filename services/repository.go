package services

import (
	"context"

	"github.com/shopspring/decimal"

	"storefront/models"
)

// Catalog is the read-only product source. GetProduct returns ErrProductNotFound for unknown ids.
type Catalog interface {
	GetProduct(ctx context.Context, productID string) (models.CatalogEntry, error)
}

// CartRepository persists carts and their items.
//
// AddItem must merge into an existing (cart, product) row atomically: concurrent calls for the
// same pair end up as one row whose quantity is the sum of all requests.
type CartRepository interface {
	GetOrCreateCart(ctx context.Context, ownerUserID string) (*models.Cart, error)
	FindCart(ctx context.Context, ownerUserID string) (*models.Cart, error)
	AddItem(ctx context.Context, cartID int64, productID string, quantity int) (*models.CartItem, error)
	UpdateItemQuantity(ctx context.Context, itemID int64, ownerUserID string, quantity int) (*models.CartItem, error)
	DeleteItem(ctx context.Context, itemID int64, ownerUserID string) error
	ListItems(ctx context.Context, ownerUserID string) ([]models.CartItem, error)
}

// OrderFilter narrows order listings. A nil OwnerUserID lists every order.
type OrderFilter struct {
	OwnerUserID *string
}

// OrderPatch holds the admin-editable order fields. Nil fields are left untouched.
type OrderPatch struct {
	Status               *models.OrderStatus
	ShippingAddress      *string
	CustomerName         *string
	CustomerPhone        *string
	CustomerNameByAdmin  *string
	CustomerPhoneByAdmin *string
}

// ItemPatch corrects a single order line. Nil fields are left untouched.
type ItemPatch struct {
	Quantity  *int
	UnitPrice *decimal.Decimal
}

// OrderRepository persists orders. Create writes the order and all of its items in one
// transaction and fills in generated ids and timestamps. When idempotencyKey is non-empty
// and already recorded, Create returns ErrDuplicateKey and writes nothing.
//
// Item mutations recompute the order total from the stored unit prices in the same transaction.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order, idempotencyKey string) error
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	Get(ctx context.Context, orderID int64) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status models.OrderStatus) (*models.Order, error)
	Update(ctx context.Context, orderID int64, patch OrderPatch) (*models.Order, error)
	Delete(ctx context.Context, orderID int64) error
	AddItem(ctx context.Context, orderID int64, item models.OrderItem) (*models.Order, error)
	UpdateItem(ctx context.Context, orderID, itemID int64, patch ItemPatch) (*models.Order, error)
	DeleteItem(ctx context.Context, orderID, itemID int64) (*models.Order, error)
}
