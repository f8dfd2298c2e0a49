package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"storefront/logging"
	"storefront/models"
)

// CartService merges product selections into a per-user cart.
type CartService struct {
	carts   CartRepository
	catalog Catalog
	log     *logrus.Entry
}

func NewCartService(carts CartRepository, catalog Catalog, log *logrus.Entry) *CartService {
	return &CartService{carts: carts, catalog: catalog, log: log}
}

// GetOrCreateCart returns the caller's cart, creating it on first use.
func (s *CartService) GetOrCreateCart(ctx context.Context, who models.Identity) (*models.Cart, error) {
	if !who.IsAuthenticated() {
		return nil, ErrIdentityRequired
	}
	cart, err := s.carts.GetOrCreateCart(ctx, who.UserID)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}
	return cart, nil
}

// AddItem adds quantity of productID to the caller's cart. An existing line for the same
// product has its quantity increased rather than replaced. Inactive products are accepted.
func (s *CartService) AddItem(ctx context.Context, who models.Identity, productID string, quantity int) (*models.CartItem, error) {
	if !validQuantity(quantity) {
		return nil, ErrInvalidQuantity
	}
	if !who.IsAuthenticated() {
		return nil, ErrIdentityRequired
	}
	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		return nil, fmt.Errorf("add item %s: %w", productID, err)
	}

	cart, err := s.GetOrCreateCart(ctx, who)
	if err != nil {
		return nil, err
	}

	item, err := retryOnConflict(func() (*models.CartItem, error) {
		return s.carts.AddItem(ctx, cart.ID, productID, quantity)
	})
	if err != nil {
		return nil, fmt.Errorf("add item %s: %w", productID, err)
	}

	s.log.WithFields(logrus.Fields{
		logging.FieldCartID:    cart.ID,
		logging.FieldProductID: productID,
		"quantity":             item.Quantity,
	}).Info("cart item merged")
	return item, nil
}

// UpdateItemQuantity overwrites the quantity of one of the caller's cart items.
func (s *CartService) UpdateItemQuantity(ctx context.Context, who models.Identity, itemID int64, quantity int) (*models.CartItem, error) {
	if !validQuantity(quantity) {
		return nil, ErrInvalidQuantity
	}
	if !who.IsAuthenticated() {
		return nil, ErrIdentityRequired
	}
	item, err := s.carts.UpdateItemQuantity(ctx, itemID, who.UserID, quantity)
	if err != nil {
		return nil, fmt.Errorf("update cart item %d: %w", itemID, err)
	}
	return item, nil
}

// RemoveItem deletes one of the caller's cart items.
func (s *CartService) RemoveItem(ctx context.Context, who models.Identity, itemID int64) error {
	if !who.IsAuthenticated() {
		return ErrIdentityRequired
	}
	if err := s.carts.DeleteItem(ctx, itemID, who.UserID); err != nil {
		return fmt.Errorf("remove cart item %d: %w", itemID, err)
	}
	return nil
}

// ListItems returns the caller's cart items. A user without a cart has no items.
func (s *CartService) ListItems(ctx context.Context, who models.Identity) ([]models.CartItem, error) {
	if !who.IsAuthenticated() {
		return nil, ErrIdentityRequired
	}
	items, err := s.carts.ListItems(ctx, who.UserID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	return items, nil
}

// ViewCart returns the cart of ownerUserID with its items. Admins may view any cart,
// other callers only their own.
func (s *CartService) ViewCart(ctx context.Context, who models.Identity, ownerUserID string) (*models.Cart, error) {
	if !who.IsAuthenticated() {
		return nil, ErrIdentityRequired
	}
	if !who.IsAdmin && who.UserID != ownerUserID {
		return nil, ErrNotFound
	}
	cart, err := s.carts.FindCart(ctx, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("view cart: %w", err)
	}
	items, err := s.carts.ListItems(ctx, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("view cart: %w", err)
	}
	cart.Items = items
	return cart, nil
}

func validQuantity(q int) bool {
	return q >= 1 && q <= MaxQuantity
}

// retryOnConflict runs fn again once when the store reports a conflict.
func retryOnConflict[T any](fn func() (T, error)) (T, error) {
	v, err := fn()
	if errors.Is(err, ErrConflict) {
		v, err = fn()
	}
	return v, err
}
