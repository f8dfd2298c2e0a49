package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"storefront/logging"
	"storefront/models"
)

// CheckoutRequest is what a caller submits to place an order. Items are taken as given;
// they do not have to match the caller's cart.
type CheckoutRequest struct {
	Items           []LineItem
	ShippingAddress string
	GuestContact    *models.Contact
	AdminContact    *models.Contact
	IdempotencyKey  string
}

// CheckoutResult is the placed order. Replayed is set when an earlier request with the same
// idempotency key already created it.
type CheckoutResult struct {
	Order    *models.Order
	Replayed bool
}

// CheckoutService turns a caller's item list into an order.
//
// The caller's cart is left untouched after a successful checkout.
type CheckoutService struct {
	orders *OrderService
	log    *logrus.Entry
}

func NewCheckoutService(orders *OrderService, log *logrus.Entry) *CheckoutService {
	return &CheckoutService{orders: orders, log: log}
}

// Checkout places an order for who. Authenticated callers own the order, guests produce an
// ownerless order. Nothing is stored if any product cannot be priced.
func (s *CheckoutService) Checkout(ctx context.Context, who models.Identity, req CheckoutRequest) (*CheckoutResult, error) {
	owner := who.OwnerID()

	if req.IdempotencyKey != "" {
		if res, err := s.replay(ctx, owner, req); res != nil || err != nil {
			return res, err
		}
	}

	order, err := s.orders.CreateOrder(ctx, NewOrder{
		OwnerUserID:     owner,
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		GuestContact:    req.GuestContact,
		AdminContact:    req.AdminContact,
		IdempotencyKey:  req.IdempotencyKey,
	})
	if errors.Is(err, ErrDuplicateKey) {
		// Lost the race against a concurrent request with the same key.
		res, rerr := s.replay(ctx, owner, req)
		if rerr != nil {
			return nil, rerr
		}
		if res != nil {
			return res, nil
		}
		return nil, fmt.Errorf("checkout: %w", ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}
	return &CheckoutResult{Order: order}, nil
}

// replay returns the order stored under the request's key, or nil when there is none. A key
// that belongs to a different owner, or that was used for a different request, is a conflict.
func (s *CheckoutService) replay(ctx context.Context, owner *string, req CheckoutRequest) (*CheckoutResult, error) {
	order, err := s.orders.orderForKey(ctx, req.IdempotencyKey)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checkout: idempotency lookup: %w", err)
	}
	if !sameOwner(order.OwnerUserID, owner) {
		return nil, fmt.Errorf("checkout: idempotency key reused by another caller: %w", ErrConflict)
	}
	if !matchesRequest(order, req) {
		return nil, fmt.Errorf("checkout: idempotency key reused for a different request: %w", ErrConflict)
	}
	s.log.WithFields(logrus.Fields{
		logging.FieldOrderID: order.ID,
		logging.FieldStep:    "idempotent_replay",
	}).Info("checkout replayed")
	return &CheckoutResult{Order: order, Replayed: true}, nil
}

func sameOwner(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// matchesRequest reports whether order was placed from the same items, address and contacts
// as req. Per-product quantities are compared, not line order.
func matchesRequest(order *models.Order, req CheckoutRequest) bool {
	if order.ShippingAddress != req.ShippingAddress {
		return false
	}
	if !sameContact(order.CustomerName, order.CustomerPhone, req.GuestContact) ||
		!sameContact(order.CustomerNameByAdmin, order.CustomerPhoneByAdmin, req.AdminContact) {
		return false
	}

	want := map[string]int{}
	for _, line := range req.Items {
		want[line.ProductID] += line.Quantity
	}
	got := map[string]int{}
	for _, item := range order.Items {
		got[item.ProductID] += item.Quantity
	}
	if len(want) != len(got) {
		return false
	}
	for productID, qty := range want {
		if got[productID] != qty {
			return false
		}
	}
	return true
}

func sameContact(name, phone *string, c *models.Contact) bool {
	var want models.Contact
	if c != nil {
		want = *c
	}
	return deref(name) == want.Name && deref(phone) == want.Phone
}
