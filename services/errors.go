package services

import (
	"errors"
	"math"
)

// MaxQuantity is the largest quantity a cart or order line may hold.
const MaxQuantity = math.MaxInt32

var (
	// ErrInvalidQuantity is returned for quantities below one or above MaxQuantity.
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 2147483647")
	// ErrNotFound covers both missing records and records owned by someone else.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when a non-admin attempts an admin-only mutation.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidStatus is returned for status values outside the order status enum.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrProductNotFound is returned by catalog readers for unknown products.
	ErrProductNotFound = errors.New("product not found")
	// ErrCatalogLookupFailed wraps any catalog failure met while pricing an order.
	ErrCatalogLookupFailed = errors.New("catalog lookup failed")
	// ErrEmptyOrder is returned when an order would contain no items.
	ErrEmptyOrder = errors.New("order has no items")
	// ErrIdentityRequired is returned when a guest attempts an operation that needs a user.
	ErrIdentityRequired = errors.New("authentication required")
	// ErrConflict is returned when a storage conflict survives the internal retry.
	ErrConflict = errors.New("conflict")
	// ErrInvalidInput signals a malformed request field other than quantity or status.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateKey is returned by stores when an idempotency key is already taken.
	ErrDuplicateKey = errors.New("duplicate key")
)
