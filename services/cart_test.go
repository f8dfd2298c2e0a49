package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/logging"
	"storefront/models"
	"storefront/services"
)

func TestAddItemMergesQuantities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := models.Authenticated("alice", false)
	p1 := f.catalog.MustPut("Mug", price("7.00"))

	_, err := f.cart.AddItem(ctx, alice, p1, 2)
	require.NoError(t, err)
	item, err := f.cart.AddItem(ctx, alice, p1, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)

	items, err := f.cart.ListItems(ctx, alice)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, p1, items[0].ProductID)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestAddItemRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := models.Authenticated("alice", false)
	p1 := f.catalog.MustPut("Mug", price("7.00"))

	_, err := f.cart.AddItem(ctx, alice, p1, 0)
	assert.ErrorIs(t, err, services.ErrInvalidQuantity)

	_, err = f.cart.AddItem(ctx, models.Guest(), p1, 1)
	assert.ErrorIs(t, err, services.ErrIdentityRequired)

	_, err = f.cart.AddItem(ctx, alice, "ffffffffffffffffffffffff", 1)
	assert.ErrorIs(t, err, services.ErrProductNotFound)

	items, err := f.cart.ListItems(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAddItemAcceptsInactiveProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := models.Authenticated("alice", false)
	p1 := f.catalog.MustPut("Retired mug", price("7.00"))
	inactive := false
	_, err := f.catalog.Update(ctx, p1, models.ProductPatch{Active: &inactive})
	require.NoError(t, err)

	item, err := f.cart.AddItem(ctx, alice, p1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, item.Quantity)
}

func TestConcurrentAddItemSumsQuantities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := models.Authenticated("alice", false)
	p1 := f.catalog.MustPut("Mug", price("7.00"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.cart.AddItem(ctx, alice, p1, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items, err := f.cart.ListItems(ctx, alice)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 50, items[0].Quantity)
}

func TestCartItemsOfOtherUsersAreNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := models.Authenticated("alice", false)
	bob := models.Authenticated("bob", false)
	p1 := f.catalog.MustPut("Mug", price("7.00"))

	item, err := f.cart.AddItem(ctx, alice, p1, 2)
	require.NoError(t, err)

	_, err = f.cart.UpdateItemQuantity(ctx, bob, item.ID, 9)
	assert.ErrorIs(t, err, services.ErrNotFound)
	assert.ErrorIs(t, f.cart.RemoveItem(ctx, bob, item.ID), services.ErrNotFound)

	items, err := f.cart.ListItems(ctx, alice)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestUpdateAndRemoveCartItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := models.Authenticated("alice", false)
	p1 := f.catalog.MustPut("Mug", price("7.00"))

	item, err := f.cart.AddItem(ctx, alice, p1, 2)
	require.NoError(t, err)

	_, err = f.cart.UpdateItemQuantity(ctx, alice, item.ID, 0)
	assert.ErrorIs(t, err, services.ErrInvalidQuantity)

	updated, err := f.cart.UpdateItemQuantity(ctx, alice, item.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Quantity)

	require.NoError(t, f.cart.RemoveItem(ctx, alice, item.ID))
	assert.ErrorIs(t, f.cart.RemoveItem(ctx, alice, item.ID), services.ErrNotFound)

	items, err := f.cart.ListItems(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGetOrCreateCartIsStable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := models.Authenticated("alice", false)

	first, err := f.cart.GetOrCreateCart(ctx, alice)
	require.NoError(t, err)
	second, err := f.cart.GetOrCreateCart(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "alice", second.OwnerUserID)

	_, err = f.cart.GetOrCreateCart(ctx, models.Guest())
	assert.ErrorIs(t, err, services.ErrIdentityRequired)
}

func TestViewCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := models.Authenticated("alice", false)
	p1 := f.catalog.MustPut("Mug", price("7.00"))
	_, err := f.cart.AddItem(ctx, alice, p1, 1)
	require.NoError(t, err)

	cart, err := f.cart.ViewCart(ctx, models.Authenticated("root", true), "alice")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)

	_, err = f.cart.ViewCart(ctx, models.Authenticated("bob", false), "alice")
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = f.cart.ViewCart(ctx, models.Authenticated("root", true), "nobody")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

// conflictOnceCarts fails the first AddItem with a conflict.
type conflictOnceCarts struct {
	services.CartRepository
	calls int
}

func (c *conflictOnceCarts) AddItem(ctx context.Context, cartID int64, productID string, quantity int) (*models.CartItem, error) {
	c.calls++
	if c.calls == 1 {
		return nil, errors.Join(services.ErrConflict, errors.New("serialization failure"))
	}
	return c.CartRepository.AddItem(ctx, cartID, productID, quantity)
}

func TestAddItemRetriesOnceOnConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.catalog.MustPut("Mug", price("7.00"))
	repo := &conflictOnceCarts{CartRepository: f.carts}
	svc := services.NewCartService(repo, f.catalog, logging.Discard())

	item, err := svc.AddItem(ctx, models.Authenticated("alice", false), p1, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, item.Quantity)
	assert.Equal(t, 2, repo.calls)
}

func TestCartQuantityUpperBound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := models.Authenticated("alice", false)
	p1 := f.catalog.MustPut("Mug", price("7.00"))

	_, err := f.cart.AddItem(ctx, alice, p1, services.MaxQuantity+1)
	assert.ErrorIs(t, err, services.ErrInvalidQuantity)

	item, err := f.cart.AddItem(ctx, alice, p1, services.MaxQuantity)
	require.NoError(t, err)
	assert.Equal(t, services.MaxQuantity, item.Quantity)

	_, err = f.cart.AddItem(ctx, alice, p1, 1)
	assert.ErrorIs(t, err, services.ErrInvalidQuantity)

	_, err = f.cart.UpdateItemQuantity(ctx, alice, item.ID, services.MaxQuantity+1)
	assert.ErrorIs(t, err, services.ErrInvalidQuantity)

	items, err := f.cart.ListItems(ctx, alice)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, services.MaxQuantity, items[0].Quantity)
}
