package services_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"storefront/database"
	"storefront/logging"
	"storefront/services"
)

type fixture struct {
	catalog  *database.MemoryCatalog
	carts    *database.MemoryCarts
	orders   *database.MemoryOrders
	cart     *services.CartService
	order    *services.OrderService
	checkout *services.CheckoutService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		catalog: database.NewMemoryCatalog(),
		carts:   database.NewMemoryCarts(),
		orders:  database.NewMemoryOrders(),
	}
	log := logging.Discard()
	f.cart = services.NewCartService(f.carts, f.catalog, log)
	f.order = services.NewOrderService(f.orders, f.catalog, nil, log)
	f.checkout = services.NewCheckoutService(f.order, log)
	return f
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
