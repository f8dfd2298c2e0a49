package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/models"
	"storefront/services"
)

// MemoryCarts keeps carts in process memory. It backs STORE_DRIVER=memory and the unit
// tests. A single mutex serialises every operation, which makes the merge in AddItem atomic.
type MemoryCarts struct {
	mu        sync.Mutex
	nextID    int64
	carts     map[string]*models.Cart
	cartItems map[int64]*models.CartItem
}

func NewMemoryCarts() *MemoryCarts {
	return &MemoryCarts{
		carts:     map[string]*models.Cart{},
		cartItems: map[int64]*models.CartItem{},
	}
}

func (m *MemoryCarts) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemoryCarts) GetOrCreateCart(_ context.Context, ownerUserID string) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart, ok := m.carts[ownerUserID]
	if !ok {
		cart = &models.Cart{ID: m.id(), OwnerUserID: ownerUserID, CreatedAt: time.Now().UTC()}
		m.carts[ownerUserID] = cart
	}
	c := *cart
	return &c, nil
}

func (m *MemoryCarts) FindCart(_ context.Context, ownerUserID string) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart, ok := m.carts[ownerUserID]
	if !ok {
		return nil, services.ErrNotFound
	}
	c := *cart
	return &c, nil
}

func (m *MemoryCarts) AddItem(_ context.Context, cartID int64, productID string, quantity int) (*models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	for _, item := range m.cartItems {
		if item.CartID == cartID && item.ProductID == productID {
			if item.Quantity > services.MaxQuantity-quantity {
				return nil, services.ErrInvalidQuantity
			}
			item.Quantity += quantity
			item.UpdatedAt = now
			i := *item
			return &i, nil
		}
	}
	item := &models.CartItem{
		ID:        m.id(),
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.cartItems[item.ID] = item
	i := *item
	return &i, nil
}

// ownedItem must be called with mu held.
func (m *MemoryCarts) ownedItem(itemID int64, ownerUserID string) (*models.CartItem, bool) {
	item, ok := m.cartItems[itemID]
	if !ok {
		return nil, false
	}
	cart, ok := m.carts[ownerUserID]
	if !ok || cart.ID != item.CartID {
		return nil, false
	}
	return item, true
}

func (m *MemoryCarts) UpdateItemQuantity(_ context.Context, itemID int64, ownerUserID string, quantity int) (*models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.ownedItem(itemID, ownerUserID)
	if !ok {
		return nil, services.ErrNotFound
	}
	item.Quantity = quantity
	item.UpdatedAt = time.Now().UTC()
	i := *item
	return &i, nil
}

func (m *MemoryCarts) DeleteItem(_ context.Context, itemID int64, ownerUserID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ownedItem(itemID, ownerUserID); !ok {
		return services.ErrNotFound
	}
	delete(m.cartItems, itemID)
	return nil
}

func (m *MemoryCarts) ListItems(_ context.Context, ownerUserID string) ([]models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := []models.CartItem{}
	cart, ok := m.carts[ownerUserID]
	if !ok {
		return items, nil
	}
	for _, item := range m.cartItems {
		if item.CartID == cart.ID {
			items = append(items, *item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// MemoryOrders keeps orders in process memory. Every method holds the mutex for its whole
// duration, so an order and its items always appear together.
type MemoryOrders struct {
	mu          sync.Mutex
	nextID      int64
	orders      map[int64]*models.Order
	idempotency map[string]int64
}

func NewMemoryOrders() *MemoryOrders {
	return &MemoryOrders{
		orders:      map[int64]*models.Order{},
		idempotency: map[string]int64{},
	}
}

func (m *MemoryOrders) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemoryOrders) Create(_ context.Context, order *models.Order, idempotencyKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if idempotencyKey != "" {
		if _, taken := m.idempotency[idempotencyKey]; taken {
			return services.ErrDuplicateKey
		}
	}

	order.ID = m.id()
	for i := range order.Items {
		order.Items[i].ID = m.id()
		order.Items[i].OrderID = order.ID
	}
	m.orders[order.ID] = copyOrder(order)
	if idempotencyKey != "" {
		m.idempotency[idempotencyKey] = order.ID
	}
	return nil
}

func (m *MemoryOrders) FindByIdempotencyKey(_ context.Context, key string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.idempotency[key]
	if !ok {
		return nil, services.ErrNotFound
	}
	return m.getLocked(id)
}

func (m *MemoryOrders) Get(_ context.Context, orderID int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(orderID)
}

func (m *MemoryOrders) getLocked(orderID int64) (*models.Order, error) {
	order, ok := m.orders[orderID]
	if !ok {
		return nil, services.ErrNotFound
	}
	return copyOrder(order), nil
}

func (m *MemoryOrders) List(_ context.Context, filter services.OrderFilter) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	orders := []models.Order{}
	for _, order := range m.orders {
		if filter.OwnerUserID != nil && !order.OwnedBy(*filter.OwnerUserID) {
			continue
		}
		orders = append(orders, *copyOrder(order))
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
	return orders, nil
}

func (m *MemoryOrders) UpdateStatus(_ context.Context, orderID int64, status models.OrderStatus) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, services.ErrNotFound
	}
	order.Status = status
	order.UpdatedAt = time.Now().UTC()
	return copyOrder(order), nil
}

func (m *MemoryOrders) Update(_ context.Context, orderID int64, patch services.OrderPatch) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, services.ErrNotFound
	}
	if patch.Status != nil {
		order.Status = *patch.Status
	}
	if patch.ShippingAddress != nil {
		order.ShippingAddress = *patch.ShippingAddress
	}
	setOptional(&order.CustomerName, patch.CustomerName)
	setOptional(&order.CustomerPhone, patch.CustomerPhone)
	setOptional(&order.CustomerNameByAdmin, patch.CustomerNameByAdmin)
	setOptional(&order.CustomerPhoneByAdmin, patch.CustomerPhoneByAdmin)
	order.UpdatedAt = time.Now().UTC()
	return copyOrder(order), nil
}

func (m *MemoryOrders) Delete(_ context.Context, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[orderID]; !ok {
		return services.ErrNotFound
	}
	delete(m.orders, orderID)
	for key, id := range m.idempotency {
		if id == orderID {
			delete(m.idempotency, key)
		}
	}
	return nil
}

func (m *MemoryOrders) AddItem(_ context.Context, orderID int64, item models.OrderItem) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, services.ErrNotFound
	}
	item.ID = m.id()
	item.OrderID = orderID
	order.Items = append(order.Items, item)
	return m.retotalLocked(order)
}

func (m *MemoryOrders) UpdateItem(_ context.Context, orderID, itemID int64, patch services.ItemPatch) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, services.ErrNotFound
	}
	for i := range order.Items {
		if order.Items[i].ID != itemID {
			continue
		}
		if patch.Quantity != nil {
			order.Items[i].Quantity = *patch.Quantity
		}
		if patch.UnitPrice != nil {
			order.Items[i].UnitPrice = *patch.UnitPrice
		}
		return m.retotalLocked(order)
	}
	return nil, services.ErrNotFound
}

func (m *MemoryOrders) DeleteItem(_ context.Context, orderID, itemID int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, services.ErrNotFound
	}
	for i := range order.Items {
		if order.Items[i].ID != itemID {
			continue
		}
		if len(order.Items) == 1 {
			return nil, services.ErrEmptyOrder
		}
		order.Items = append(order.Items[:i], order.Items[i+1:]...)
		return m.retotalLocked(order)
	}
	return nil, services.ErrNotFound
}

func (m *MemoryOrders) retotalLocked(order *models.Order) (*models.Order, error) {
	total, err := services.ComputeTotal(order.Items)
	if err != nil {
		return nil, err
	}
	order.TotalAmount = total
	order.UpdatedAt = time.Now().UTC()
	return copyOrder(order), nil
}

func copyOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = append([]models.OrderItem(nil), o.Items...)
	return &c
}

func setOptional(dst **string, v *string) {
	if v == nil {
		return
	}
	if *v == "" {
		*dst = nil
		return
	}
	s := *v
	*dst = &s
}

// MemoryCatalog is an in-memory product catalog.
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[string]models.Product
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{products: map[string]models.Product{}}
}

// MustPut stores an active product with the given price and returns its id. It panics
// if the product cannot be stored.
func (c *MemoryCatalog) MustPut(name string, price decimal.Decimal) string {
	p := models.Product{Name: name, Price: price, Active: true}
	if err := c.Create(context.Background(), &p); err != nil {
		panic(fmt.Sprintf("memory catalog: put %q: %v", name, err))
	}
	return p.ID.Hex()
}

// SetPrice changes the catalog price of an existing product.
func (c *MemoryCatalog) SetPrice(productID string, price decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.products[productID]; ok {
		p.Price = price
		c.products[productID] = p
	}
}

func (c *MemoryCatalog) GetProduct(_ context.Context, productID string) (models.CatalogEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[productID]
	if !ok {
		return models.CatalogEntry{}, services.ErrProductNotFound
	}
	return models.CatalogEntry{ProductID: productID, Price: p.Price, Active: p.Active}, nil
}

func (c *MemoryCatalog) Create(_ context.Context, p *models.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.CreatedAt = now
	p.UpdatedAt = now
	c.products[p.ID.Hex()] = *p
	return nil
}

func (c *MemoryCatalog) List(_ context.Context, activeOnly bool) ([]models.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	products := []models.Product{}
	for _, p := range c.products {
		if activeOnly && !p.Active {
			continue
		}
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID.Hex() < products[j].ID.Hex() })
	return products, nil
}

func (c *MemoryCatalog) Update(_ context.Context, productID string, patch models.ProductPatch) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[productID]
	if !ok {
		return nil, services.ErrProductNotFound
	}
	applyProductPatch(&p, patch)
	p.UpdatedAt = time.Now().UTC()
	c.products[productID] = p
	return &p, nil
}

func (c *MemoryCatalog) Delete(_ context.Context, productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.products[productID]; !ok {
		return services.ErrProductNotFound
	}
	delete(c.products, productID)
	return nil
}

func applyProductPatch(p *models.Product, patch models.ProductPatch) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Active != nil {
		p.Active = *patch.Active
	}
}
