package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"storefront/logging"
	"storefront/models"
)

// Column limits carried over from the order table.
const (
	maxCustomerNameLen      = 100
	maxCustomerPhoneLen     = 30
	maxAdminContactFieldLen = 20
)

// maxOrderTotal is the largest amount a NUMERIC(10,2) total can hold.
var maxOrderTotal = decimal.RequireFromString("99999999.99")

// LineItem is a requested product and quantity, before pricing.
type LineItem struct {
	ProductID string
	Quantity  int
}

// NewOrder describes an order to be placed. OwnerUserID is nil for guest orders.
type NewOrder struct {
	OwnerUserID     *string
	Items           []LineItem
	ShippingAddress string
	GuestContact    *models.Contact
	AdminContact    *models.Contact
	IdempotencyKey  string
}

// Recorder is notified of order lifecycle changes, for instrumentation.
type Recorder interface {
	OrderCreated(order *models.Order)
	OrderStatusChanged(status models.OrderStatus)
}

type nopRecorder struct{}

func (nopRecorder) OrderCreated(*models.Order)            {}
func (nopRecorder) OrderStatusChanged(models.OrderStatus) {}

// OrderService builds price-snapshotted orders and applies admin changes to them.
type OrderService struct {
	orders   OrderRepository
	catalog  Catalog
	recorder Recorder
	log      *logrus.Entry
}

func NewOrderService(orders OrderRepository, catalog Catalog, recorder Recorder, log *logrus.Entry) *OrderService {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &OrderService{orders: orders, catalog: catalog, recorder: recorder, log: log}
}

// ComputeTotal sums quantity × unit price over items.
func ComputeTotal(items []models.OrderItem) (decimal.Decimal, error) {
	if len(items) == 0 {
		return decimal.Zero, ErrEmptyOrder
	}
	total := decimal.Zero
	for _, item := range items {
		if !validQuantity(item.Quantity) {
			return decimal.Zero, ErrInvalidQuantity
		}
		total = total.Add(item.Subtotal())
	}
	return total, nil
}

// priceItems snapshots the current catalog price of every line.
func (s *OrderService) priceItems(ctx context.Context, lines []LineItem) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		item, err := s.priceItem(ctx, line)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *OrderService) priceItem(ctx context.Context, line LineItem) (models.OrderItem, error) {
	if !validQuantity(line.Quantity) {
		return models.OrderItem{}, ErrInvalidQuantity
	}
	product, err := s.catalog.GetProduct(ctx, line.ProductID)
	if err != nil {
		return models.OrderItem{}, fmt.Errorf("%w: product %s: %w", ErrCatalogLookupFailed, line.ProductID, err)
	}
	if !validPrice(product.Price) {
		return models.OrderItem{}, fmt.Errorf("%w: product %s has unusable price %s: %w",
			ErrCatalogLookupFailed, line.ProductID, product.Price, ErrInvalidInput)
	}
	return models.OrderItem{
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
		UnitPrice: product.Price,
	}, nil
}

// CreateOrder prices every line from the catalog and persists the order with its items in one
// transaction. The stored total and unit prices never change when catalog prices do.
func (s *OrderService) CreateOrder(ctx context.Context, req NewOrder) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if err := validateOrderFields(req); err != nil {
		return nil, err
	}

	items, err := s.priceItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	total, err := ComputeTotal(items)
	if err != nil {
		return nil, err
	}
	if total.GreaterThan(maxOrderTotal) {
		return nil, fmt.Errorf("%w: order total %s exceeds %s", ErrInvalidInput, total.StringFixed(2), maxOrderTotal)
	}

	now := time.Now().UTC()
	order := &models.Order{
		OwnerUserID:     req.OwnerUserID,
		Status:          models.OrderStatusPending,
		TotalAmount:     total,
		ShippingAddress: req.ShippingAddress,
		Items:           items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if c := req.GuestContact; c != nil {
		order.CustomerName = optional(c.Name)
		order.CustomerPhone = optional(c.Phone)
	}
	if c := req.AdminContact; c != nil {
		order.CustomerNameByAdmin = optional(c.Name)
		order.CustomerPhoneByAdmin = optional(c.Phone)
	}

	if err := s.orders.Create(ctx, order, req.IdempotencyKey); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.recorder.OrderCreated(order)
	s.log.WithFields(logrus.Fields{
		logging.FieldOrderID: order.ID,
		logging.FieldStatus:  order.Status,
		"total_amount":       order.TotalAmount.StringFixed(2),
		"items":              len(order.Items),
		"guest":              order.IsGuest(),
	}).Info("order created")
	return order, nil
}

// UpdateStatus overwrites the order status. Any recognised status may follow any other.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, status models.OrderStatus, callerIsAdmin bool) (*models.Order, error) {
	if !callerIsAdmin {
		return nil, ErrForbidden
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	order, err := s.orders.UpdateStatus(ctx, orderID, status)
	if err != nil {
		return nil, fmt.Errorf("update status of order %d: %w", orderID, err)
	}

	s.recorder.OrderStatusChanged(status)
	s.log.WithFields(logrus.Fields{
		logging.FieldOrderID: orderID,
		logging.FieldStatus:  status,
	}).Info("order status changed")
	return order, nil
}

// Get returns one order. Admins see every order, users only their own.
func (s *OrderService) Get(ctx context.Context, who models.Identity, orderID int64) (*models.Order, error) {
	if !who.IsAuthenticated() {
		return nil, ErrIdentityRequired
	}
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", orderID, err)
	}
	if !who.IsAdmin && !order.OwnedBy(who.UserID) {
		return nil, ErrNotFound
	}
	return order, nil
}

// History lists the caller's own orders, newest first.
func (s *OrderService) History(ctx context.Context, who models.Identity) ([]models.Order, error) {
	if !who.IsAuthenticated() {
		return nil, ErrIdentityRequired
	}
	orders, err := s.orders.List(ctx, OrderFilter{OwnerUserID: who.OwnerID()})
	if err != nil {
		return nil, fmt.Errorf("order history: %w", err)
	}
	return orders, nil
}

// List returns every order, newest first. Admin only.
func (s *OrderService) List(ctx context.Context, who models.Identity) ([]models.Order, error) {
	if !who.IsAdmin {
		return nil, ErrForbidden
	}
	orders, err := s.orders.List(ctx, OrderFilter{})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// Update applies an admin correction to the order header. The total is not editable.
func (s *OrderService) Update(ctx context.Context, who models.Identity, orderID int64, patch OrderPatch) (*models.Order, error) {
	if !who.IsAdmin {
		return nil, ErrForbidden
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if patch.ShippingAddress != nil && strings.TrimSpace(*patch.ShippingAddress) == "" {
		return nil, fmt.Errorf("%w: shipping address is required", ErrInvalidInput)
	}
	if err := validateContact(&models.Contact{Name: deref(patch.CustomerName), Phone: deref(patch.CustomerPhone)}, maxCustomerNameLen, maxCustomerPhoneLen); err != nil {
		return nil, err
	}
	if err := validateContact(&models.Contact{Name: deref(patch.CustomerNameByAdmin), Phone: deref(patch.CustomerPhoneByAdmin)}, maxAdminContactFieldLen, maxAdminContactFieldLen); err != nil {
		return nil, err
	}

	order, err := s.orders.Update(ctx, orderID, patch)
	if err != nil {
		return nil, fmt.Errorf("update order %d: %w", orderID, err)
	}
	if patch.Status != nil {
		s.recorder.OrderStatusChanged(*patch.Status)
	}
	return order, nil
}

// Delete removes an order and its items. Admin only.
func (s *OrderService) Delete(ctx context.Context, who models.Identity, orderID int64) error {
	if !who.IsAdmin {
		return ErrForbidden
	}
	if err := s.orders.Delete(ctx, orderID); err != nil {
		return fmt.Errorf("delete order %d: %w", orderID, err)
	}
	s.log.WithField(logging.FieldOrderID, orderID).Warn("order deleted")
	return nil
}

// AddItem appends a line to an existing order, priced from the catalog now.
func (s *OrderService) AddItem(ctx context.Context, who models.Identity, orderID int64, line LineItem) (*models.Order, error) {
	if !who.IsAdmin {
		return nil, ErrForbidden
	}
	item, err := s.priceItem(ctx, line)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.AddItem(ctx, orderID, item)
	if err != nil {
		return nil, fmt.Errorf("add item to order %d: %w", orderID, err)
	}
	return order, nil
}

// UpdateItem corrects the quantity or unit price of one order line.
func (s *OrderService) UpdateItem(ctx context.Context, who models.Identity, orderID, itemID int64, patch ItemPatch) (*models.Order, error) {
	if !who.IsAdmin {
		return nil, ErrForbidden
	}
	if patch.Quantity != nil && !validQuantity(*patch.Quantity) {
		return nil, ErrInvalidQuantity
	}
	if p := patch.UnitPrice; p != nil && !validPrice(*p) {
		return nil, fmt.Errorf("%w: unit price must be non-negative with at most two decimals", ErrInvalidInput)
	}
	order, err := s.orders.UpdateItem(ctx, orderID, itemID, patch)
	if err != nil {
		return nil, fmt.Errorf("update item %d of order %d: %w", itemID, orderID, err)
	}
	return order, nil
}

// DeleteItem removes one order line. The last line of an order cannot be removed.
func (s *OrderService) DeleteItem(ctx context.Context, who models.Identity, orderID, itemID int64) (*models.Order, error) {
	if !who.IsAdmin {
		return nil, ErrForbidden
	}
	order, err := s.orders.DeleteItem(ctx, orderID, itemID)
	if err != nil {
		return nil, fmt.Errorf("delete item %d of order %d: %w", itemID, orderID, err)
	}
	return order, nil
}

// orderForKey returns the order previously stored under an idempotency key.
func (s *OrderService) orderForKey(ctx context.Context, key string) (*models.Order, error) {
	return s.orders.FindByIdempotencyKey(ctx, key)
}

// validPrice accepts non-negative amounts with at most two decimals, the precision of stored prices.
func validPrice(p decimal.Decimal) bool {
	return !p.IsNegative() && p.Equal(p.Round(2))
}

func validateOrderFields(req NewOrder) error {
	if strings.TrimSpace(req.ShippingAddress) == "" {
		return fmt.Errorf("%w: shipping address is required", ErrInvalidInput)
	}
	if err := validateContact(req.GuestContact, maxCustomerNameLen, maxCustomerPhoneLen); err != nil {
		return err
	}
	return validateContact(req.AdminContact, maxAdminContactFieldLen, maxAdminContactFieldLen)
}

func validateContact(c *models.Contact, maxName, maxPhone int) error {
	if c == nil {
		return nil
	}
	if len([]rune(c.Name)) > maxName {
		return fmt.Errorf("%w: name longer than %d characters", ErrInvalidInput, maxName)
	}
	if len([]rune(c.Phone)) > maxPhone {
		return fmt.Errorf("%w: phone longer than %d characters", ErrInvalidInput, maxPhone)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
