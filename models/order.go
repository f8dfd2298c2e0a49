package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists every recognised status. Any status may be set from any other.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Contact is a free-text name/phone pair. Guest checkouts fill CustomerName/CustomerPhone,
// orders entered by staff on behalf of a customer fill the ByAdmin pair.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type Order struct {
	ID                   int64           `json:"id"`
	OwnerUserID          *string         `json:"userId"`
	Status               OrderStatus     `json:"status"`
	TotalAmount          decimal.Decimal `json:"totalAmount"`
	ShippingAddress      string          `json:"shippingAddress"`
	CustomerName         *string         `json:"customerName"`
	CustomerPhone        *string         `json:"customerPhone"`
	CustomerNameByAdmin  *string         `json:"customerNameByAdmin"`
	CustomerPhoneByAdmin *string         `json:"customerPhoneByAdmin"`
	Items                []OrderItem     `json:"items"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

// IsGuest reports whether the order has no owning user.
func (o *Order) IsGuest() bool {
	return o.OwnerUserID == nil
}

// OwnedBy reports whether userID owns the order.
func (o *Order) OwnedBy(userID string) bool {
	return o.OwnerUserID != nil && *o.OwnerUserID == userID
}

// OrderItem carries the unit price captured when the order was placed.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"orderId"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Subtotal is Quantity × UnitPrice.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
