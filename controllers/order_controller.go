package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/middleware"
	"storefront/models"
	"storefront/services"
)

// IdempotencyKeyHeader lets clients retry a checkout without placing a second order.
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLen = 255

type lineItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func lineItems(in []lineItemInput) []services.LineItem {
	out := make([]services.LineItem, 0, len(in))
	for _, item := range in {
		out = append(out, services.LineItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return out
}

func contact(name, phone string) *models.Contact {
	if name == "" && phone == "" {
		return nil
	}
	return &models.Contact{Name: name, Phone: phone}
}

// Checkout places an order from the submitted items. Authenticated callers own the order,
// anyone else places a guest order. The caller's cart is not read or cleared.
func Checkout(checkout *services.CheckoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Items                []lineItemInput `json:"items"`
			ShippingAddress      string          `json:"shippingAddress"`
			CustomerName         string          `json:"customerName"`
			CustomerPhone        string          `json:"customerPhone"`
			CustomerNameByAdmin  string          `json:"customerNameByAdmin"`
			CustomerPhoneByAdmin string          `json:"customerPhoneByAdmin"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
		if len(key) > maxIdempotencyKeyLen {
			badRequest(c, "Idempotency-Key too long")
			return
		}

		res, err := checkout.Checkout(c.Request.Context(), middleware.IdentityFrom(c), services.CheckoutRequest{
			Items:           lineItems(body.Items),
			ShippingAddress: body.ShippingAddress,
			GuestContact:    contact(body.CustomerName, body.CustomerPhone),
			AdminContact:    contact(body.CustomerNameByAdmin, body.CustomerPhoneByAdmin),
			IdempotencyKey:  key,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		if res.Replayed {
			c.JSON(http.StatusOK, gin.H{"message": "Order already placed", "data": orderView(res.Order)})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Order created", "data": orderView(res.Order)})
	}
}

func GetOrderHistory(orders *services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := orders.History(c.Request.Context(), middleware.IdentityFrom(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Fetch success", "count": len(list), "data": ordersView(list)})
	}
}

func GetOrder(orders *services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		order, err := orders.Get(c.Request.Context(), middleware.IdentityFrom(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Fetch success", "data": orderView(order)})
	}
}
