package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront/middleware"
	"storefront/models"
	"storefront/services"
)

func GetOrdersAdmin(orders *services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := orders.List(c.Request.Context(), middleware.IdentityFrom(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Fetch orders success", "count": len(list), "data": ordersView(list)})
	}
}

// UpdateOrderAdmin applies a partial correction. An empty string clears an optional contact field.
func UpdateOrderAdmin(orders *services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var body struct {
			Status               *models.OrderStatus `json:"status"`
			ShippingAddress      *string             `json:"shippingAddress"`
			CustomerName         *string             `json:"customerName"`
			CustomerPhone        *string             `json:"customerPhone"`
			CustomerNameByAdmin  *string             `json:"customerNameByAdmin"`
			CustomerPhoneByAdmin *string             `json:"customerPhoneByAdmin"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, "Invalid request body")
			return
		}

		order, err := orders.Update(c.Request.Context(), middleware.IdentityFrom(c), id, services.OrderPatch{
			Status:               body.Status,
			ShippingAddress:      body.ShippingAddress,
			CustomerName:         body.CustomerName,
			CustomerPhone:        body.CustomerPhone,
			CustomerNameByAdmin:  body.CustomerNameByAdmin,
			CustomerPhoneByAdmin: body.CustomerPhoneByAdmin,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order updated", "data": orderView(order)})
	}
}

func DeleteOrderAdmin(orders *services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if err := orders.Delete(c.Request.Context(), middleware.IdentityFrom(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order deleted", "id": id})
	}
}

// UpdateOrderStatus sets any of the five statuses regardless of the current one.
func UpdateOrderStatus(orders *services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var body struct {
			Status models.OrderStatus `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, "Status is required")
			return
		}

		who := middleware.IdentityFrom(c)
		order, err := orders.UpdateStatus(c.Request.Context(), id, body.Status, who.IsAdmin)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order status updated", "data": orderView(order)})
	}
}

func AddOrderItemAdmin(orders *services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var body lineItemInput
		if err := c.ShouldBindJSON(&body); err != nil || body.ProductID == "" {
			badRequest(c, "Invalid request body")
			return
		}

		order, err := orders.AddItem(c.Request.Context(), middleware.IdentityFrom(c), id,
			services.LineItem{ProductID: body.ProductID, Quantity: body.Quantity})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order item added", "data": orderView(order)})
	}
}

func UpdateOrderItemAdmin(orders *services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		itemID, ok := paramID(c, "itemId")
		if !ok {
			return
		}
		var body struct {
			Quantity  *int             `json:"quantity"`
			UnitPrice *decimal.Decimal `json:"unitPrice"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, "Invalid request body")
			return
		}

		order, err := orders.UpdateItem(c.Request.Context(), middleware.IdentityFrom(c), id, itemID,
			services.ItemPatch{Quantity: body.Quantity, UnitPrice: body.UnitPrice})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order item updated", "data": orderView(order)})
	}
}

func DeleteOrderItemAdmin(orders *services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		itemID, ok := paramID(c, "itemId")
		if !ok {
			return
		}
		order, err := orders.DeleteItem(c.Request.Context(), middleware.IdentityFrom(c), id, itemID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order item removed", "data": orderView(order)})
	}
}
