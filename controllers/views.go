package controllers

import (
	"github.com/gin-gonic/gin"

	"storefront/models"
)

func orderView(o *models.Order) gin.H {
	items := make([]gin.H, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, gin.H{
			"id":        item.ID,
			"productId": item.ProductID,
			"quantity":  item.Quantity,
			"unitPrice": item.UnitPrice.StringFixed(2),
			"subtotal":  item.Subtotal().StringFixed(2),
		})
	}
	return gin.H{
		"id":                   o.ID,
		"userId":               o.OwnerUserID,
		"status":               o.Status,
		"totalAmount":          o.TotalAmount.StringFixed(2),
		"shippingAddress":      o.ShippingAddress,
		"customerName":         o.CustomerName,
		"customerPhone":        o.CustomerPhone,
		"customerNameByAdmin":  o.CustomerNameByAdmin,
		"customerPhoneByAdmin": o.CustomerPhoneByAdmin,
		"items":                items,
		"createdAt":            o.CreatedAt,
		"updatedAt":            o.UpdatedAt,
	}
}

func ordersView(orders []models.Order) []gin.H {
	out := make([]gin.H, 0, len(orders))
	for i := range orders {
		out = append(out, orderView(&orders[i]))
	}
	return out
}

func productView(p *models.Product) gin.H {
	return gin.H{
		"id":          p.ID.Hex(),
		"name":        p.Name,
		"description": p.Description,
		"price":       p.Price.StringFixed(2),
		"stock":       p.Stock,
		"isActive":    p.Active,
		"createdAt":   p.CreatedAt,
		"updatedAt":   p.UpdatedAt,
	}
}

func productsView(products []models.Product) []gin.H {
	out := make([]gin.H, 0, len(products))
	for i := range products {
		out = append(out, productView(&products[i]))
	}
	return out
}

func userView(u *models.User) gin.H {
	return gin.H{
		"id":    u.ID.Hex(),
		"name":  u.Name,
		"email": u.Email,
		"role":  u.Role,
	}
}
