package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/middleware"
	"storefront/services"
)

func GetCart(carts *services.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		who := middleware.IdentityFrom(c)
		cart, err := carts.GetOrCreateCart(c.Request.Context(), who)
		if err != nil {
			respondError(c, err)
			return
		}
		items, err := carts.ListItems(c.Request.Context(), who)
		if err != nil {
			respondError(c, err)
			return
		}
		cart.Items = items
		c.JSON(http.StatusOK, gin.H{"message": "Fetch success", "data": cart})
	}
}

// AddToCart merges the product into the caller's cart.
func AddToCart(carts *services.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			ProductID string `json:"productId" binding:"required"`
			Quantity  int    `json:"quantity"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, "Invalid request")
			return
		}

		item, err := carts.AddItem(c.Request.Context(), middleware.IdentityFrom(c), body.ProductID, body.Quantity)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Added to cart", "data": item})
	}
}

func UpdateCartItem(carts *services.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID, ok := paramID(c, "id")
		if !ok {
			return
		}
		var body struct {
			Quantity int `json:"quantity"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, "Invalid quantity")
			return
		}

		item, err := carts.UpdateItemQuantity(c.Request.Context(), middleware.IdentityFrom(c), itemID, body.Quantity)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Cart updated", "data": item})
	}
}

func RemoveCartItem(carts *services.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID, ok := paramID(c, "id")
		if !ok {
			return
		}
		if err := carts.RemoveItem(c.Request.Context(), middleware.IdentityFrom(c), itemID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Product removed from cart", "id": itemID})
	}
}

// GetUserCartAdmin shows any user's cart, read-only.
func GetUserCartAdmin(carts *services.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, err := carts.ViewCart(c.Request.Context(), middleware.IdentityFrom(c), c.Param("userId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Fetch success", "data": cart})
	}
}
