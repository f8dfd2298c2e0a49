package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetProductsPublic lists active products only.
func GetProductsPublic(products ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := products.List(c.Request.Context(), true)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Fetch success", "data": productsView(list)})
	}
}
