package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront/models"
	"storefront/services"
)

// ProductStore is satisfied by *database.MongoCatalog and *database.MemoryCatalog.
type ProductStore interface {
	Create(ctx context.Context, p *models.Product) error
	List(ctx context.Context, activeOnly bool) ([]models.Product, error)
	Update(ctx context.Context, productID string, patch models.ProductPatch) (*models.Product, error)
	Delete(ctx context.Context, productID string) error
}

func validPrice(p decimal.Decimal) bool {
	return !p.IsNegative() && p.Equal(p.Round(2))
}

func respondProductError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrProductNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	respondError(c, err)
}

func CreateProduct(products ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Name        string           `json:"name" binding:"required"`
			Description string           `json:"description"`
			Price       *decimal.Decimal `json:"price" binding:"required"`
			Stock       int              `json:"stock" binding:"gte=0"`
			Active      *bool            `json:"isActive"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, "All fields are required")
			return
		}
		if !validPrice(*body.Price) {
			badRequest(c, "Price must be non-negative with at most two decimals")
			return
		}

		product := models.Product{
			Name:        body.Name,
			Description: body.Description,
			Price:       *body.Price,
			Stock:       body.Stock,
			Active:      body.Active == nil || *body.Active,
		}
		if err := products.Create(c.Request.Context(), &product); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Product created", "product": productView(&product)})
	}
}

func GetProductsAdmin(products ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := products.List(c.Request.Context(), false)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":  "Fetch products success",
			"count":    len(list),
			"products": productsView(list),
		})
	}
}

func UpdateProduct(products ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var patch models.ProductPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			badRequest(c, "Invalid request body")
			return
		}
		if patch.Price != nil && !validPrice(*patch.Price) {
			badRequest(c, "Price must be non-negative with at most two decimals")
			return
		}
		if patch.Stock != nil && *patch.Stock < 0 {
			badRequest(c, "Stock must not be negative")
			return
		}

		updated, err := products.Update(c.Request.Context(), c.Param("id"), patch)
		if err != nil {
			respondProductError(c, err)
			return
		}
		c.JSON(http.StatusOK, productView(updated))
	}
}

func DeleteProduct(products ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := products.Delete(c.Request.Context(), id); err != nil {
			respondProductError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Product deleted", "id": id})
	}
}
