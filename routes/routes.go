package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"storefront/controllers"
	"storefront/logging"
	"storefront/metrics"
	"storefront/middleware"
	"storefront/services"
)

// Users backs registration, login and the token blacklist.
type Users interface {
	controllers.UserStore
	middleware.TokenBlacklist
}

type Deps struct {
	Carts    *services.CartService
	Orders   *services.OrderService
	Checkout *services.CheckoutService
	Products controllers.ProductStore
	Users    Users

	JWTSecret      []byte
	TokenTTL       time.Duration
	RequestTimeout time.Duration
	AllowOrigins   []string

	Metrics *metrics.ServerMetrics
	Health  func(ctx context.Context) error
	Log     *logrus.Entry
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(gin.Recovery(), logging.Middleware(d.Log))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}
	origins := d.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", controllers.IdempotencyKeyHeader, logging.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", logging.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))
	r.GET("/health", health(d.Health))

	api := r.Group("/api")
	if d.RequestTimeout > 0 {
		api.Use(middleware.Timeout(d.RequestTimeout))
	}
	api.Use(middleware.Identify(d.JWTSecret, d.Users, d.Log))
	{
		api.POST("/register", controllers.Register(d.Users))
		api.POST("/login", controllers.Login(d.Users, d.JWTSecret, d.TokenTTL))
		api.POST("/logout", controllers.Logout(d.Users))

		api.GET("/products", controllers.GetProductsPublic(d.Products))
		api.POST("/orders", controllers.Checkout(d.Checkout))

		protected := api.Group("/")
		protected.Use(middleware.RequireAuth())
		{
			protected.GET("/cart", controllers.GetCart(d.Carts))
			protected.POST("/cart/items", controllers.AddToCart(d.Carts))
			protected.PUT("/cart/items/:id", controllers.UpdateCartItem(d.Carts))
			protected.DELETE("/cart/items/:id", controllers.RemoveCartItem(d.Carts))

			protected.GET("/orders/history", controllers.GetOrderHistory(d.Orders))
			protected.GET("/orders/:id", controllers.GetOrder(d.Orders))

			admin := protected.Group("/admin")
			admin.Use(middleware.AdminOnly())
			{
				admin.POST("/products", controllers.CreateProduct(d.Products))
				admin.GET("/products", controllers.GetProductsAdmin(d.Products))
				admin.PUT("/products/:id", controllers.UpdateProduct(d.Products))
				admin.DELETE("/products/:id", controllers.DeleteProduct(d.Products))

				admin.GET("/orders", controllers.GetOrdersAdmin(d.Orders))
				admin.PUT("/orders/:id", controllers.UpdateOrderAdmin(d.Orders))
				admin.DELETE("/orders/:id", controllers.DeleteOrderAdmin(d.Orders))
				admin.POST("/orders/:id/status", controllers.UpdateOrderStatus(d.Orders))
				admin.POST("/orders/:id/items", controllers.AddOrderItemAdmin(d.Orders))
				admin.PUT("/orders/:id/items/:itemId", controllers.UpdateOrderItemAdmin(d.Orders))
				admin.DELETE("/orders/:id/items/:itemId", controllers.DeleteOrderItemAdmin(d.Orders))

				admin.GET("/carts/:userId", controllers.GetUserCartAdmin(d.Carts))
			}
		}
	}
}

func health(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_error"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
