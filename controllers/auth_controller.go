package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"storefront/middleware"
	"storefront/models"
	"storefront/services"
)

const bcryptCost = 10

// UserStore is satisfied by *database.MongoUsers and *database.MemoryUsers.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
}

// Register creates a customer account. Admin accounts are created from the CLI.
func Register(users UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Name     string `json:"name" binding:"required"`
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required,min=6"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "Invalid input")
			return
		}

		user, err := NewUser(input.Name, input.Email, input.Password, models.RoleCustomer)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := users.Create(c.Request.Context(), user); err != nil {
			if errors.Is(err, services.ErrDuplicateKey) {
				c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
				return
			}
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "User registered successfully", "user": userView(user)})
	}
}

// NewUser hashes password and returns an unsaved account.
func NewUser(name, email, password, role string) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}
	return &models.User{Name: name, Email: email, Password: string(hashed), Role: role}, nil
}

func Login(users UserStore, secret []byte, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "Invalid input")
			return
		}

		user, err := users.FindByEmail(c.Request.Context(), input.Email)
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}

		token, err := middleware.IssueToken(secret, user, ttl)
		if err != nil {
			respondError(c, err)
			return
		}

		view := userView(user)
		view["token"] = token
		c.JSON(http.StatusOK, gin.H{"user": view})
	}
}

// Logout blacklists the caller's token until it expires.
func Logout(users UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, claims, ok := middleware.ClaimsFrom(c)
		if !ok {
			badRequest(c, "Token required")
			return
		}
		if err := users.Revoke(c.Request.Context(), token, claims.ExpiresAt); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
	}
}
