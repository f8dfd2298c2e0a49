package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"storefront/models"
)

const (
	identityKey = "identity"
	tokenKey    = "token"
	claimsKey   = "claims"
)

// TokenBlacklist reports tokens revoked by logout.
type TokenBlacklist interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// BearerToken returns the token in the Authorization header, with or without the Bearer prefix.
func BearerToken(c *gin.Context) string {
	tokenString := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(tokenString) > 7 && strings.EqualFold(tokenString[:7], "Bearer ") {
		tokenString = strings.TrimSpace(tokenString[7:])
	}
	return tokenString
}

// Identify resolves the caller. Requests without a token continue as guests; a token that is
// present but invalid or revoked is rejected.
func Identify(secret []byte, blacklist TokenBlacklist, log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := BearerToken(c)
		if tokenString == "" {
			c.Set(identityKey, models.Guest())
			c.Next()
			return
		}

		revoked, err := blacklist.IsRevoked(c.Request.Context(), tokenString)
		if err != nil {
			log.WithError(err).Error("token blacklist lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if revoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token has been blacklisted"})
			return
		}

		claims, err := ParseToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(identityKey, models.Authenticated(claims.UserID, claims.Role == models.RoleAdmin))
		c.Set(tokenKey, tokenString)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireAuth rejects guests.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IdentityFrom(c).IsAuthenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token required"})
			return
		}
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IdentityFrom(c).IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied: admin only"})
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the identity set by Identify, or a guest.
func IdentityFrom(c *gin.Context) models.Identity {
	if v, ok := c.Get(identityKey); ok {
		if who, ok := v.(models.Identity); ok {
			return who
		}
	}
	return models.Guest()
}

// ClaimsFrom returns the verified token and its claims, if the caller sent one.
func ClaimsFrom(c *gin.Context) (string, Claims, bool) {
	token := c.GetString(tokenKey)
	v, ok := c.Get(claimsKey)
	if !ok || token == "" {
		return "", Claims{}, false
	}
	claims, ok := v.(Claims)
	return token, claims, ok
}
