package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"

	"storefront/models"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is what a signed token says about its bearer.
type Claims struct {
	UserID    string
	Role      string
	ExpiresAt time.Time
}

// IssueToken signs an HS256 token for user valid for ttl.
func IssueToken(secret []byte, user *models.User, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": user.ID.Hex(),
		"role":   user.Role,
		"exp":    time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(secret)
}

// ParseToken verifies the signature and expiry of tokenString.
func ParseToken(secret []byte, tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	userID, _ := claims["userId"].(string)
	role, _ := claims["role"].(string)
	exp, _ := claims["exp"].(float64)
	if userID == "" {
		return Claims{}, ErrInvalidToken
	}
	return Claims{UserID: userID, Role: role, ExpiresAt: time.Unix(int64(exp), 0).UTC()}, nil
}
