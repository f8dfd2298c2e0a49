package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/logging"
	"storefront/models"
)

var testSecret = []byte("test-secret")

type revokedSet map[string]bool

func (r revokedSet) IsRevoked(_ context.Context, token string) (bool, error) {
	return r[token], nil
}

func newEngine(blacklist TokenBlacklist, guards ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Identify(testSecret, blacklist, logging.Discard()))
	handlers := append(guards, func(c *gin.Context) {
		who := IdentityFrom(c)
		c.JSON(http.StatusOK, gin.H{"userId": who.UserID, "admin": who.IsAdmin})
	})
	r.GET("/whoami", handlers...)
	return r
}

func issue(t *testing.T, role string, ttl time.Duration) (string, string) {
	t.Helper()
	user := &models.User{ID: primitive.NewObjectID(), Role: role}
	token, err := IssueToken(testSecret, user, ttl)
	require.NoError(t, err)
	return token, user.ID.Hex()
}

func get(r *gin.Engine, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestIdentifyWithoutTokenIsGuest(t *testing.T) {
	w := get(newEngine(revokedSet{}), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":"","admin":false}`, w.Body.String())
}

func TestIdentifyResolvesUserAndRole(t *testing.T) {
	token, id := issue(t, models.RoleAdmin, time.Hour)
	w := get(newEngine(revokedSet{}), token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":"`+id+`","admin":true}`, w.Body.String())
}

func TestIdentifyRejectsBadTokens(t *testing.T) {
	expired, _ := issue(t, models.RoleCustomer, -time.Minute)
	revoked, _ := issue(t, models.RoleCustomer, time.Hour)
	r := newEngine(revokedSet{revoked: true})

	assert.Equal(t, http.StatusUnauthorized, get(r, expired).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, revoked).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "not-a-jwt").Code)
}

func TestRequireAuthAndAdminOnly(t *testing.T) {
	customer, _ := issue(t, models.RoleCustomer, time.Hour)
	admin, _ := issue(t, models.RoleAdmin, time.Hour)

	authed := newEngine(revokedSet{}, RequireAuth())
	assert.Equal(t, http.StatusUnauthorized, get(authed, "").Code)
	assert.Equal(t, http.StatusOK, get(authed, customer).Code)

	adminOnly := newEngine(revokedSet{}, RequireAuth(), AdminOnly())
	assert.Equal(t, http.StatusForbidden, get(adminOnly, customer).Code)
	assert.Equal(t, http.StatusOK, get(adminOnly, admin).Code)
}

func TestParseTokenRejectsOtherSecret(t *testing.T) {
	token, _ := issue(t, models.RoleCustomer, time.Hour)
	_, err := ParseToken([]byte("other"), token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
}
