package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/controllers"
	"storefront/database"
	"storefront/logging"
	"storefront/metrics"
	"storefront/models"
	"storefront/services"
)

type testAPI struct {
	t       *testing.T
	engine  *gin.Engine
	catalog *database.MemoryCatalog
	users   *database.MemoryUsers
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logging.Discard()
	catalog := database.NewMemoryCatalog()
	users := database.NewMemoryUsers()
	m := metrics.NewServerMetrics("test", prometheus.NewRegistry())
	orders := services.NewOrderService(database.NewMemoryOrders(), catalog, m, log)

	r := gin.New()
	RegisterRoutes(r, Deps{
		Carts:          services.NewCartService(database.NewMemoryCarts(), catalog, log),
		Orders:         orders,
		Checkout:       services.NewCheckoutService(orders, log),
		Products:       catalog,
		Users:          users,
		JWTSecret:      []byte("routes-test"),
		TokenTTL:       time.Hour,
		RequestTimeout: time.Second,
		AllowOrigins:   []string{"*"},
		Metrics:        m,
		Log:            log,
	})
	return &testAPI{t: t, engine: r, catalog: catalog, users: users}
}

func (a *testAPI) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

// login registers (or creates, for admins) an account and returns its token and id.
func (a *testAPI) login(email, role string) (string, string) {
	a.t.Helper()
	if role == models.RoleAdmin {
		user, err := controllers.NewUser("Admin", email, "password1", models.RoleAdmin)
		require.NoError(a.t, err)
		require.NoError(a.t, a.users.Create(context.Background(), user))
	} else {
		w := a.do(http.MethodPost, "/api/register", "", gin.H{"name": "Shopper", "email": email, "password": "password1"})
		require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	}

	w := a.do(http.MethodPost, "/api/login", "", gin.H{"email": email, "password": "password1"})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		User struct {
			ID    string `json:"id"`
			Token string `json:"token"`
		} `json:"user"`
	}
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.User.Token, resp.User.ID
}

type orderBody struct {
	Data struct {
		ID          int64   `json:"id"`
		UserID      *string `json:"userId"`
		Status      string  `json:"status"`
		TotalAmount string  `json:"totalAmount"`
		Items       []struct {
			ID        int64  `json:"id"`
			UnitPrice string `json:"unitPrice"`
		} `json:"items"`
	} `json:"data"`
}

func decodeOrder(t *testing.T, w *httptest.ResponseRecorder) orderBody {
	t.Helper()
	var body orderBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestGuestCheckout(t *testing.T) {
	api := newTestAPI(t)
	p1 := api.catalog.MustPut("Mug", decimal.RequireFromString("12.75"))

	w := api.do(http.MethodPost, "/api/orders", "", gin.H{
		"items":           []gin.H{{"productId": p1, "quantity": 2}},
		"shippingAddress": "1 Main St",
		"customerName":    "Dana",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	order := decodeOrder(t, w)
	assert.Nil(t, order.Data.UserID)
	assert.Equal(t, "pending", order.Data.Status)
	assert.Equal(t, "25.50", order.Data.TotalAmount)
	require.Len(t, order.Data.Items, 1)
	assert.Equal(t, "12.75", order.Data.Items[0].UnitPrice)
}

func TestCheckoutErrors(t *testing.T) {
	api := newTestAPI(t)
	p1 := api.catalog.MustPut("Mug", decimal.RequireFromString("1.00"))

	w := api.do(http.MethodPost, "/api/orders", "", gin.H{"items": []gin.H{}, "shippingAddress": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, "/api/orders", "", gin.H{
		"items": []gin.H{{"productId": "ffffffffffffffffffffffff", "quantity": 1}}, "shippingAddress": "x",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "catalog lookup failed")

	w = api.do(http.MethodPost, "/api/orders", "", gin.H{
		"items": []gin.H{{"productId": p1, "quantity": 0}}, "shippingAddress": "x",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, "/api/orders", "bogus", gin.H{
		"items": []gin.H{{"productId": p1, "quantity": 1}}, "shippingAddress": "x",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckoutIdempotencyKey(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.login("alice@example.com", models.RoleCustomer)
	p1 := api.catalog.MustPut("Mug", decimal.RequireFromString("3.00"))
	body := gin.H{"items": []gin.H{{"productId": p1, "quantity": 1}}, "shippingAddress": "x"}

	first := api.do(http.MethodPost, "/api/orders", token, body, controllers.IdempotencyKeyHeader, "abc")
	require.Equal(t, http.StatusCreated, first.Code)
	second := api.do(http.MethodPost, "/api/orders", token, body, controllers.IdempotencyKeyHeader, "abc")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, decodeOrder(t, first).Data.ID, decodeOrder(t, second).Data.ID)

	guest := api.do(http.MethodPost, "/api/orders", "", body, controllers.IdempotencyKeyHeader, "abc")
	assert.Equal(t, http.StatusConflict, guest.Code)

	guestBody := gin.H{"items": []gin.H{{"productId": p1, "quantity": 1}}, "shippingAddress": "Alice St 1"}
	require.Equal(t, http.StatusCreated,
		api.do(http.MethodPost, "/api/orders", "", guestBody, controllers.IdempotencyKeyHeader, "g-1").Code)
	otherGuest := gin.H{"items": []gin.H{{"productId": p1, "quantity": 9}}, "shippingAddress": "Bob Rd"}
	w := api.do(http.MethodPost, "/api/orders", "", otherGuest, controllers.IdempotencyKeyHeader, "g-1")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.NotContains(t, w.Body.String(), "Alice St 1")

	huge := gin.H{"items": []gin.H{{"productId": p1, "quantity": int64(1) << 31}}, "shippingAddress": "x"}
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/orders", "", huge).Code)
}

func TestCartFlowAndCheckoutKeepsCart(t *testing.T) {
	api := newTestAPI(t)
	token, userID := api.login("alice@example.com", models.RoleCustomer)
	p1 := api.catalog.MustPut("Mug", decimal.RequireFromString("7.00"))

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/cart", "", nil).Code)

	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/cart/items", token, gin.H{"productId": p1, "quantity": 2}).Code)
	w := api.do(http.MethodPost, "/api/cart/items", token, gin.H{"productId": p1, "quantity": 3})
	require.Equal(t, http.StatusOK, w.Code)

	var added struct {
		Data models.CartItem `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &added))
	assert.Equal(t, 5, added.Data.Quantity)

	assert.Equal(t, http.StatusBadRequest,
		api.do(http.MethodPost, "/api/cart/items", token, gin.H{"productId": p1, "quantity": 0}).Code)

	w = api.do(http.MethodPost, "/api/orders", token, gin.H{
		"items": []gin.H{{"productId": p1, "quantity": 1}}, "shippingAddress": "x",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	order := decodeOrder(t, w)
	require.NotNil(t, order.Data.UserID)
	assert.Equal(t, userID, *order.Data.UserID)

	w = api.do(http.MethodGet, "/api/cart", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cart struct {
		Data models.Cart `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cart))
	require.Len(t, cart.Data.Items, 1)
	assert.Equal(t, 5, cart.Data.Items[0].Quantity)

	itemPath := "/api/cart/items/" + itoa(added.Data.ID)
	other, _ := api.login("bob@example.com", models.RoleCustomer)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, itemPath, other, nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodPut, itemPath, token, gin.H{"quantity": 9}).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodDelete, itemPath, token, nil).Code)
}

func TestOrderAccessAndAdminRoutes(t *testing.T) {
	api := newTestAPI(t)
	alice, _ := api.login("alice@example.com", models.RoleCustomer)
	bob, _ := api.login("bob@example.com", models.RoleCustomer)
	admin, _ := api.login("root@example.com", models.RoleAdmin)
	p1 := api.catalog.MustPut("Mug", decimal.RequireFromString("12.75"))
	p2 := api.catalog.MustPut("Spoon", decimal.RequireFromString("1.10"))

	w := api.do(http.MethodPost, "/api/orders", alice, gin.H{
		"items": []gin.H{{"productId": p1, "quantity": 2}}, "shippingAddress": "x",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	order := decodeOrder(t, w)
	orderPath := "/api/orders/" + itoa(order.Data.ID)
	adminPath := "/api/admin/orders/" + itoa(order.Data.ID)

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, orderPath, alice, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, orderPath, bob, nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, orderPath, admin, nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/orders/history", alice, nil).Code)

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, adminPath+"/status", alice, gin.H{"status": "shipped"}).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, adminPath+"/status", admin, gin.H{"status": "lost"}).Code)
	w = api.do(http.MethodPost, adminPath+"/status", admin, gin.H{"status": "shipped"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "shipped", decodeOrder(t, w).Data.Status)
	w = api.do(http.MethodPost, adminPath+"/status", admin, gin.H{"status": "pending"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending", decodeOrder(t, w).Data.Status)

	w = api.do(http.MethodPost, adminPath+"/items", admin, gin.H{"productId": p2, "quantity": 3})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "28.80", decodeOrder(t, w).Data.TotalAmount)

	firstItem := itoa(order.Data.Items[0].ID)
	w = api.do(http.MethodPut, adminPath+"/items/"+firstItem, admin, gin.H{"unitPrice": "10.00"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "23.30", decodeOrder(t, w).Data.TotalAmount)

	w = api.do(http.MethodGet, "/api/admin/orders", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	assert.Equal(t, http.StatusOK, api.do(http.MethodDelete, adminPath, admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, orderPath, alice, nil).Code)
}

func TestProductRoutes(t *testing.T) {
	api := newTestAPI(t)
	admin, _ := api.login("root@example.com", models.RoleAdmin)

	assert.Equal(t, http.StatusBadRequest,
		api.do(http.MethodPost, "/api/admin/products", admin, gin.H{"name": "Mug", "price": "1.005"}).Code)

	w := api.do(http.MethodPost, "/api/admin/products", admin, gin.H{"name": "Mug", "price": 4.5, "stock": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var created struct {
		Product struct {
			ID    string `json:"id"`
			Price string `json:"price"`
		} `json:"product"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "4.50", created.Product.Price)

	w = api.do(http.MethodPut, "/api/admin/products/"+created.Product.ID, admin, gin.H{"isActive": false})
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Fetch success","data":[]}`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, "/api/admin/products/ffffffffffffffffffffffff", admin, nil).Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.login("alice@example.com", models.RoleCustomer)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/logout", "", nil).Code)
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/logout", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/cart", token, nil).Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	api := newTestAPI(t)
	api.login("alice@example.com", models.RoleCustomer)

	w := api.do(http.MethodPost, "/api/register", "", gin.H{"name": "Again", "email": "ALICE@example.com", "password": "password1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodPost, "/api/login", "", gin.H{"email": "alice@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
