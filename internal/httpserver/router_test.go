package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront/internal/address"
	"storefront/internal/domain"
	anonymoussvc "storefront/internal/service/anonymous"
	cartsvc "storefront/internal/service/cart"
	checkoutsvc "storefront/internal/service/checkout"
	couponsvc "storefront/internal/service/coupon"
	customersvc "storefront/internal/service/customer"
	ordersvc "storefront/internal/service/order"
	productsvc "storefront/internal/service/product"
	"storefront/internal/store/memory"
	"storefront/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testAPI struct {
	router *gin.Engine
	st     *memory.Store
}

func newTestAPI(t *testing.T) testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := memory.New()
	repos := st.Repos()
	coupons := couponsvc.NewValidator(nil)
	carts := cartsvc.New(st, coupons, cartsvc.Config{DefaultCurrency: "JPY"}, nil)
	anon := anonymoussvc.New(repos.Sessions, time.Hour)

	router, err := buildRouter(zap.NewNop(), Deps{
		Store:         st,
		ProductSvc:    productsvc.New(repos.Products),
		CartSvc:       carts,
		CheckoutSvc:   checkoutsvc.New(st, coupons, address.NewJPNormalizer(), nil),
		OrderSvc:      ordersvc.New(st, nil),
		CustomerSvc:   customersvc.New(repos.Customers, repos.Tokens, carts, nil, customersvc.WithKeyRotator(anon)),
		AnonymousSvc:  anon,
		Metrics:       telemetry.New("test"),
		SessionCookie: "sid",
	})
	require.NoError(t, err)
	return testAPI{router: router, st: st}
}

func (a testAPI) product(t *testing.T, slug string, price int64, currency string, stock int) domain.Product {
	t.Helper()
	p, err := a.st.Repos().Products.Upsert(context.Background(), domain.Product{
		Title: slug, Slug: slug, Price: price, Currency: currency, StockQuantity: stock, IsActive: true,
	})
	require.NoError(t, err)
	return *p
}

type client struct {
	t      *testing.T
	api    testAPI
	cookie *http.Cookie
	token  string
}

func (c *client) do(method, path, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.api.router.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "sid" {
			c.cookie = ck
		}
	}
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type cartBody struct {
	Cart   domain.Cart   `json:"cart"`
	Totals domain.Totals `json:"totals"`
}

type errBody struct {
	Error errorBody `json:"error"`
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	c := &client{t: t, api: api}

	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/readyz", "").Code)
	metrics := c.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "test_http_requests_total")
}

func TestCheckoutFlow(t *testing.T) {
	api := newTestAPI(t)
	p := api.product(t, "product-a", 1000, "JPY", 5)
	pct := decimal.RequireFromString("10")
	_, err := api.st.Repos().Coupons.Upsert(context.Background(), domain.Coupon{Code: "SAVE10", PercentOff: &pct, Active: true})
	require.NoError(t, err)
	c := &client{t: t, api: api}

	rec := c.do(http.MethodPut, "/cart/items/"+p.ID, `{"quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, c.cookie)
	var body cartBody
	decode(t, rec, &body)
	require.Len(t, body.Cart.Items, 1)
	assert.Equal(t, int64(2000), body.Totals.Subtotal)

	rec = c.do(http.MethodPut, "/cart/coupon", `{"code":"save10"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &body)
	assert.Equal(t, int64(1800), body.Totals.Total)

	rec = c.do(http.MethodGet, "/cart/totals?shipping=300&tax=0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var totals domain.Totals
	decode(t, rec, &totals)
	assert.Equal(t, int64(2100), totals.Total)

	rec = c.do(http.MethodPost, "/checkout", `{
		"email": "buyer@example.com",
		"shipping_address": {"full_name":"Taro","line1":"1-1","city":"Chiyoda","prefecture":"Tokyo","postal_code":"1000001"},
		"shipping_amount": 300
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var placed struct {
		Order domain.Order `json:"order"`
	}
	decode(t, rec, &placed)
	assert.Equal(t, int64(2100), placed.Order.Total)
	assert.Equal(t, domain.OrderPendingPayment, placed.Order.Status)
	assert.Equal(t, "100-0001", placed.Order.ShippingAddress["postal_code"])

	rec = c.do(http.MethodGet, "/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &body)
	assert.Empty(t, body.Cart.Items)

	rec = c.do(http.MethodPost, "/checkout", `{"email":"buyer@example.com","shipping_address":{"full_name":"Taro","line1":"1-1","city":"Chiyoda","prefecture":"Tokyo","postal_code":"1000001"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var eb errBody
	decode(t, rec, &eb)
	assert.Equal(t, "checkout", eb.Error.Kind)
}

func TestLoginMergesAnonymousCart(t *testing.T) {
	api := newTestAPI(t)
	x := api.product(t, "x", 100, "JPY", 50)
	c := &client{t: t, api: api}

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/cart/items/"+x.ID, `{"delta":2}`).Code)
	anonCookie := c.cookie.Value

	rec := c.do(http.MethodPost, "/me/signup", `{"email":"shopper@example.com","password":"Abcdefg1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = c.do(http.MethodPost, "/me/login", `{"email":"shopper@example.com","password":"Abcdefg1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	decode(t, rec, &login)
	require.NotEmpty(t, login.AccessToken)
	assert.NotEqual(t, anonCookie, c.cookie.Value)
	c.token = login.AccessToken

	rec = c.do(http.MethodGet, "/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body cartBody
	decode(t, rec, &body)
	require.Len(t, body.Cart.Items, 1)
	assert.Equal(t, 2, body.Cart.Items[0].Quantity)
	require.NotNil(t, body.Cart.UserID)

	rec = c.do(http.MethodGet, "/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"shopper@example.com"`)

	rec = c.do(http.MethodGet, "/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodPost, "/me/token", `{"refresh_token":"`+login.RefreshToken+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &login)
	c.token = login.AccessToken
	assert.Equal(t, http.StatusUnauthorized,
		c.do(http.MethodPost, "/me/token", `{"refresh_token":"stale"}`).Code)

	require.Equal(t, http.StatusNoContent, c.do(http.MethodPost, "/me/logout", "").Code)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/me", "").Code)
}

func TestErrorResponses(t *testing.T) {
	api := newTestAPI(t)
	usd := api.product(t, "usd", 500, "USD", 5)
	c := &client{t: t, api: api}

	rec := c.do(http.MethodPut, "/cart/items/missing", `{"quantity":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.do(http.MethodPut, "/cart/items/"+usd.ID, `{"quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var eb errBody
	decode(t, rec, &eb)
	assert.Equal(t, "currency_mismatch", eb.Error.Kind)

	rec = c.do(http.MethodPut, "/cart/items/"+usd.ID, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodPut, "/cart/coupon", `{"code":"NOPE"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodGet, "/cart/totals?shipping=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodPost, "/me/login", `{"email":"ghost@example.com","password":"Abcdefg1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/orders", "").Code)

	c.token = "forged"
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/cart", "").Code)
}

func TestRespondErrorSetsRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", func(c *gin.Context) { respondError(c, zap.NewNop(), domain.ErrCartUnavailable) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.EUNAUTHORIZED, http.StatusUnauthorized},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.EUNAVAILABLE, http.StatusServiceUnavailable},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{"unknown", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorCodeToHTTPStatus(tt.code), tt.code)
	}
}

func TestBuildRouterRequiresServices(t *testing.T) {
	_, err := buildRouter(zap.NewNop(), Deps{})
	assert.ErrorIs(t, err, errMissingDeps)
}
