package httpserver

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain"
	anonymoussvc "storefront/internal/service/anonymous"
	checkoutsvc "storefront/internal/service/checkout"
	customersvc "storefront/internal/service/customer"
	"storefront/internal/telemetry"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type ProductService interface {
	List(ctx context.Context, limit, offset int) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
}

type CartService interface {
	ResolveActiveCart(ctx context.Context, identity domain.Identity) (*domain.Cart, error)
	GetCart(ctx context.Context, cartID string) (*domain.Cart, error)
	SetLineQuantity(ctx context.Context, cartID, productID string, quantity int) (*domain.CartItem, error)
	UpdateCartQuantity(ctx context.Context, cartID, productID string, delta int) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, cartID, productID string) error
	ClearCart(ctx context.Context, cartID string) error
	ApplyCoupon(ctx context.Context, cartID, code string) (*domain.Coupon, error)
	ClearCoupon(ctx context.Context, cartID string) error
	ProvisionalTotals(ctx context.Context, cartID string, shippingEstimate, taxEstimate int64) (domain.Totals, error)
}

type CheckoutService interface {
	Finalize(ctx context.Context, cartID string, in checkoutsvc.FinalizeInput) (*domain.Order, error)
}

type OrderService interface {
	Get(ctx context.Context, number, userID string) (*domain.Order, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]domain.Order, error)
	Cancel(ctx context.Context, number, userID string) (*domain.Order, error)
}

type CustomerService interface {
	Signup(ctx context.Context, in customersvc.SignupInput) (*domain.Customer, error)
	Login(ctx context.Context, email, password string, pre domain.PreLogin) (*customersvc.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*customersvc.Session, error)
	LookupByToken(ctx context.Context, token string) (*domain.Customer, error)
	Logout(ctx context.Context, token string) error
}

type SessionService interface {
	Ensure(ctx context.Context, key string) (anonymoussvc.Session, bool, error)
	RememberCart(ctx context.Context, key, cartID string) error
	PreLogin(ctx context.Context, key string) domain.PreLogin
	TTLSeconds() int
}

// Deps are the collaborators the router dispatches to.
type Deps struct {
	Store        Pinger
	ProductSvc   ProductService
	CartSvc      CartService
	CheckoutSvc  CheckoutService
	OrderSvc     OrderService
	CustomerSvc  CustomerService
	AnonymousSvc SessionService
	Metrics      *telemetry.Metrics

	SessionCookie string
	SecureCookies bool
	CORSOrigins   []string
}

var errMissingDeps = errors.New("httpserver: product, cart, checkout, order, customer and anonymous services are required")

type api struct {
	deps   Deps
	logger *zap.Logger
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, deps Deps) (*gin.Engine, error) {
	if deps.ProductSvc == nil || deps.CartSvc == nil || deps.CheckoutSvc == nil ||
		deps.OrderSvc == nil || deps.CustomerSvc == nil || deps.AnonymousSvc == nil {
		return nil, errMissingDeps
	}
	if deps.SessionCookie == "" {
		deps.SessionCookie = "sid"
	}
	a := &api{deps: deps, logger: logger}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(requestLogger(logger, deps.Metrics), gin.Recovery())
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Store))
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	router.GET("/products", a.listProducts)
	router.GET("/products/:id", a.getProduct)

	shop := router.Group("/", a.identity(), a.session())
	shop.POST("/me/signup", a.signup)
	shop.POST("/me/login", a.login)
	shop.POST("/me/token", a.refreshToken)
	shop.POST("/me/logout", a.requireUser(), a.logout)
	shop.GET("/me", a.requireUser(), a.me)

	cart := shop.Group("/cart")
	cart.GET("", a.getCart)
	cart.PUT("/items/:productId", a.setItem)
	cart.POST("/items/:productId", a.adjustItem)
	cart.DELETE("/items/:productId", a.removeItem)
	cart.DELETE("/items", a.clearCart)
	cart.PUT("/coupon", a.applyCoupon)
	cart.DELETE("/coupon", a.clearCoupon)
	cart.GET("/totals", a.cartTotals)

	shop.POST("/checkout", a.checkout)

	orders := shop.Group("/orders", a.requireUser())
	orders.GET("", a.listOrders)
	orders.GET("/:number", a.getOrder)
	orders.POST("/:number/cancel", a.cancelOrder)

	return router, nil
}
