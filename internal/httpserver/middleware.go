package httpserver

import (
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	customerKey   = "customer"
	sessionKeyKey = "session_key"
	bearerPrefix  = "Bearer "
)

// requestLogger logs every request through zap and records HTTP metrics.
func requestLogger(logger *zap.Logger, metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		status := c.Writer.Status()
		metrics.ObserveHTTP(c.Request.Method, route, status, elapsed.Seconds())

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
			zap.String("client_ip", c.ClientIP()),
		}
		if status >= http.StatusInternalServerError {
			logger.Warn("http request", fields...)
			return
		}
		logger.Debug("http request", fields...)
	}
}

// identity resolves a bearer token to a customer. Requests without a token
// pass through anonymously; an invalid token is rejected.
func (a *api) identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}
		customer, err := a.deps.CustomerSvc.LookupByToken(c.Request.Context(), token)
		if err != nil {
			respondError(c, a.logger, err)
			return
		}
		c.Set(customerKey, customer)
		c.Next()
	}
}

// session makes sure every request carries an anonymous session key,
// provisioning a new cookie when the client has none or an unknown one.
func (a *api) session() gin.HandlerFunc {
	return func(c *gin.Context) {
		key, _ := c.Cookie(a.deps.SessionCookie)
		sess, created, err := a.deps.AnonymousSvc.Ensure(c.Request.Context(), key)
		if err != nil {
			respondError(c, a.logger, err)
			return
		}
		if created {
			a.setSessionCookie(c, sess.Key)
		}
		c.Set(sessionKeyKey, sess.Key)
		c.Next()
	}
}

func (a *api) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentCustomer(c) == nil {
			respondError(c, a.logger, domain.Errorf(domain.EUNAUTHORIZED, "", "Authentication required"))
			return
		}
		c.Next()
	}
}

func (a *api) setSessionCookie(c *gin.Context, key string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(a.deps.SessionCookie, key, a.deps.AnonymousSvc.TTLSeconds(), "/", "", a.deps.SecureCookies, true)
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix))
}

func currentCustomer(c *gin.Context) *domain.Customer {
	v, ok := c.Get(customerKey)
	if !ok {
		return nil
	}
	customer, _ := v.(*domain.Customer)
	return customer
}

func currentSessionKey(c *gin.Context) string {
	return c.GetString(sessionKeyKey)
}

// currentIdentity is the cart identity of the request. The user wins over the
// session key when both are present.
func currentIdentity(c *gin.Context) domain.Identity {
	id := domain.Identity{SessionKey: currentSessionKey(c)}
	if customer := currentCustomer(c); customer != nil {
		id.UserID = customer.ID
	}
	return id
}
