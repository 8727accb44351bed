package httpserver

import (
	"net/http"
	"strconv"

	"storefront/internal/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type setItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type adjustItemRequest struct {
	Delta *int `json:"delta" binding:"required"`
}

type couponRequest struct {
	Code string `json:"code" binding:"required"`
}

// activeCart resolves the request's cart and remembers it on the anonymous
// session so a later login can merge it.
func (a *api) activeCart(c *gin.Context) (*domain.Cart, bool) {
	ctx := c.Request.Context()
	id := currentIdentity(c)
	cart, err := a.deps.CartSvc.ResolveActiveCart(ctx, id)
	if err != nil {
		respondError(c, a.logger, err)
		return nil, false
	}
	if !id.Authenticated() && id.SessionKey != "" {
		if err := a.deps.AnonymousSvc.RememberCart(ctx, id.SessionKey, cart.ID); err != nil {
			a.logger.Debug("could not remember cart on session", zap.Error(err))
		}
	}
	return cart, true
}

func (a *api) writeCart(c *gin.Context, status int, cartID string) {
	ctx := c.Request.Context()
	cart, err := a.deps.CartSvc.GetCart(ctx, cartID)
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	totals, err := a.deps.CartSvc.ProvisionalTotals(ctx, cartID, 0, 0)
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	c.JSON(status, gin.H{"cart": cart, "totals": totals})
}

func (a *api) getCart(c *gin.Context) {
	cart, ok := a.activeCart(c)
	if !ok {
		return
	}
	a.writeCart(c, http.StatusOK, cart.ID)
}

func (a *api) setItem(c *gin.Context) {
	var req setItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, a.logger, "quantity is required")
		return
	}
	cart, ok := a.activeCart(c)
	if !ok {
		return
	}
	if _, err := a.deps.CartSvc.SetLineQuantity(c.Request.Context(), cart.ID, c.Param("productId"), *req.Quantity); err != nil {
		respondError(c, a.logger, err)
		return
	}
	a.writeCart(c, http.StatusOK, cart.ID)
}

func (a *api) adjustItem(c *gin.Context) {
	var req adjustItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, a.logger, "delta is required")
		return
	}
	cart, ok := a.activeCart(c)
	if !ok {
		return
	}
	if _, err := a.deps.CartSvc.UpdateCartQuantity(c.Request.Context(), cart.ID, c.Param("productId"), *req.Delta); err != nil {
		respondError(c, a.logger, err)
		return
	}
	a.writeCart(c, http.StatusOK, cart.ID)
}

func (a *api) removeItem(c *gin.Context) {
	cart, ok := a.activeCart(c)
	if !ok {
		return
	}
	if err := a.deps.CartSvc.RemoveItem(c.Request.Context(), cart.ID, c.Param("productId")); err != nil {
		respondError(c, a.logger, err)
		return
	}
	a.writeCart(c, http.StatusOK, cart.ID)
}

func (a *api) clearCart(c *gin.Context) {
	cart, ok := a.activeCart(c)
	if !ok {
		return
	}
	if err := a.deps.CartSvc.ClearCart(c.Request.Context(), cart.ID); err != nil {
		respondError(c, a.logger, err)
		return
	}
	a.writeCart(c, http.StatusOK, cart.ID)
}

func (a *api) applyCoupon(c *gin.Context) {
	var req couponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, a.logger, "code is required")
		return
	}
	cart, ok := a.activeCart(c)
	if !ok {
		return
	}
	if _, err := a.deps.CartSvc.ApplyCoupon(c.Request.Context(), cart.ID, req.Code); err != nil {
		respondError(c, a.logger, err)
		return
	}
	a.writeCart(c, http.StatusOK, cart.ID)
}

func (a *api) clearCoupon(c *gin.Context) {
	cart, ok := a.activeCart(c)
	if !ok {
		return
	}
	if err := a.deps.CartSvc.ClearCoupon(c.Request.Context(), cart.ID); err != nil {
		respondError(c, a.logger, err)
		return
	}
	a.writeCart(c, http.StatusOK, cart.ID)
}

func (a *api) cartTotals(c *gin.Context) {
	shipping, err := queryAmount(c, "shipping")
	if err != nil {
		respondBadRequest(c, a.logger, "shipping must be an integer amount")
		return
	}
	tax, err := queryAmount(c, "tax")
	if err != nil {
		respondBadRequest(c, a.logger, "tax must be an integer amount")
		return
	}
	cart, ok := a.activeCart(c)
	if !ok {
		return
	}
	totals, err := a.deps.CartSvc.ProvisionalTotals(c.Request.Context(), cart.ID, shipping, tax)
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	c.JSON(http.StatusOK, totals)
}

func queryAmount(c *gin.Context, name string) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
