package httpserver

import (
	"net/http"
	"strconv"

	"storefront/internal/address"
	checkoutsvc "storefront/internal/service/checkout"

	"github.com/gin-gonic/gin"
)

type checkoutRequest struct {
	Email           string       `json:"email"`
	ShippingAddress address.Raw  `json:"shipping_address"`
	BillingAddress  *address.Raw `json:"billing_address"`
	ShippingAmount  int64        `json:"shipping_amount"`
	TaxAmount       int64        `json:"tax_amount"`
}

func (a *api) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, a.logger, "invalid JSON body")
		return
	}
	cart, ok := a.activeCart(c)
	if !ok {
		return
	}
	email := req.Email
	if customer := currentCustomer(c); customer != nil && email == "" {
		email = customer.Email
	}
	order, err := a.deps.CheckoutSvc.Finalize(c.Request.Context(), cart.ID, checkoutsvc.FinalizeInput{
		Email:           email,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		ShippingAmount:  req.ShippingAmount,
		TaxAmount:       req.TaxAmount,
	})
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

func (a *api) listOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	orders, err := a.deps.OrderSvc.ListForUser(c.Request.Context(), currentCustomer(c).ID, limit)
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": orders})
}

func (a *api) getOrder(c *gin.Context) {
	order, err := a.deps.OrderSvc.Get(c.Request.Context(), c.Param("number"), currentCustomer(c).ID)
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (a *api) cancelOrder(c *gin.Context) {
	order, err := a.deps.OrderSvc.Cancel(c.Request.Context(), c.Param("number"), currentCustomer(c).ID)
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}
