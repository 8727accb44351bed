package httpserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (a *api) listProducts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	products, err := a.deps.ProductSvc.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": products, "count": len(products), "offset": offset})
}

func (a *api) getProduct(c *gin.Context) {
	p, err := a.deps.ProductSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
