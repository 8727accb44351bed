package httpserver

import (
	"net/http"

	customersvc "storefront/internal/service/customer"

	"github.com/gin-gonic/gin"
)

type signupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (a *api) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, a.logger, "invalid JSON body")
		return
	}
	customer, err := a.deps.CustomerSvc.Signup(c.Request.Context(), customersvc.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"customer": customer})
}

// login authenticates the customer. The customer service rotates the
// session key and merges the anonymous cart.
func (a *api) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, a.logger, "email and password are required")
		return
	}
	ctx := c.Request.Context()
	pre := a.deps.AnonymousSvc.PreLogin(ctx, currentSessionKey(c))

	sess, err := a.deps.CustomerSvc.Login(ctx, req.Email, req.Password, pre)
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	if sess.SessionKey != "" {
		a.setSessionCookie(c, sess.SessionKey)
	}

	writeSession(c, sess)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (a *api) refreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, a.logger, "refresh_token is required")
		return
	}
	sess, err := a.deps.CustomerSvc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	writeSession(c, sess)
}

func writeSession(c *gin.Context, sess *customersvc.Session) {
	c.JSON(http.StatusOK, gin.H{
		"access_token":  sess.AccessToken,
		"refresh_token": sess.RefreshToken,
		"token_type":    "Bearer",
		"expires_in":    sess.ExpiresIn,
		"customer":      sess.Customer,
	})
}

func (a *api) logout(c *gin.Context) {
	if err := a.deps.CustomerSvc.Logout(c.Request.Context(), bearerToken(c)); err != nil {
		respondError(c, a.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *api) me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"customer": currentCustomer(c)})
}
