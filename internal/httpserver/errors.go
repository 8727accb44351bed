package httpserver

import (
	"errors"
	"net/http"

	"storefront/internal/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorBody struct {
	Code    string            `json:"code"`
	Kind    string            `json:"kind,omitempty"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// respondError writes err as JSON using the status derived from its code.
// Internal errors are logged and masked.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	code := domain.ErrorCode(err)
	status := errorCodeToHTTPStatus(code)
	body := errorBody{
		Code:    code,
		Kind:    string(domain.ErrorKind(err)),
		Message: domain.ErrorMessage(err),
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}
	if domain.Retryable(err) {
		c.Header("Retry-After", "1")
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

func respondBadRequest(c *gin.Context, logger *zap.Logger, message string) {
	respondError(c, logger, domain.Errorf(domain.EINVALID, "", "%s", message))
}

// errorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.EUNAVAILABLE:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
