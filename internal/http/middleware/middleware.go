// Package middleware provides HTTP middleware for the router layer.
package middleware

import (
	"crypto/subtle"
	"net/http"

	"callops_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// InternalAPIKeyAuth protects internal endpoints with a shared API key
// supplied in the X-Internal-Api-Key header. When no key is configured the
// internal surface is disabled entirely.
func InternalAPIKeyAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusNotFound, httpkit.ErrorResponse{Error: "not found"})
			return
		}
		provided := c.GetHeader("X-Internal-Api-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpkit.ErrorResponse{Error: "unauthorized"})
			return
		}
		c.Next()
	}
}
