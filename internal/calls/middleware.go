package calls

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"callops_backend/platform/httpkit"
)

// WebhookSecretAuth verifies the provider's shared webhook secret sent in the
// x-vapi-secret header. With no secret configured the check is skipped, which
// is only acceptable for local development.
func WebhookSecretAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		provided := c.GetHeader("x-vapi-secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpkit.ErrorResponse{Error: "invalid webhook secret"})
			return
		}
		c.Next()
	}
}
