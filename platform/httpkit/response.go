package httpkit

import (
	"net/http"

	"callops_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the JSON error body shared by all handlers.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// HandleError writes the HTTP response for a handler error and reports
// whether one was written. Typed *apperr.Error values map their Kind to a
// status code; anything else answers 400.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	if domainErr, ok := err.(*apperr.Error); ok {
		c.JSON(domainErr.HTTPStatus(), ErrorResponse{
			Error:   domainErr.Message,
			Details: domainErr.Details,
		})
		return true
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	return true
}
