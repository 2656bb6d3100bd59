package reconcile

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"callops_backend/platform/apperr"
	"callops_backend/platform/httpkit"
	"callops_backend/platform/validator"
)

// Handler handles reconciliation HTTP requests.
type Handler struct {
	service *Service
	val     *validator.Validator
}

// NewHandler creates a new reconcile handler.
func NewHandler(service *Service, val *validator.Validator) *Handler {
	return &Handler{service: service, val: val}
}

// HandleImportCalls runs a historical call import.
// POST /internal/import/calls?hours=24
func (h *Handler) HandleImportCalls(c *gin.Context) {
	hours, err := strconv.Atoi(c.DefaultQuery("hours", "24"))
	if err != nil || hours <= 0 {
		httpkit.HandleError(c, apperr.Validation("hours must be a positive integer"))
		return
	}

	result, err := h.service.ImportCalls(c.Request.Context(), hours)
	if httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, result)
}

// ImportLeadsRequest is the request body for a lead import run.
type ImportLeadsRequest struct {
	FormID string `json:"formId" validate:"required,max=64"`
}

// HandleImportLeads runs a lead-form import with dedup.
// POST /internal/import/leads
func (h *Handler) HandleImportLeads(c *gin.Context) {
	var req ImportLeadsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.Validation("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation("formId is required"))
		return
	}

	result, err := h.service.ImportLeads(c.Request.Context(), req.FormID)
	if httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, result)
}
