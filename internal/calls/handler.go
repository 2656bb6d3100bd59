package calls

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"callops_backend/internal/activity"
	"callops_backend/platform/httpkit"
	"callops_backend/platform/logger"
)

// Handler handles call HTTP requests.
type Handler struct {
	service    *Service
	repo       *Repository
	activities activity.Store
	log        *logger.Logger
}

// NewHandler creates a new calls handler.
func NewHandler(service *Service, repo *Repository, activities activity.Store, log *logger.Logger) *Handler {
	return &Handler{service: service, repo: repo, activities: activities, log: log}
}

// HandleVapiWebhook processes an inbound provider webhook.
// POST /api/v1/webhook/vapi
//
// The endpoint always answers 200: the provider retries on non-2xx, and a
// retry storm cannot fix a processing failure. Errors surface in the body.
func (h *Handler) HandleVapiWebhook(c *gin.Context) {
	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("webhook payload rejected", "error", err)
		c.JSON(http.StatusOK, WebhookAck{Status: "ignored", Error: "invalid payload"})
		return
	}

	h.log.WebhookEvent(req.Message.Type, req.Message.Call.ID)

	if req.Message.Type != messageTypeEndOfCall {
		c.JSON(http.StatusOK, WebhookAck{Status: "ignored"})
		return
	}

	result, err := h.service.Process(c.Request.Context(), req.ToCallContext())
	if err != nil {
		c.JSON(http.StatusOK, WebhookAck{Status: "error", Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, WebhookAck{Status: "processed", Outcome: result.Outcome})
}

// HandleListCalls returns recent call records, newest first.
// GET /internal/calls
func (h *Handler) HandleListCalls(c *gin.Context) {
	records, err := h.repo.List(c.Request.Context(), limitParam(c))
	if httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": records})
}

// HandleListActivity returns recent activity records, newest first.
// GET /internal/activity
func (h *Handler) HandleListActivity(c *gin.Context) {
	records, err := h.activities.List(c.Request.Context(), limitParam(c))
	if httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": records})
}

func limitParam(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil {
		return 100
	}
	return limit
}
