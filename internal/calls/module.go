// Package calls provides the call-processing bounded context: the inbound
// provider webhook, the outcome fan-out orchestrator, and the persisted call
// records.
package calls

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"callops_backend/internal/activity"
	"callops_backend/internal/events"
	apphttp "callops_backend/internal/http"
	"callops_backend/platform/config"
	"callops_backend/platform/logger"
)

// Module is the calls bounded context module implementing http.Module.
type Module struct {
	handler       *Handler
	service       *Service
	webhookSecret string
}

// NewModule creates and initializes the calls module with all its dependencies.
func NewModule(pool *pgxpool.Pool, cfg config.VapiConfig, notifier Notifier, crm CRMClient, converter Converter, activities activity.Store, bus events.Bus, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	service := NewService(notifier, crm, converter, repo, activities, bus, log)
	handler := NewHandler(service, repo, activities, log)

	return &Module{
		handler:       handler,
		service:       service,
		webhookSecret: cfg.GetVapiWebhookSecret(),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "calls"
}

// Service exposes the orchestrator for the reconciliation importer.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts call routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public webhook endpoint (shared secret auth, rate limited)
	webhookGroup := ctx.V1.Group("/webhook")
	webhookGroup.Use(ctx.WebhookLimiter.Middleware(), WebhookSecretAuth(m.webhookSecret))
	webhookGroup.POST("/vapi", m.handler.HandleVapiWebhook)

	// Internal read API (internal API key auth)
	ctx.Internal.GET("/calls", m.handler.HandleListCalls)
	ctx.Internal.GET("/activity", m.handler.HandleListActivity)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
