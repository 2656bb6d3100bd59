package reconcile

import (
	"callops_backend/internal/activity"
	apphttp "callops_backend/internal/http"
	"callops_backend/platform/logger"
	"callops_backend/platform/validator"
)

// Module is the reconciliation bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
}

// NewModule creates and initializes the reconcile module.
func NewModule(callSource CallSource, leadSource LeadSource, pipeline Reprocessor, crm CRMDirectory, activities activity.Store, val *validator.Validator, log *logger.Logger) *Module {
	service := NewService(callSource, leadSource, pipeline, crm, activities, log)
	return &Module{
		handler: NewHandler(service, val),
		service: service,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "reconcile"
}

// Service exposes the importer for the scheduler and backfill commands.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts reconciliation routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	importGroup := ctx.Internal.Group("/import")
	importGroup.POST("/calls", m.handler.HandleImportCalls)
	importGroup.POST("/leads", m.handler.HandleImportLeads)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
