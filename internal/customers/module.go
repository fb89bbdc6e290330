// Package customers provides the customer bounded context module.
// It owns the customer lifecycle: CRUD, bulk import, outbound call dispatch
// and the webhook-driven status transitions.
package customers

import (
	"voicecrm_backend/internal/customers/handler"
	"voicecrm_backend/internal/customers/repository"
	"voicecrm_backend/internal/customers/service"
	"voicecrm_backend/internal/events"
	apphttp "voicecrm_backend/internal/http"
	"voicecrm_backend/platform/logger"
	"voicecrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the customers bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the customers module with all its
// dependencies. dispatcher, email and archiver may be nil when the
// corresponding integration is not configured.
func NewModule(pool *pgxpool.Pool, dispatcher service.CallDispatcher, email service.EmailSender, archiver service.Archiver, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, dispatcher, email, archiver, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "customers"
}

// Service returns the service layer for cross-module wiring (webhooks,
// bookings cascade).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts customer routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/customers")
	group.GET("", m.handler.List)
	group.POST("", m.handler.Create)
	group.GET("/statistics", m.handler.Statistics)
	group.POST("/import", m.handler.Import)
	group.GET("/:id", m.handler.Get)
	group.PUT("/:id", m.handler.Update)
	group.DELETE("/:id", m.handler.Delete)
	group.POST("/:id/start-call", m.handler.StartCall)
	group.POST("/:id/email", m.handler.SendEmail)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
