// Package bookings provides the booking bounded context module.
// It owns the booking records produced by voice-call tooling and the
// reconciliation with the external scheduling provider.
package bookings

import (
	"voicecrm_backend/internal/bookings/handler"
	"voicecrm_backend/internal/bookings/repository"
	"voicecrm_backend/internal/bookings/service"
	"voicecrm_backend/internal/events"
	apphttp "voicecrm_backend/internal/http"
	"voicecrm_backend/platform/logger"
	"voicecrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the bookings bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the bookings module. external may be
// nil when the scheduling provider is not configured.
func NewModule(pool *pgxpool.Pool, external service.ExternalLister, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, external, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "bookings"
}

// Service returns the service layer for cross-module wiring (webhooks).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts booking routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/bookings")
	group.GET("", m.handler.List)
	group.POST("", m.handler.Create)
	group.GET("/statistics", m.handler.Statistics)
	group.GET("/external", m.handler.ListExternal)
	group.GET("/:id", m.handler.Get)
	group.PATCH("/:id/status", m.handler.UpdateStatus)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
