// Package webhooks ingests deliveries from the voice-call provider and the
// external scheduling provider, maps their vocabularies onto the local
// status models and drives the customer and booking lifecycle engines.
// Signature verification is handled upstream of this module.
package webhooks

import (
	"context"
	"time"

	bdomain "voicecrm_backend/internal/bookings/domain"
	brepo "voicecrm_backend/internal/bookings/repository"
	custdomain "voicecrm_backend/internal/customers/domain"
	custrepo "voicecrm_backend/internal/customers/repository"
	apphttp "voicecrm_backend/internal/http"
	"voicecrm_backend/platform/logger"
	"voicecrm_backend/platform/validator"
)

// Provider tags for webhook logging.
const (
	providerVoice     = "voiceagent"
	providerScheduler = "calsync"
)

// CustomerService is the slice of the customer lifecycle engine the webhook
// handlers drive.
type CustomerService interface {
	ApplyCallOutcome(ctx context.Context, customerID int64, outcome custdomain.CallOutcome) error
	TransitionGuarded(ctx context.Context, customerID int64, from, to custdomain.Status) (bool, error)
	Get(ctx context.Context, customerID int64) (*custrepo.Customer, error)
	FindByPhone(ctx context.Context, phoneNumber string) (*custrepo.Customer, error)
	PublishRefresh(ctx context.Context, customerID int64) error
}

// BookingService is the slice of the booking lifecycle engine the webhook
// handlers drive.
type BookingService interface {
	Create(ctx context.Context, booking brepo.NewBooking) (*brepo.Booking, error)
	UpdateStatusByCallID(ctx context.Context, callID string, status bdomain.Status) (*brepo.Booking, error)
	RescheduleByCallID(ctx context.Context, callID string, newTime time.Time) (*brepo.Booking, error)
	PublishRefresh(ctx context.Context, bookingID int64, statusLabel string) error
}

// Handler handles inbound provider deliveries.
type Handler struct {
	customers CustomerService
	bookings  BookingService
	val       *validator.Validator
	log       *logger.Logger
}

// Module is the webhooks module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates the webhooks module on top of the customer and booking
// lifecycle engines.
func NewModule(customers CustomerService, bookings BookingService, val *validator.Validator, log *logger.Logger) *Module {
	return &Module{
		handler: &Handler{
			customers: customers,
			bookings:  bookings,
			val:       val,
			log:       log,
		},
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhooks"
}

// RegisterRoutes mounts the provider-facing endpoints on the rate-limited
// public webhook group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Webhooks.POST("/call-updates", m.handler.HandleCallUpdate)
	ctx.Webhooks.POST("/bookings", m.handler.HandleBookingEvent)
	ctx.Webhooks.POST("/call-bookings", m.handler.HandleBookVisit)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
