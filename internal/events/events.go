// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"voicecrm_backend/platform/events"
	"voicecrm_backend/platform/logger"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// InMemoryBus is a type alias to the platform InMemoryBus
type InMemoryBus = events.InMemoryBus

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Customer Domain Events
// =============================================================================

// CustomerSnapshot is the customer state carried on customer events. It is a
// denormalized copy so subscribers never read the store.
type CustomerSnapshot struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phoneNumber"`
	Email       *string   `json:"email,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CustomerCreated is published when a new customer is created.
type CustomerCreated struct {
	BaseEvent
	Customer CustomerSnapshot `json:"customer"`
}

func (e CustomerCreated) EventName() string { return "customers.customer.created" }

// CustomerUpdated is published whenever a customer record or its status
// changes (direct edit, call dispatch, webhook outcome, booking cascade).
type CustomerUpdated struct {
	BaseEvent
	Customer CustomerSnapshot `json:"customer"`
}

func (e CustomerUpdated) EventName() string { return "customers.customer.updated" }

// CustomerDeleted is published when a customer is removed.
type CustomerDeleted struct {
	BaseEvent
	CustomerID int64 `json:"customerId"`
}

func (e CustomerDeleted) EventName() string { return "customers.customer.deleted" }

// CustomersImported is published once after a bulk import inserts at least
// one row. Subscribers refresh their lists rather than receiving one event
// per row.
type CustomersImported struct {
	BaseEvent
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

func (e CustomersImported) EventName() string { return "customers.import.completed" }

// =============================================================================
// Booking Domain Events
// =============================================================================

// BookingSnapshot is the booking state carried on booking events.
type BookingSnapshot struct {
	ID              int64     `json:"id"`
	ProspectName    string    `json:"prospectName"`
	ProspectEmail   *string   `json:"prospectEmail,omitempty"`
	ProspectPhone   *string   `json:"prospectPhone,omitempty"`
	AppointmentTime time.Time `json:"appointmentTime"`
	Status          string    `json:"status"`
	AgentID         *string   `json:"agentId,omitempty"`
	CallID          string    `json:"callId"`
	CustomerID      *int64    `json:"customerId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// BookingCreated is published when a booking is inserted (call tool or
// external provider created-event).
type BookingCreated struct {
	BaseEvent
	Booking BookingSnapshot `json:"booking"`
}

func (e BookingCreated) EventName() string { return "bookings.booking.created" }

// BookingUpdated is published when a booking's status or appointment time
// changes. StatusLabel is the human-facing status tag the UI shows.
type BookingUpdated struct {
	BaseEvent
	Booking     BookingSnapshot `json:"booking"`
	StatusLabel string          `json:"statusLabel"`
}

func (e BookingUpdated) EventName() string { return "bookings.booking.updated" }
