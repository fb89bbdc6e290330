// Package service implements booking lifecycle operations: creation from
// voice-call tooling or scheduler webhooks, status reconciliation keyed by
// call id, and the read API.
package service

import (
	"context"
	"time"

	"voicecrm_backend/internal/bookings/domain"
	"voicecrm_backend/internal/bookings/repository"
	"voicecrm_backend/internal/events"
	"voicecrm_backend/internal/shared/pagination"
	"voicecrm_backend/platform/apperr"
	"voicecrm_backend/platform/logger"
)

// ExternalBooking is the provider-side view of a booking, listed verbatim
// for reconciliation screens.
type ExternalBooking struct {
	UID           string    `json:"uid"`
	Title         string    `json:"title"`
	Status        string    `json:"status"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	AttendeeName  string    `json:"attendeeName,omitempty"`
	AttendeeEmail string    `json:"attendeeEmail,omitempty"`
}

// ExternalLister queries the scheduling provider's booking list.
type ExternalLister interface {
	ListBookings(ctx context.Context, take, skip int, status string) ([]ExternalBooking, error)
}

// Service orchestrates booking operations.
type Service struct {
	store    repository.Store
	external ExternalLister
	bus      events.Bus
	log      *logger.Logger
}

// New creates the booking service. external may be nil when the scheduling
// provider is not configured.
func New(store repository.Store, external ExternalLister, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, external: external, bus: bus, log: log}
}

// Create inserts a booking. Validation failures (empty call id, appointment
// in the past) are rejected before storage is touched; a duplicate call id
// is a conflict.
func (s *Service) Create(ctx context.Context, booking repository.NewBooking) (*repository.Booking, error) {
	if booking.CallID == "" {
		return nil, apperr.Validation("call id is required")
	}
	if booking.ProspectName == "" {
		return nil, apperr.Validation("prospect name is required")
	}
	if !booking.AppointmentTime.After(time.Now()) {
		return nil, apperr.Validation("appointment time must be in the future")
	}
	if !booking.Status.Valid() {
		booking.Status = domain.StatusPending
	}

	id, err := s.store.Add(ctx, booking)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to create booking", err)
	}
	if id == 0 {
		return nil, apperr.Conflict("a booking for this call already exists")
	}

	created, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.BookingCreated{
		BaseEvent: events.NewBaseEvent(),
		Booking:   snapshot(created),
	})
	return created, nil
}

// Get returns one booking by id.
func (s *Service) Get(ctx context.Context, bookingID int64) (*repository.Booking, error) {
	return s.store.GetByID(ctx, bookingID)
}

// GetByCallID returns the booking correlated to a voice call, or a typed
// not-found error.
func (s *Service) GetByCallID(ctx context.Context, callID string) (*repository.Booking, error) {
	booking, err := s.store.GetByCallID(ctx, callID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load booking", err)
	}
	if booking == nil {
		return nil, apperr.NotFound("no booking found for this call")
	}
	return booking, nil
}

// List returns one page of bookings.
func (s *Service) List(ctx context.Context, params pagination.Params) (*pagination.PagedList[repository.Booking], error) {
	if params.Status != nil && !domain.Status(*params.Status).Valid() {
		return nil, apperr.Validation("unknown status filter")
	}
	return s.store.ListPaginated(ctx, params)
}

// Statistics returns the dashboard counters.
func (s *Service) Statistics(ctx context.Context) (*repository.Statistics, error) {
	return s.store.Statistics(ctx)
}

// UpdateStatus sets the booking status by primary key and broadcasts the
// change.
func (s *Service) UpdateStatus(ctx context.Context, bookingID int64, status domain.Status) (*repository.Booking, error) {
	if !status.Valid() {
		return nil, apperr.Validation("unknown booking status")
	}

	ok, err := s.store.UpdateStatus(ctx, bookingID, status)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to update booking status", err)
	}
	if !ok {
		return nil, apperr.NotFound("booking not found")
	}
	return s.reloadAndBroadcast(ctx, bookingID)
}

// UpdateStatusByCallID sets the booking status keyed by call id, returning
// the updated booking so callers can cascade (a cancelled booking demotes
// its customer).
func (s *Service) UpdateStatusByCallID(ctx context.Context, callID string, status domain.Status) (*repository.Booking, error) {
	booking, err := s.GetByCallID(ctx, callID)
	if err != nil {
		return nil, err
	}

	ok, err := s.store.UpdateStatusByCallID(ctx, callID, status)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to update booking status", err)
	}
	if !ok {
		return nil, apperr.NotFound("no booking found for this call")
	}
	return s.reloadAndBroadcast(ctx, booking.ID)
}

// RescheduleByCallID moves the appointment to a new time. The status is not
// touched; the broadcast is tagged "Confirmed" since a reschedule implies
// the appointment still stands.
func (s *Service) RescheduleByCallID(ctx context.Context, callID string, newTime time.Time) (*repository.Booking, error) {
	if newTime.IsZero() {
		return nil, apperr.Validation("new appointment time is required")
	}

	booking, err := s.GetByCallID(ctx, callID)
	if err != nil {
		return nil, err
	}

	ok, err := s.store.RescheduleByCallID(ctx, callID, newTime)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to reschedule booking", err)
	}
	if !ok {
		return nil, apperr.NotFound("no booking found for this call")
	}

	rescheduled, err := s.store.GetByID(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	s.bus.Publish(ctx, events.BookingUpdated{
		BaseEvent:   events.NewBaseEvent(),
		Booking:     snapshot(rescheduled),
		StatusLabel: domain.StatusConfirmed.String(),
	})
	return rescheduled, nil
}

// PublishRefresh broadcasts the booking's current state under the given
// status label without writing anything.
func (s *Service) PublishRefresh(ctx context.Context, bookingID int64, statusLabel string) error {
	booking, err := s.store.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	s.bus.Publish(ctx, events.BookingUpdated{
		BaseEvent:   events.NewBaseEvent(),
		Booking:     snapshot(booking),
		StatusLabel: statusLabel,
	})
	return nil
}

// ListExternal queries the scheduling provider for its bookings. Provider
// failures degrade to an empty list so the dashboard keeps rendering.
func (s *Service) ListExternal(ctx context.Context, take, skip int, status string) ([]ExternalBooking, error) {
	if s.external == nil {
		return []ExternalBooking{}, nil
	}

	bookings, err := s.external.ListBookings(ctx, take, skip, status)
	if err != nil {
		s.log.WithContext(ctx).Warn("external booking list failed", "error", err.Error())
		return []ExternalBooking{}, nil
	}
	if bookings == nil {
		bookings = []ExternalBooking{}
	}
	return bookings, nil
}

func (s *Service) reloadAndBroadcast(ctx context.Context, bookingID int64) (*repository.Booking, error) {
	booking, err := s.store.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	s.bus.Publish(ctx, events.BookingUpdated{
		BaseEvent:   events.NewBaseEvent(),
		Booking:     snapshot(booking),
		StatusLabel: booking.Status.String(),
	})
	return booking, nil
}

func snapshot(b *repository.Booking) events.BookingSnapshot {
	return events.BookingSnapshot{
		ID:              b.ID,
		ProspectName:    b.ProspectName,
		ProspectEmail:   b.ProspectEmail,
		ProspectPhone:   b.ProspectPhone,
		AppointmentTime: b.AppointmentTime,
		Status:          b.Status.String(),
		AgentID:         b.AgentID,
		CallID:          b.CallID,
		CustomerID:      b.CustomerID,
		CreatedAt:       b.CreatedAt,
	}
}
