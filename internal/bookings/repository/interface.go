package repository

import (
	"context"
	"time"

	"voicecrm_backend/internal/bookings/domain"
	"voicecrm_backend/internal/shared/pagination"
)

// Booking is the booking database model. CallID is the external correlation
// key: the voice call that produced the booking, also used by the scheduling
// provider as the booking uid.
type Booking struct {
	ID              int64         `db:"id"`
	ProspectName    string        `db:"prospect_name"`
	ProspectEmail   *string       `db:"prospect_email"`
	ProspectPhone   *string       `db:"prospect_phone"`
	AppointmentTime time.Time     `db:"appointment_time"`
	Status          domain.Status `db:"status"`
	AgentID         *string       `db:"agent_id"`
	CallID          string        `db:"call_id"`
	CustomerID      *int64        `db:"customer_id"`
	CreatedAt       time.Time     `db:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at"`
}

// NewBooking carries the fields for inserting a booking.
type NewBooking struct {
	ProspectName    string
	ProspectEmail   *string
	ProspectPhone   *string
	AppointmentTime time.Time
	Status          domain.Status
	AgentID         *string
	CallID          string
	CustomerID      *int64
}

// Statistics holds the dashboard counters for bookings.
type Statistics struct {
	TotalCount     int64 `json:"totalCount"`
	PendingCount   int64 `json:"pendingCount"`
	ConfirmedCount int64 `json:"confirmedCount"`
	CancelledCount int64 `json:"cancelledCount"`
	UpcomingCount  int64 `json:"upcomingCount"`
}

// Store is the booking data-access contract. Every call maps to one
// server-side function and is atomic.
type Store interface {
	// Add inserts a booking. Returns 0 when a booking with the same CallID
	// already exists.
	Add(ctx context.Context, booking NewBooking) (int64, error)
	GetByID(ctx context.Context, bookingID int64) (*Booking, error)
	// GetByCallID returns (nil, nil) when no booking has the call id.
	GetByCallID(ctx context.Context, callID string) (*Booking, error)
	UpdateStatus(ctx context.Context, bookingID int64, status domain.Status) (bool, error)
	UpdateStatusByCallID(ctx context.Context, callID string, status domain.Status) (bool, error)
	// RescheduleByCallID moves the appointment time in place; the status is
	// not touched.
	RescheduleByCallID(ctx context.Context, callID string, newTime time.Time) (bool, error)
	ListPaginated(ctx context.Context, params pagination.Params) (*pagination.PagedList[Booking], error)
	Statistics(ctx context.Context) (*Statistics, error)
}
