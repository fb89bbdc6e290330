// Package repository provides booking data access backed by server-side
// fn_* functions.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voicecrm_backend/internal/bookings/domain"
	"voicecrm_backend/internal/shared/pagination"
	"voicecrm_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingColumns = `id, prospect_name, prospect_email, prospect_phone,
	appointment_time, status, agent_id, call_id, customer_id, created_at, updated_at`

// Repository is the pgx-backed booking store.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new booking repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Add inserts a booking. The function returns NULL when the call id is
// already taken, which surfaces as id 0 here.
func (r *Repository) Add(ctx context.Context, booking NewBooking) (int64, error) {
	var id *int64
	err := r.pool.QueryRow(ctx,
		`SELECT fn_add_booking($1, $2, $3, $4, $5, $6, $7, $8)`,
		booking.ProspectName,
		booking.ProspectEmail,
		booking.ProspectPhone,
		booking.AppointmentTime,
		int(booking.Status),
		booking.AgentID,
		booking.CallID,
		booking.CustomerID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("fn_add_booking: %w", err)
	}
	if id == nil {
		return 0, nil
	}
	return *id, nil
}

// GetByID fetches one booking or a typed not-found error.
func (r *Repository) GetByID(ctx context.Context, bookingID int64) (*Booking, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM fn_get_booking_by_id($1)`, bookingID)

	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("booking not found")
		}
		return nil, fmt.Errorf("fn_get_booking_by_id: %w", err)
	}
	return booking, nil
}

// GetByCallID fetches the booking correlated to a voice call. Returns
// (nil, nil) when no booking has the call id.
func (r *Repository) GetByCallID(ctx context.Context, callID string) (*Booking, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM fn_get_booking_by_call_id($1)`, callID)

	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fn_get_booking_by_call_id: %w", err)
	}
	return booking, nil
}

// UpdateStatus sets the booking status by primary key.
func (r *Repository) UpdateStatus(ctx context.Context, bookingID int64, status domain.Status) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT fn_update_booking_status($1, $2)`, bookingID, int(status),
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("fn_update_booking_status: %w", err)
	}
	return ok, nil
}

// UpdateStatusByCallID sets the booking status by call id.
func (r *Repository) UpdateStatusByCallID(ctx context.Context, callID string, status domain.Status) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT fn_update_booking_status_by_call_id($1, $2)`, callID, int(status),
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("fn_update_booking_status_by_call_id: %w", err)
	}
	return ok, nil
}

// RescheduleByCallID moves the appointment time in place without touching
// the status.
func (r *Repository) RescheduleByCallID(ctx context.Context, callID string, newTime time.Time) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT fn_reschedule_booking_by_call_id($1, $2)`, callID, newTime,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("fn_reschedule_booking_by_call_id: %w", err)
	}
	return ok, nil
}

// ListPaginated returns one page of bookings with the total count.
func (r *Repository) ListPaginated(ctx context.Context, params pagination.Params) (*pagination.PagedList[Booking], error) {
	params.Normalize()

	rows, err := r.pool.Query(ctx,
		`SELECT `+bookingColumns+`, total_count
		   FROM fn_get_all_bookings($1, $2, $3, $4)`,
		params.Page, params.PageSize, params.Search, params.Status)
	if err != nil {
		return nil, fmt.Errorf("fn_get_all_bookings: %w", err)
	}
	defer rows.Close()

	var (
		bookings   []Booking
		totalCount int64
	)
	for rows.Next() {
		var b Booking
		var status int
		err := rows.Scan(&b.ID, &b.ProspectName, &b.ProspectEmail, &b.ProspectPhone,
			&b.AppointmentTime, &status, &b.AgentID, &b.CallID, &b.CustomerID,
			&b.CreatedAt, &b.UpdatedAt, &totalCount)
		if err != nil {
			return nil, fmt.Errorf("scan booking page: %w", err)
		}
		b.Status = domain.Status(status)
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return pagination.NewPagedList(bookings, totalCount, params.Page, params.PageSize), nil
}

// Statistics returns the booking dashboard counters.
func (r *Repository) Statistics(ctx context.Context) (*Statistics, error) {
	var stats Statistics
	err := r.pool.QueryRow(ctx,
		`SELECT total_count, pending_count, confirmed_count, cancelled_count, upcoming_count
		   FROM fn_get_booking_statistics()`,
	).Scan(&stats.TotalCount, &stats.PendingCount, &stats.ConfirmedCount, &stats.CancelledCount, &stats.UpcomingCount)
	if err != nil {
		return nil, fmt.Errorf("fn_get_booking_statistics: %w", err)
	}
	return &stats, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var status int
	err := row.Scan(&b.ID, &b.ProspectName, &b.ProspectEmail, &b.ProspectPhone,
		&b.AppointmentTime, &status, &b.AgentID, &b.CallID, &b.CustomerID,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Status = domain.Status(status)
	return &b, nil
}

var _ Store = (*Repository)(nil)
