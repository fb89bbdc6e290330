// Package transport defines the request and response DTOs for the bookings API.
package transport

import (
	"time"

	"voicecrm_backend/internal/bookings/repository"
	"voicecrm_backend/internal/shared/pagination"
)

// CreateBookingRequest is the payload for creating a booking manually.
type CreateBookingRequest struct {
	ProspectName    string    `json:"prospectName" validate:"required,max=200"`
	ProspectEmail   *string   `json:"prospectEmail" validate:"omitempty,email"`
	ProspectPhone   *string   `json:"prospectPhone" validate:"omitempty,max=32"`
	AppointmentTime time.Time `json:"appointmentTime" validate:"required"`
	Status          int       `json:"status" validate:"min=0,max=2"`
	AgentID         *string   `json:"agentId" validate:"omitempty,max=100"`
	CallID          string    `json:"callId" validate:"required,max=200"`
	CustomerID      *int64    `json:"customerId" validate:"omitempty,min=1"`
}

// UpdateBookingStatusRequest is the payload for setting a booking status.
type UpdateBookingStatusRequest struct {
	Status int `json:"status" validate:"min=0,max=2"`
}

// ExternalBookingsQuery are the query parameters for the provider proxy.
type ExternalBookingsQuery struct {
	Take   int    `form:"take"`
	Skip   int    `form:"skip"`
	Status string `form:"status"`
}

// BookingResponse is the booking representation returned by the API.
type BookingResponse struct {
	ID              int64     `json:"id"`
	ProspectName    string    `json:"prospectName"`
	ProspectEmail   *string   `json:"prospectEmail,omitempty"`
	ProspectPhone   *string   `json:"prospectPhone,omitempty"`
	AppointmentTime time.Time `json:"appointmentTime"`
	Status          int       `json:"status"`
	StatusLabel     string    `json:"statusLabel"`
	AgentID         *string   `json:"agentId,omitempty"`
	CallID          string    `json:"callId"`
	CustomerID      *int64    `json:"customerId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// FromBooking maps a stored booking to its API representation.
func FromBooking(b *repository.Booking) BookingResponse {
	return BookingResponse{
		ID:              b.ID,
		ProspectName:    b.ProspectName,
		ProspectEmail:   b.ProspectEmail,
		ProspectPhone:   b.ProspectPhone,
		AppointmentTime: b.AppointmentTime,
		Status:          int(b.Status),
		StatusLabel:     b.Status.String(),
		AgentID:         b.AgentID,
		CallID:          b.CallID,
		CustomerID:      b.CustomerID,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

// FromBookingList maps a stored page to its API representation.
func FromBookingList(page *pagination.PagedList[repository.Booking]) *pagination.PagedList[BookingResponse] {
	items := make([]BookingResponse, len(page.Items))
	for i := range page.Items {
		items[i] = FromBooking(&page.Items[i])
	}
	return &pagination.PagedList[BookingResponse]{
		Items:       items,
		TotalCount:  page.TotalCount,
		CurrentPage: page.CurrentPage,
		TotalPages:  page.TotalPages,
		PageSize:    page.PageSize,
	}
}
