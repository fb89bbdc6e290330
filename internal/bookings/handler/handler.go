// Package handler exposes the bookings HTTP API.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"voicecrm_backend/internal/bookings/domain"
	"voicecrm_backend/internal/bookings/repository"
	"voicecrm_backend/internal/bookings/service"
	"voicecrm_backend/internal/bookings/transport"
	"voicecrm_backend/internal/shared/pagination"
	"voicecrm_backend/platform/httpkit"
	"voicecrm_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid booking ID"
)

// Handler handles HTTP requests for bookings.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new bookings handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List retrieves one page of bookings.
// GET /api/v1/bookings
func (h *Handler) List(c *gin.Context) {
	var params pagination.Params
	if err := c.ShouldBindQuery(&params); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	page, err := h.svc.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromBookingList(page))
}

// Get retrieves a single booking.
// GET /api/v1/bookings/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	booking, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromBooking(booking))
}

// Create inserts a booking manually.
// POST /api/v1/bookings
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	booking, err := h.svc.Create(c.Request.Context(), repository.NewBooking{
		ProspectName:    req.ProspectName,
		ProspectEmail:   req.ProspectEmail,
		ProspectPhone:   req.ProspectPhone,
		AppointmentTime: req.AppointmentTime,
		Status:          domain.Status(req.Status),
		AgentID:         req.AgentID,
		CallID:          req.CallID,
		CustomerID:      req.CustomerID,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.FromBooking(booking))
}

// UpdateStatus sets the booking status.
// PATCH /api/v1/bookings/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	var req transport.UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	booking, err := h.svc.UpdateStatus(c.Request.Context(), id, domain.Status(req.Status))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromBooking(booking))
}

// Statistics returns the dashboard counters.
// GET /api/v1/bookings/statistics
func (h *Handler) Statistics(c *gin.Context) {
	stats, err := h.svc.Statistics(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, stats)
}

// ListExternal proxies the scheduling provider's booking list.
// GET /api/v1/bookings/external
func (h *Handler) ListExternal(c *gin.Context) {
	var query transport.ExternalBookingsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if query.Take < 1 || query.Take > pagination.MaxPageSize {
		query.Take = pagination.DefaultPageSize
	}
	if query.Skip < 0 {
		query.Skip = 0
	}

	bookings, err := h.svc.ListExternal(c.Request.Context(), query.Take, query.Skip, query.Status)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": bookings})
}

func bookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return 0, false
	}
	return id, true
}
