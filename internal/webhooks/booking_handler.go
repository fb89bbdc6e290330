package webhooks

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	bdomain "voicecrm_backend/internal/bookings/domain"
	brepo "voicecrm_backend/internal/bookings/repository"
	custdomain "voicecrm_backend/internal/customers/domain"
	"voicecrm_backend/platform/httpkit"
)

// HandleBookingEvent ingests the scheduling provider's booking deliveries.
// Each branch is idempotent against redelivery; unknown trigger events are
// acknowledged and dropped.
// POST /api/v1/webhooks/bookings
func (h *Handler) HandleBookingEvent(c *gin.Context) {
	var envelope BookingWebhookEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		h.log.WebhookEvent(providerScheduler, "unknown", false, "malformed payload")
		httpkit.Error(c, http.StatusBadRequest, "malformed payload", nil)
		return
	}

	event := strings.ToUpper(strings.TrimSpace(envelope.TriggerEvent))
	switch event {
	case bookingEventCreated:
		h.handleBookingCreated(c, event, envelope.Payload)
	case bookingEventCancelled:
		h.handleBookingCancelled(c, event, envelope.Payload)
	case bookingEventRescheduled:
		h.handleBookingRescheduled(c, event, envelope.Payload)
	default:
		h.log.WebhookEvent(providerScheduler, event, true, "")
		httpkit.OK(c, gin.H{"status": "ignored"})
	}
}

func (h *Handler) handleBookingCreated(c *gin.Context, event string, payload *BookingPayload) {
	if payload == nil || payload.UID == "" {
		h.rejectBooking(c, event, "missing booking uid")
		return
	}
	if len(payload.Attendees) == 0 {
		h.rejectBooking(c, event, "at least one attendee is required")
		return
	}

	status, recognized := bdomain.MapProviderStatus(payload.Status)
	if !recognized {
		h.log.WebhookEvent(providerScheduler, event, true, "unrecognized provider status "+payload.Status)
	}

	attendee := payload.Attendees[0]
	booking := brepo.NewBooking{
		ProspectName:    attendee.Name,
		AppointmentTime: payload.StartTime,
		Status:          status,
		// The provider never supplies a phone number in its webhooks.
		ProspectPhone: nil,
		CallID:        payload.UID,
	}
	if attendee.Email != "" {
		booking.ProspectEmail = &attendee.Email
	}

	created, err := h.bookings.Create(c.Request.Context(), booking)
	if err != nil {
		h.log.WebhookEvent(providerScheduler, event, false, err.Error())
		httpkit.HandleError(c, err)
		return
	}

	// A booking pre-created by the call tool carries a customer link; tell
	// subscribers about both sides.
	if created.CustomerID != nil {
		if err := h.bookings.PublishRefresh(c.Request.Context(), created.ID, bdomain.StatusConfirmed.String()); err != nil {
			h.log.Warn("failed to broadcast booking refresh", "booking_id", created.ID, "error", err.Error())
		}
		if err := h.customers.PublishRefresh(c.Request.Context(), *created.CustomerID); err != nil {
			h.log.Warn("failed to broadcast customer refresh", "customer_id", *created.CustomerID, "error", err.Error())
		}
	}

	h.log.WebhookEvent(providerScheduler, event, true, "")
	httpkit.JSON(c, http.StatusCreated, gin.H{"status": "created", "bookingId": created.ID})
}

func (h *Handler) handleBookingCancelled(c *gin.Context, event string, payload *BookingPayload) {
	if payload == nil || payload.UID == "" {
		h.rejectBooking(c, event, "missing booking uid")
		return
	}

	booking, err := h.bookings.UpdateStatusByCallID(c.Request.Context(), payload.UID, bdomain.StatusCancelled)
	if err != nil {
		h.log.WebhookEvent(providerScheduler, event, false, err.Error())
		httpkit.HandleError(c, err)
		return
	}

	// Cascade: a cancelled booking demotes its customer from Booked back to
	// Contacted. Best-effort: the cancellation above is the authoritative
	// effect and stands even if the cascade loses its guard or fails.
	if booking.CustomerID != nil {
		customerID := *booking.CustomerID
		applied, err := h.customers.TransitionGuarded(c.Request.Context(), customerID,
			custdomain.StatusBooked, custdomain.StatusContacted)
		switch {
		case err != nil:
			h.log.Warn("booking cancellation cascade failed", "customer_id", customerID, "error", err.Error())
		case !applied:
			// Customer was not Booked; still refresh subscribers.
			if err := h.customers.PublishRefresh(c.Request.Context(), customerID); err != nil {
				h.log.Warn("failed to broadcast customer refresh", "customer_id", customerID, "error", err.Error())
			}
		}
	}

	h.log.WebhookEvent(providerScheduler, event, true, "")
	httpkit.OK(c, gin.H{"status": "cancelled"})
}

func (h *Handler) handleBookingRescheduled(c *gin.Context, event string, payload *BookingPayload) {
	if payload == nil || payload.UID == "" {
		h.rejectBooking(c, event, "missing booking uid")
		return
	}
	if payload.StartTime.IsZero() {
		h.rejectBooking(c, event, "missing new start time")
		return
	}

	if _, err := h.bookings.RescheduleByCallID(c.Request.Context(), payload.UID, payload.StartTime); err != nil {
		h.log.WebhookEvent(providerScheduler, event, false, err.Error())
		httpkit.HandleError(c, err)
		return
	}

	h.log.WebhookEvent(providerScheduler, event, true, "")
	httpkit.OK(c, gin.H{"status": "rescheduled"})
}

func (h *Handler) rejectBooking(c *gin.Context, event, detail string) {
	h.log.WebhookEvent(providerScheduler, event, false, detail)
	httpkit.Error(c, http.StatusBadRequest, detail, nil)
}
