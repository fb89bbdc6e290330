package webhooks

import (
	"net/http"

	"github.com/gin-gonic/gin"

	bdomain "voicecrm_backend/internal/bookings/domain"
	brepo "voicecrm_backend/internal/bookings/repository"
	custdomain "voicecrm_backend/internal/customers/domain"
	"voicecrm_backend/platform/httpkit"
)

// HandleBookVisit is the tool endpoint the voice agent invokes mid-call to
// book an appointment for the customer it is talking to. The booking is
// created Confirmed and linked to the customer, who is promoted to Booked.
// POST /api/v1/webhooks/call-bookings
func (h *Handler) HandleBookVisit(c *gin.Context) {
	var req BookVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.WebhookEvent(providerVoice, "book_visit", false, "malformed payload")
		httpkit.Error(c, http.StatusBadRequest, "malformed payload", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		h.log.WebhookEvent(providerVoice, "book_visit", false, "validation failed")
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	log := h.log.WithCallID(req.CallID)
	ctx := c.Request.Context()

	customerID := req.CustomerID
	if customerID == nil && req.PhoneNumber != nil {
		customer, err := h.customers.FindByPhone(ctx, *req.PhoneNumber)
		if err != nil {
			log.Warn("customer lookup by phone failed", "error", err.Error())
		} else if customer != nil {
			customerID = &customer.ID
		}
	}

	booking, err := h.bookings.Create(ctx, brepo.NewBooking{
		ProspectName:    req.Name,
		ProspectEmail:   req.Email,
		ProspectPhone:   req.PhoneNumber,
		AppointmentTime: req.AppointmentTime,
		Status:          bdomain.StatusConfirmed,
		AgentID:         req.AgentID,
		CallID:          req.CallID,
		CustomerID:      customerID,
	})
	if err != nil {
		log.WebhookEvent(providerVoice, "book_visit", false, err.Error())
		httpkit.HandleError(c, err)
		return
	}

	// Promote the customer to Booked. Best-effort: the booking is the
	// authoritative effect, and the analysis webhook will not demote a
	// Booked customer afterwards.
	if customerID != nil {
		h.promoteToBooked(c, *customerID)
	}

	log.WebhookEvent(providerVoice, "book_visit", true, "")
	httpkit.JSON(c, http.StatusCreated, gin.H{"status": "booked", "bookingId": booking.ID})
}

func (h *Handler) promoteToBooked(c *gin.Context, customerID int64) {
	ctx := c.Request.Context()
	customer, err := h.customers.Get(ctx, customerID)
	if err != nil {
		h.log.Warn("failed to load customer for booking promotion", "customer_id", customerID, "error", err.Error())
		return
	}
	if customer.Status == custdomain.StatusBooked {
		return
	}
	applied, err := h.customers.TransitionGuarded(ctx, customerID, customer.Status, custdomain.StatusBooked)
	if err != nil {
		h.log.Warn("failed to promote customer to booked", "customer_id", customerID, "error", err.Error())
		return
	}
	if !applied {
		h.log.Warn("customer status changed during booking promotion", "customer_id", customerID)
	}
}
