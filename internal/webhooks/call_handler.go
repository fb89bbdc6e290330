package webhooks

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	custdomain "voicecrm_backend/internal/customers/domain"
	"voicecrm_backend/platform/httpkit"
)

// HandleCallUpdate ingests the voice provider's call-status deliveries.
// Only the terminal analysis event mutates state; every other event type is
// acknowledged so the provider does not redeliver.
// POST /api/v1/webhooks/call-updates
func (h *Handler) HandleCallUpdate(c *gin.Context) {
	var envelope CallWebhookEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		h.log.WebhookEvent(providerVoice, "unknown", false, "malformed payload")
		httpkit.Error(c, http.StatusBadRequest, "malformed payload", nil)
		return
	}

	if envelope.Event != callEventAnalyzed {
		h.log.WebhookEvent(providerVoice, envelope.Event, true, "")
		httpkit.OK(c, gin.H{"status": "ignored"})
		return
	}

	call := envelope.Call
	if call == nil || call.CallAnalysis == nil || call.Metadata == nil {
		h.log.WebhookEvent(providerVoice, envelope.Event, false, "missing call, analysis or metadata")
		httpkit.Error(c, http.StatusBadRequest, "missing call, analysis or metadata", nil)
		return
	}

	log := h.log.WithCallID(call.CallID)

	// Analysis can arrive before the call has fully completed; wait for the
	// redelivery that follows completion.
	if !strings.EqualFold(call.CallStatus, callStatusCompleted) {
		log.WebhookEvent(providerVoice, envelope.Event, true, "call not completed yet")
		httpkit.OK(c, gin.H{"status": "ignored"})
		return
	}

	customerID, ok := customerIDFromMetadata(call.Metadata)
	if !ok {
		log.WebhookEvent(providerVoice, envelope.Event, false, "missing or invalid customer id in metadata")
		httpkit.Error(c, http.StatusBadRequest, "missing customer id in metadata", nil)
		return
	}

	outcome := custdomain.CallOutcome{
		Successful:       call.CallAnalysis.CallSuccessful,
		DisconnectReason: call.DisconnectionReason,
	}
	if err := h.customers.ApplyCallOutcome(c.Request.Context(), customerID, outcome); err != nil {
		log.WebhookEvent(providerVoice, envelope.Event, false, err.Error())
		httpkit.HandleError(c, err)
		return
	}

	log.WebhookEvent(providerVoice, envelope.Event, true, "")
	httpkit.OK(c, gin.H{"status": "processed"})
}
