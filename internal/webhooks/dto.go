package webhooks

import (
	"encoding/json"
	"strconv"
	"time"
)

// callEventAnalyzed is the only call-provider event type this system acts
// on; everything else is acknowledged and dropped.
const callEventAnalyzed = "call_analyzed"

// callStatusCompleted gates analysis processing: analysis envelopes can
// arrive before the call has fully completed.
const callStatusCompleted = "completed"

// CallWebhookEnvelope is the call-provider analysis delivery.
type CallWebhookEnvelope struct {
	Event string       `json:"event"`
	Call  *CallPayload `json:"call"`
}

// CallPayload is the call object embedded in the provider envelope.
type CallPayload struct {
	CallID              string          `json:"call_id"`
	CallStatus          string          `json:"call_status"`
	DisconnectionReason string          `json:"disconnection_reason"`
	Metadata            map[string]any  `json:"metadata"`
	CallAnalysis        *CallAnalysis   `json:"call_analysis"`
	DynamicVariables    json.RawMessage `json:"retell_llm_dynamic_variables,omitempty"`
}

// CallAnalysis is the provider's post-call analysis verdict.
type CallAnalysis struct {
	CallSuccessful bool   `json:"call_successful"`
	CallSummary    string `json:"call_summary,omitempty"`
}

// customerIDFromMetadata extracts the numeric customer id we planted on
// dispatch. Providers round-trip metadata through JSON, so the value may
// come back as a float or a string.
func customerIDFromMetadata(metadata map[string]any) (int64, bool) {
	raw, ok := metadata["our_customer_id"]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return int64(v), v == float64(int64(v)) && v > 0
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		return id, err == nil && id > 0
	case json.Number:
		id, err := v.Int64()
		return id, err == nil && id > 0
	default:
		return 0, false
	}
}

// Scheduling-provider trigger events.
const (
	bookingEventCreated     = "BOOKING_CREATED"
	bookingEventCancelled   = "BOOKING_CANCELLED"
	bookingEventRescheduled = "BOOKING_RESCHEDULED"
)

// BookingWebhookEnvelope is the scheduling-provider delivery.
type BookingWebhookEnvelope struct {
	TriggerEvent string          `json:"triggerEvent"`
	Payload      *BookingPayload `json:"payload"`
}

// BookingPayload is the booking object embedded in the provider envelope.
// The uid doubles as our call correlation key.
type BookingPayload struct {
	UID          string     `json:"uid"`
	Title        string     `json:"title"`
	StartTime    time.Time  `json:"startTime"`
	EndTime      time.Time  `json:"endTime"`
	OldStartTime *time.Time `json:"oldStartTime,omitempty"`
	Status       string     `json:"status"`
	Attendees    []Attendee `json:"attendees"`
}

// Attendee is a scheduling-provider attendee. The provider never supplies a
// phone number in its webhook payloads.
type Attendee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// BookVisitRequest is the tool invocation the voice agent makes mid-call to
// book an appointment for the customer it is talking to.
type BookVisitRequest struct {
	CallID          string    `json:"call_id" validate:"required,max=200"`
	CustomerID      *int64    `json:"customer_id" validate:"omitempty,min=1"`
	Name            string    `json:"name" validate:"required,max=200"`
	Email           *string   `json:"email" validate:"omitempty,email"`
	PhoneNumber     *string   `json:"phone_number" validate:"omitempty,max=32"`
	AppointmentTime time.Time `json:"appointment_time" validate:"required"`
	AgentID         *string   `json:"agent_id" validate:"omitempty,max=100"`
}
