package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	bdomain "voicecrm_backend/internal/bookings/domain"
	brepo "voicecrm_backend/internal/bookings/repository"
	custdomain "voicecrm_backend/internal/customers/domain"
	custrepo "voicecrm_backend/internal/customers/repository"
	"voicecrm_backend/platform/apperr"
	"voicecrm_backend/platform/logger"
	"voicecrm_backend/platform/validator"
)

type fakeCustomers struct {
	outcomes    []custdomain.CallOutcome
	outcomeErr  error
	transitions []struct{ from, to custdomain.Status }
	customer    *custrepo.Customer
	refreshed   []int64
}

func (f *fakeCustomers) ApplyCallOutcome(_ context.Context, _ int64, outcome custdomain.CallOutcome) error {
	f.outcomes = append(f.outcomes, outcome)
	return f.outcomeErr
}

func (f *fakeCustomers) TransitionGuarded(_ context.Context, _ int64, from, to custdomain.Status) (bool, error) {
	f.transitions = append(f.transitions, struct{ from, to custdomain.Status }{from, to})
	return f.customer != nil && f.customer.Status == from, nil
}

func (f *fakeCustomers) Get(_ context.Context, id int64) (*custrepo.Customer, error) {
	if f.customer == nil || f.customer.ID != id {
		return nil, apperr.NotFound("customer not found")
	}
	copied := *f.customer
	return &copied, nil
}

func (f *fakeCustomers) FindByPhone(_ context.Context, phone string) (*custrepo.Customer, error) {
	if f.customer != nil && f.customer.PhoneNumber == phone {
		copied := *f.customer
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeCustomers) PublishRefresh(_ context.Context, id int64) error {
	f.refreshed = append(f.refreshed, id)
	return nil
}

type fakeBookings struct {
	created     []brepo.NewBooking
	createErr   error
	booking     *brepo.Booking
	cancelled   []string
	rescheduled []struct {
		callID string
		t      time.Time
	}
	refreshed []int64
}

func (f *fakeBookings) Create(_ context.Context, booking brepo.NewBooking) (*brepo.Booking, error) {
	f.created = append(f.created, booking)
	if f.createErr != nil {
		return nil, f.createErr
	}
	b := &brepo.Booking{
		ID:              1,
		ProspectName:    booking.ProspectName,
		ProspectEmail:   booking.ProspectEmail,
		ProspectPhone:   booking.ProspectPhone,
		AppointmentTime: booking.AppointmentTime,
		Status:          booking.Status,
		CallID:          booking.CallID,
		CustomerID:      booking.CustomerID,
	}
	return b, nil
}

func (f *fakeBookings) UpdateStatusByCallID(_ context.Context, callID string, status bdomain.Status) (*brepo.Booking, error) {
	if f.booking == nil || f.booking.CallID != callID {
		return nil, apperr.NotFound("no booking found for this call")
	}
	f.cancelled = append(f.cancelled, callID)
	copied := *f.booking
	copied.Status = status
	return &copied, nil
}

func (f *fakeBookings) RescheduleByCallID(_ context.Context, callID string, newTime time.Time) (*brepo.Booking, error) {
	if f.booking == nil || f.booking.CallID != callID {
		return nil, apperr.NotFound("no booking found for this call")
	}
	f.rescheduled = append(f.rescheduled, struct {
		callID string
		t      time.Time
	}{callID, newTime})
	copied := *f.booking
	copied.AppointmentTime = newTime
	return &copied, nil
}

func (f *fakeBookings) PublishRefresh(_ context.Context, bookingID int64, _ string) error {
	f.refreshed = append(f.refreshed, bookingID)
	return nil
}

func newTestHandler(customers *fakeCustomers, bookings *fakeBookings) *Handler {
	return &Handler{
		customers: customers,
		bookings:  bookings,
		val:       validator.New(),
		log:       logger.New("development"),
	}
}

func perform(t *testing.T, handlerFn gin.HandlerFunc, payload any) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	handlerFn(c)
	return rec
}

func analyzedEnvelope(customerID any, callStatus string, successful bool, reason string) map[string]any {
	return map[string]any{
		"event": "call_analyzed",
		"call": map[string]any{
			"call_id":              "call_abc",
			"call_status":          callStatus,
			"disconnection_reason": reason,
			"metadata":             map[string]any{"our_customer_id": customerID},
			"call_analysis":        map[string]any{"call_successful": successful},
		},
	}
}

func TestCallWebhookIgnoresOtherEvents(t *testing.T) {
	customers := &fakeCustomers{}
	h := newTestHandler(customers, &fakeBookings{})

	rec := perform(t, h.HandleCallUpdate, map[string]any{"event": "call_started"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(customers.outcomes) != 0 {
		t.Error("non-analysis events must not reach the lifecycle engine")
	}
}

func TestCallWebhookRejectsMissingObjects(t *testing.T) {
	h := newTestHandler(&fakeCustomers{}, &fakeBookings{})

	rec := perform(t, h.HandleCallUpdate, map[string]any{
		"event": "call_analyzed",
		"call":  map[string]any{"call_id": "call_abc"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCallWebhookIgnoresIncompleteCalls(t *testing.T) {
	customers := &fakeCustomers{}
	h := newTestHandler(customers, &fakeBookings{})

	rec := perform(t, h.HandleCallUpdate, analyzedEnvelope(7, "ongoing", true, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(customers.outcomes) != 0 {
		t.Error("incomplete calls must not reach the lifecycle engine")
	}
}

func TestCallWebhookAppliesOutcome(t *testing.T) {
	customers := &fakeCustomers{}
	h := newTestHandler(customers, &fakeBookings{})

	rec := perform(t, h.HandleCallUpdate, analyzedEnvelope(7, "Completed", false, "user_busy"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(customers.outcomes) != 1 {
		t.Fatalf("outcomes applied = %d, want 1", len(customers.outcomes))
	}
	if customers.outcomes[0].Successful || customers.outcomes[0].DisconnectReason != "user_busy" {
		t.Errorf("outcome = %+v, want unsuccessful user_busy", customers.outcomes[0])
	}
}

func TestCallWebhookCustomerIDAsString(t *testing.T) {
	customers := &fakeCustomers{}
	h := newTestHandler(customers, &fakeBookings{})

	rec := perform(t, h.HandleCallUpdate, analyzedEnvelope("42", "completed", true, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(customers.outcomes) != 1 {
		t.Error("stringly-typed metadata ids must be accepted")
	}
}

func TestCallWebhookMissingCustomerID(t *testing.T) {
	h := newTestHandler(&fakeCustomers{}, &fakeBookings{})

	payload := analyzedEnvelope(7, "completed", true, "")
	payload["call"].(map[string]any)["metadata"] = map[string]any{}
	rec := perform(t, h.HandleCallUpdate, payload)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCallWebhookGuardRaceConflicts(t *testing.T) {
	customers := &fakeCustomers{outcomeErr: apperr.Conflict("customer status changed concurrently")}
	h := newTestHandler(customers, &fakeBookings{})

	rec := perform(t, h.HandleCallUpdate, analyzedEnvelope(7, "completed", true, ""))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 so the provider redelivers", rec.Code)
	}
}

func bookingCreatedEnvelope(uid, status string) map[string]any {
	return map[string]any{
		"triggerEvent": "BOOKING_CREATED",
		"payload": map[string]any{
			"uid":       uid,
			"status":    status,
			"startTime": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
			"attendees": []map[string]any{{"name": "Jane", "email": "j@x.com"}},
		},
	}
}

func TestBookingCreatedWebhook(t *testing.T) {
	bookings := &fakeBookings{}
	h := newTestHandler(&fakeCustomers{}, bookings)

	rec := perform(t, h.HandleBookingEvent, bookingCreatedEnvelope("abc123", "accepted"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if len(bookings.created) != 1 {
		t.Fatalf("bookings created = %d, want 1", len(bookings.created))
	}
	created := bookings.created[0]
	if created.CallID != "abc123" {
		t.Errorf("CallID = %q, want abc123", created.CallID)
	}
	if created.Status != bdomain.StatusConfirmed {
		t.Errorf("status = %v, want Confirmed for provider status accepted", created.Status)
	}
	if created.ProspectPhone != nil {
		t.Error("prospect phone must be nil for provider-created bookings")
	}
	if created.ProspectName != "Jane" || created.ProspectEmail == nil || *created.ProspectEmail != "j@x.com" {
		t.Errorf("prospect = %+v, want Jane <j@x.com>", created)
	}
}

func TestBookingCreatedRequiresAttendee(t *testing.T) {
	bookings := &fakeBookings{}
	h := newTestHandler(&fakeCustomers{}, bookings)

	payload := bookingCreatedEnvelope("abc123", "accepted")
	payload["payload"].(map[string]any)["attendees"] = []map[string]any{}
	rec := perform(t, h.HandleBookingEvent, payload)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(bookings.created) != 0 {
		t.Error("invalid payloads must not reach the lifecycle engine")
	}
}

func TestBookingCreatedReplayConflicts(t *testing.T) {
	bookings := &fakeBookings{createErr: apperr.Conflict("a booking for this call already exists")}
	h := newTestHandler(&fakeCustomers{}, bookings)

	rec := perform(t, h.HandleBookingEvent, bookingCreatedEnvelope("abc123", "accepted"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 for replayed create", rec.Code)
	}
}

func TestBookingCancelledCascadesFromBooked(t *testing.T) {
	customerID := int64(7)
	customers := &fakeCustomers{customer: &custrepo.Customer{ID: 7, Status: custdomain.StatusBooked}}
	bookings := &fakeBookings{booking: &brepo.Booking{ID: 1, CallID: "abc123", CustomerID: &customerID}}
	h := newTestHandler(customers, bookings)

	rec := perform(t, h.HandleBookingEvent, map[string]any{
		"triggerEvent": "BOOKING_CANCELLED",
		"payload":      map[string]any{"uid": "abc123"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(bookings.cancelled) != 1 {
		t.Fatalf("cancellations = %d, want 1", len(bookings.cancelled))
	}
	if len(customers.transitions) != 1 {
		t.Fatalf("cascade transitions = %d, want 1", len(customers.transitions))
	}
	tr := customers.transitions[0]
	if tr.from != custdomain.StatusBooked || tr.to != custdomain.StatusContacted {
		t.Errorf("cascade = %v→%v, want Booked→Contacted", tr.from, tr.to)
	}
}

func TestBookingCancelledCascadeOnlyFiresFromBooked(t *testing.T) {
	customerID := int64(7)
	customers := &fakeCustomers{customer: &custrepo.Customer{ID: 7, Status: custdomain.StatusContacted}}
	bookings := &fakeBookings{booking: &brepo.Booking{ID: 1, CallID: "abc123", CustomerID: &customerID}}
	h := newTestHandler(customers, bookings)

	rec := perform(t, h.HandleBookingEvent, map[string]any{
		"triggerEvent": "BOOKING_CANCELLED",
		"payload":      map[string]any{"uid": "abc123"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; cascade loss must not fail the handler", rec.Code)
	}
	if len(customers.refreshed) != 1 {
		t.Error("a no-op cascade should still refresh the customer for subscribers")
	}
}

func TestBookingCancelledUnknownUID(t *testing.T) {
	h := newTestHandler(&fakeCustomers{}, &fakeBookings{})

	rec := perform(t, h.HandleBookingEvent, map[string]any{
		"triggerEvent": "BOOKING_CANCELLED",
		"payload":      map[string]any{"uid": "missing"},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestBookingRescheduledMovesTime(t *testing.T) {
	bookings := &fakeBookings{booking: &brepo.Booking{ID: 1, CallID: "abc123", Status: bdomain.StatusConfirmed}}
	h := newTestHandler(&fakeCustomers{}, bookings)

	newTime := time.Now().Add(96 * time.Hour).UTC().Truncate(time.Second)
	rec := perform(t, h.HandleBookingEvent, map[string]any{
		"triggerEvent": "BOOKING_RESCHEDULED",
		"payload":      map[string]any{"uid": "abc123", "startTime": newTime.Format(time.RFC3339)},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(bookings.rescheduled) != 1 {
		t.Fatalf("reschedules = %d, want 1", len(bookings.rescheduled))
	}
	if !bookings.rescheduled[0].t.Equal(newTime) {
		t.Errorf("rescheduled to %v, want %v", bookings.rescheduled[0].t, newTime)
	}
}

func TestBookingWebhookIgnoresUnknownEvents(t *testing.T) {
	bookings := &fakeBookings{}
	h := newTestHandler(&fakeCustomers{}, bookings)

	rec := perform(t, h.HandleBookingEvent, map[string]any{
		"triggerEvent": "MEETING_ENDED",
		"payload":      map[string]any{"uid": "abc123"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 to suppress provider retries", rec.Code)
	}
	if len(bookings.created) != 0 && len(bookings.cancelled) != 0 {
		t.Error("unknown events must be dropped")
	}
}

func TestBookVisitLinksAndPromotesCustomer(t *testing.T) {
	customers := &fakeCustomers{customer: &custrepo.Customer{ID: 7, PhoneNumber: "+12125552368", Status: custdomain.StatusCalling}}
	bookings := &fakeBookings{}
	h := newTestHandler(customers, bookings)

	rec := perform(t, h.HandleBookVisit, map[string]any{
		"call_id":          "call_abc",
		"name":             "Ada Lovelace",
		"phone_number":     "+12125552368",
		"appointment_time": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if len(bookings.created) != 1 {
		t.Fatalf("bookings created = %d, want 1", len(bookings.created))
	}
	created := bookings.created[0]
	if created.Status != bdomain.StatusConfirmed {
		t.Errorf("status = %v, want Confirmed", created.Status)
	}
	if created.CustomerID == nil || *created.CustomerID != 7 {
		t.Error("booking must link the customer resolved by phone")
	}
	if len(customers.transitions) != 1 || customers.transitions[0].to != custdomain.StatusBooked {
		t.Errorf("transitions = %+v, want one promotion to Booked", customers.transitions)
	}
}
