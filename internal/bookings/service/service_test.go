package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"voicecrm_backend/internal/bookings/domain"
	"voicecrm_backend/internal/bookings/repository"
	"voicecrm_backend/internal/events"
	"voicecrm_backend/internal/shared/pagination"
	"voicecrm_backend/platform/apperr"
	"voicecrm_backend/platform/logger"
)

type fakeStore struct {
	bookings map[int64]*repository.Booking
	nextID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{bookings: make(map[int64]*repository.Booking), nextID: 1}
}

func (f *fakeStore) seed(callID string, status domain.Status, customerID *int64) *repository.Booking {
	b := &repository.Booking{
		ID:              f.nextID,
		ProspectName:    "Prospect",
		AppointmentTime: time.Now().Add(48 * time.Hour),
		Status:          status,
		CallID:          callID,
		CustomerID:      customerID,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	f.bookings[b.ID] = b
	f.nextID++
	return b
}

func (f *fakeStore) Add(_ context.Context, booking repository.NewBooking) (int64, error) {
	for _, b := range f.bookings {
		if b.CallID == booking.CallID {
			return 0, nil
		}
	}
	b := f.seed(booking.CallID, booking.Status, booking.CustomerID)
	b.ProspectName = booking.ProspectName
	b.ProspectEmail = booking.ProspectEmail
	b.ProspectPhone = booking.ProspectPhone
	b.AppointmentTime = booking.AppointmentTime
	b.AgentID = booking.AgentID
	return b.ID, nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*repository.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, apperr.NotFound("booking not found")
	}
	copied := *b
	return &copied, nil
}

func (f *fakeStore) GetByCallID(_ context.Context, callID string) (*repository.Booking, error) {
	for _, b := range f.bookings {
		if b.CallID == callID {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id int64, status domain.Status) (bool, error) {
	b, ok := f.bookings[id]
	if !ok {
		return false, nil
	}
	b.Status = status
	return true, nil
}

func (f *fakeStore) UpdateStatusByCallID(_ context.Context, callID string, status domain.Status) (bool, error) {
	for _, b := range f.bookings {
		if b.CallID == callID {
			b.Status = status
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) RescheduleByCallID(_ context.Context, callID string, newTime time.Time) (bool, error) {
	for _, b := range f.bookings {
		if b.CallID == callID {
			b.AppointmentTime = newTime
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListPaginated(_ context.Context, params pagination.Params) (*pagination.PagedList[repository.Booking], error) {
	params.Normalize()
	var items []repository.Booking
	for _, b := range f.bookings {
		items = append(items, *b)
	}
	return pagination.NewPagedList(items, int64(len(items)), params.Page, params.PageSize), nil
}

func (f *fakeStore) Statistics(context.Context) (*repository.Statistics, error) {
	return &repository.Statistics{TotalCount: int64(len(f.bookings))}, nil
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func newTestService(store *fakeStore, external ExternalLister) (*Service, *recordingBus) {
	bus := &recordingBus{}
	return New(store, external, bus, logger.New("development")), bus
}

func validNewBooking(callID string) repository.NewBooking {
	return repository.NewBooking{
		ProspectName:    "Ada Lovelace",
		AppointmentTime: time.Now().Add(24 * time.Hour),
		Status:          domain.StatusConfirmed,
		CallID:          callID,
	}
}

func TestCreatePublishesCreatedEvent(t *testing.T) {
	store := newFakeStore()
	svc, bus := newTestService(store, nil)

	booking, err := svc.Create(context.Background(), validNewBooking("call_123"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if booking.CallID != "call_123" {
		t.Errorf("CallID = %q, want call_123", booking.CallID)
	}
	if len(bus.published) != 1 || bus.published[0].EventName() != "bookings.booking.created" {
		t.Errorf("published = %v, want one created event", bus.published)
	}
}

func TestCreateValidatesBeforeStorage(t *testing.T) {
	store := newFakeStore()
	svc, bus := newTestService(store, nil)

	tests := []struct {
		name   string
		mutate func(*repository.NewBooking)
	}{
		{"empty call id", func(b *repository.NewBooking) { b.CallID = "" }},
		{"empty prospect name", func(b *repository.NewBooking) { b.ProspectName = "" }},
		{"appointment in the past", func(b *repository.NewBooking) { b.AppointmentTime = time.Now().Add(-time.Hour) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			booking := validNewBooking("call_999")
			tc.mutate(&booking)
			_, err := svc.Create(context.Background(), booking)
			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("Create = %v, want validation error", err)
			}
		})
	}
	if len(store.bookings) != 0 {
		t.Error("invalid bookings must not reach storage")
	}
	if len(bus.published) != 0 {
		t.Error("invalid bookings must not broadcast")
	}
}

func TestCreateDuplicateCallIDConflicts(t *testing.T) {
	store := newFakeStore()
	store.seed("call_123", domain.StatusConfirmed, nil)
	svc, _ := newTestService(store, nil)

	_, err := svc.Create(context.Background(), validNewBooking("call_123"))
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("Create duplicate = %v, want conflict", err)
	}
}

func TestUpdateStatusByCallID(t *testing.T) {
	store := newFakeStore()
	customerID := int64(7)
	seeded := store.seed("call_123", domain.StatusConfirmed, &customerID)
	svc, bus := newTestService(store, nil)

	booking, err := svc.UpdateStatusByCallID(context.Background(), "call_123", domain.StatusCancelled)
	if err != nil {
		t.Fatalf("UpdateStatusByCallID returned error: %v", err)
	}
	if booking.Status != domain.StatusCancelled {
		t.Errorf("status = %v, want Cancelled", booking.Status)
	}
	if booking.CustomerID == nil || *booking.CustomerID != customerID {
		t.Error("updated booking must carry the customer id for cascades")
	}
	if store.bookings[seeded.ID].Status != domain.StatusCancelled {
		t.Error("status not persisted")
	}
	if len(bus.published) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.published))
	}
	updated, ok := bus.published[0].(events.BookingUpdated)
	if !ok || updated.StatusLabel != "Cancelled" {
		t.Errorf("event = %+v, want BookingUpdated with label Cancelled", bus.published[0])
	}
}

func TestUpdateStatusByCallIDUnknownCall(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, nil)

	_, err := svc.UpdateStatusByCallID(context.Background(), "missing", domain.StatusCancelled)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("UpdateStatusByCallID = %v, want not found", err)
	}
}

func TestRescheduleByCallIDMovesTimeOnly(t *testing.T) {
	store := newFakeStore()
	seeded := store.seed("call_123", domain.StatusConfirmed, nil)
	svc, bus := newTestService(store, nil)

	newTime := time.Now().Add(72 * time.Hour)
	booking, err := svc.RescheduleByCallID(context.Background(), "call_123", newTime)
	if err != nil {
		t.Fatalf("RescheduleByCallID returned error: %v", err)
	}
	if !booking.AppointmentTime.Equal(newTime) {
		t.Errorf("appointment time = %v, want %v", booking.AppointmentTime, newTime)
	}
	if store.bookings[seeded.ID].Status != domain.StatusConfirmed {
		t.Error("reschedule must not change the status")
	}
	if len(bus.published) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.published))
	}
	updated, ok := bus.published[0].(events.BookingUpdated)
	if !ok || updated.StatusLabel != "Confirmed" {
		t.Errorf("event = %+v, want BookingUpdated tagged Confirmed", bus.published[0])
	}
}

type failingLister struct{}

func (failingLister) ListBookings(context.Context, int, int, string) ([]ExternalBooking, error) {
	return nil, errors.New("provider unavailable")
}

func TestListExternalDegradesToEmpty(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, failingLister{})

	bookings, err := svc.ListExternal(context.Background(), 25, 0, "")
	if err != nil {
		t.Fatalf("ListExternal returned error: %v", err)
	}
	if bookings == nil || len(bookings) != 0 {
		t.Errorf("bookings = %v, want empty slice", bookings)
	}
}
