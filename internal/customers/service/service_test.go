package service

import (
	"context"
	"testing"
	"time"

	"voicecrm_backend/internal/customers/domain"
	"voicecrm_backend/internal/customers/repository"
	"voicecrm_backend/internal/events"
	"voicecrm_backend/internal/shared/pagination"
	"voicecrm_backend/platform/apperr"
	"voicecrm_backend/platform/logger"
)

// fakeStore is an in-memory Store that also records guarded-update calls.
type fakeStore struct {
	customers map[int64]*repository.Customer
	nextID    int64

	guardedCalls []guardedCall
	bulkInserted int64
	bulkRows     []repository.ImportRow

	failGuard bool
}

type guardedCall struct {
	id       int64
	from, to domain.Status
}

func newFakeStore() *fakeStore {
	return &fakeStore{customers: make(map[int64]*repository.Customer), nextID: 1}
}

func (f *fakeStore) seed(name, phone string, status domain.Status) *repository.Customer {
	c := &repository.Customer{
		ID:          f.nextID,
		Name:        name,
		PhoneNumber: phone,
		Status:      status,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	f.customers[c.ID] = c
	f.nextID++
	return c
}

func (f *fakeStore) Add(_ context.Context, name, phone string, email *string) (int64, error) {
	for _, c := range f.customers {
		if c.PhoneNumber == phone {
			return 0, nil
		}
	}
	c := f.seed(name, phone, domain.StatusNew)
	c.Email = email
	return c.ID, nil
}

func (f *fakeStore) Update(_ context.Context, customer *repository.Customer) (bool, error) {
	existing, ok := f.customers[customer.ID]
	if !ok {
		return false, nil
	}
	existing.Name = customer.Name
	existing.PhoneNumber = customer.PhoneNumber
	existing.Email = customer.Email
	existing.Status = customer.Status
	return true, nil
}

func (f *fakeStore) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := f.customers[id]; !ok {
		return false, nil
	}
	delete(f.customers, id)
	return true, nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*repository.Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return nil, apperr.NotFound("customer not found")
	}
	copied := *c
	return &copied, nil
}

func (f *fakeStore) GetByPhone(_ context.Context, phone string) (*repository.Customer, error) {
	for _, c := range f.customers {
		if c.PhoneNumber == phone {
			copied := *c
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetByStatus(_ context.Context, status domain.Status) ([]repository.Customer, error) {
	var out []repository.Customer
	for _, c := range f.customers {
		if c.Status == status {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateStatusGuarded(_ context.Context, id int64, newStatus, oldStatus domain.Status) (bool, error) {
	f.guardedCalls = append(f.guardedCalls, guardedCall{id: id, from: oldStatus, to: newStatus})
	if f.failGuard {
		return false, nil
	}
	c, ok := f.customers[id]
	if !ok || c.Status != oldStatus {
		return false, nil
	}
	c.Status = newStatus
	return true, nil
}

func (f *fakeStore) ListPaginated(_ context.Context, params pagination.Params) (*pagination.PagedList[repository.Customer], error) {
	params.Normalize()
	var items []repository.Customer
	for _, c := range f.customers {
		items = append(items, *c)
	}
	return pagination.NewPagedList(items, int64(len(items)), params.Page, params.PageSize), nil
}

func (f *fakeStore) Statistics(_ context.Context) (*repository.Statistics, error) {
	stats := &repository.Statistics{TotalCount: int64(len(f.customers))}
	for _, c := range f.customers {
		switch c.Status {
		case domain.StatusNew:
			stats.NewCount++
		case domain.StatusCalling:
			stats.CallingCount++
		case domain.StatusBooked:
			stats.BookedCount++
		}
	}
	return stats, nil
}

func (f *fakeStore) BulkAdd(_ context.Context, rows []repository.ImportRow) (int64, error) {
	f.bulkRows = rows
	if f.bulkInserted > 0 || len(rows) == 0 {
		return f.bulkInserted, nil
	}
	return int64(len(rows)), nil
}

// recordingBus captures published events synchronously.
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

func (b *recordingBus) names() []string {
	out := make([]string, len(b.published))
	for i, e := range b.published {
		out[i] = e.EventName()
	}
	return out
}

// fakeDispatcher records dispatches and optionally fails them.
type fakeDispatcher struct {
	calls  int
	failed bool
}

func (d *fakeDispatcher) Dispatch(context.Context, int64, string, string) error {
	d.calls++
	if d.failed {
		return apperr.Internal("provider rejected the call")
	}
	return nil
}

func newTestService(store *fakeStore, dispatcher CallDispatcher) (*Service, *recordingBus) {
	bus := &recordingBus{}
	return New(store, dispatcher, nil, nil, bus, logger.New("development")), bus
}

func TestCreatePublishesCreatedEvent(t *testing.T) {
	store := newFakeStore()
	svc, bus := newTestService(store, nil)

	customer, err := svc.Create(context.Background(), "Ada Lovelace", "+12125552368", nil)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if customer.Status != domain.StatusNew {
		t.Errorf("new customer status = %v, want New", customer.Status)
	}
	if got := bus.names(); len(got) != 1 || got[0] != "customers.customer.created" {
		t.Errorf("published events = %v, want one created event", got)
	}
}

func TestCreateDuplicatePhoneConflicts(t *testing.T) {
	store := newFakeStore()
	store.seed("Existing", "+12125552368", domain.StatusNew)
	svc, bus := newTestService(store, nil)

	_, err := svc.Create(context.Background(), "Someone Else", "(212) 555-2368", nil)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("Create duplicate = %v, want conflict", err)
	}
	if len(bus.published) != 0 {
		t.Error("no event should be published on conflict")
	}
}

func TestStartCallFlipsToCallingBeforeDispatch(t *testing.T) {
	store := newFakeStore()
	customer := store.seed("Ada", "+12125552368", domain.StatusNew)
	dispatcher := &fakeDispatcher{}
	svc, bus := newTestService(store, dispatcher)

	if err := svc.StartCall(context.Background(), customer.ID); err != nil {
		t.Fatalf("StartCall returned error: %v", err)
	}
	if store.customers[customer.ID].Status != domain.StatusCalling {
		t.Errorf("status = %v, want Calling", store.customers[customer.ID].Status)
	}
	if dispatcher.calls != 1 {
		t.Errorf("dispatcher calls = %d, want 1", dispatcher.calls)
	}
	if len(store.guardedCalls) != 1 || store.guardedCalls[0].to != domain.StatusCalling {
		t.Errorf("guarded calls = %+v, want one transition to Calling", store.guardedCalls)
	}
	if got := bus.names(); len(got) != 1 || got[0] != "customers.customer.updated" {
		t.Errorf("published events = %v, want one updated event", got)
	}
}

func TestStartCallAlreadyCallingConflicts(t *testing.T) {
	store := newFakeStore()
	customer := store.seed("Ada", "+12125552368", domain.StatusCalling)
	dispatcher := &fakeDispatcher{}
	svc, _ := newTestService(store, dispatcher)

	err := svc.StartCall(context.Background(), customer.ID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("StartCall = %v, want conflict", err)
	}
	if dispatcher.calls != 0 {
		t.Error("dispatcher must not be called when a call is in progress")
	}
}

func TestStartCallDispatchFailureRevertsToFailed(t *testing.T) {
	store := newFakeStore()
	customer := store.seed("Ada", "+12125552368", domain.StatusNew)
	svc, bus := newTestService(store, &fakeDispatcher{failed: true})

	err := svc.StartCall(context.Background(), customer.ID)
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("StartCall = %v, want internal error", err)
	}
	if store.customers[customer.ID].Status != domain.StatusFailed {
		t.Errorf("status = %v, want Failed after dispatch failure", store.customers[customer.ID].Status)
	}
	// Calling broadcast, then Failed broadcast.
	if got := bus.names(); len(got) != 2 {
		t.Errorf("published events = %v, want two updated events", got)
	}
}

func TestStartCallGuardRaceConflicts(t *testing.T) {
	store := newFakeStore()
	customer := store.seed("Ada", "+12125552368", domain.StatusNew)
	store.failGuard = true
	dispatcher := &fakeDispatcher{}
	svc, _ := newTestService(store, dispatcher)

	err := svc.StartCall(context.Background(), customer.ID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("StartCall = %v, want conflict on lost guard", err)
	}
	if dispatcher.calls != 0 {
		t.Error("dispatcher must not be called when the guard is lost")
	}
}

func TestApplyCallOutcomeTransitions(t *testing.T) {
	store := newFakeStore()
	customer := store.seed("Ada", "+12125552368", domain.StatusCalling)
	svc, bus := newTestService(store, nil)

	outcome := domain.CallOutcome{Successful: false, DisconnectReason: "user_not_answered"}
	if err := svc.ApplyCallOutcome(context.Background(), customer.ID, outcome); err != nil {
		t.Fatalf("ApplyCallOutcome returned error: %v", err)
	}
	if store.customers[customer.ID].Status != domain.StatusNoAnswer {
		t.Errorf("status = %v, want NoAnswer", store.customers[customer.ID].Status)
	}
	if got := bus.names(); len(got) != 1 || got[0] != "customers.customer.updated" {
		t.Errorf("published events = %v, want one updated event", got)
	}
}

func TestApplyCallOutcomeEqualStatusShortCircuits(t *testing.T) {
	store := newFakeStore()
	customer := store.seed("Ada", "+12125552368", domain.StatusContacted)
	svc, bus := newTestService(store, nil)

	outcome := domain.CallOutcome{Successful: true}
	if err := svc.ApplyCallOutcome(context.Background(), customer.ID, outcome); err != nil {
		t.Fatalf("ApplyCallOutcome returned error: %v", err)
	}
	if len(store.guardedCalls) != 0 {
		t.Error("equal target status must not hit the store")
	}
	if len(bus.published) != 0 {
		t.Error("equal target status must not broadcast")
	}
}

func TestApplyCallOutcomeLostGuardConflicts(t *testing.T) {
	store := newFakeStore()
	customer := store.seed("Ada", "+12125552368", domain.StatusCalling)
	store.failGuard = true
	svc, _ := newTestService(store, nil)

	outcome := domain.CallOutcome{Successful: true}
	err := svc.ApplyCallOutcome(context.Background(), customer.ID, outcome)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("ApplyCallOutcome = %v, want conflict", err)
	}
}

func TestTransitionGuarded(t *testing.T) {
	store := newFakeStore()
	customer := store.seed("Ada", "+12125552368", domain.StatusBooked)
	svc, bus := newTestService(store, nil)

	applied, err := svc.TransitionGuarded(context.Background(), customer.ID, domain.StatusBooked, domain.StatusContacted)
	if err != nil || !applied {
		t.Fatalf("TransitionGuarded = (%v, %v), want (true, nil)", applied, err)
	}
	if store.customers[customer.ID].Status != domain.StatusContacted {
		t.Errorf("status = %v, want Contacted", store.customers[customer.ID].Status)
	}
	if len(bus.published) != 1 {
		t.Errorf("published %d events, want 1", len(bus.published))
	}

	// A second identical transition loses the guard quietly.
	applied, err = svc.TransitionGuarded(context.Background(), customer.ID, domain.StatusBooked, domain.StatusContacted)
	if err != nil || applied {
		t.Fatalf("repeat TransitionGuarded = (%v, %v), want (false, nil)", applied, err)
	}
}

func TestDeleteReferencedCustomerConflicts(t *testing.T) {
	store := newFakeStore()
	customer := store.seed("Ada", "+12125552368", domain.StatusBooked)
	svc, _ := newTestService(store, nil)

	// Simulate the server-side referential rejection.
	blocked := &blockedDeleteStore{fakeStore: store}
	svc = New(blocked, nil, nil, nil, &recordingBus{}, logger.New("development"))

	err := svc.Delete(context.Background(), customer.ID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("Delete = %v, want conflict", err)
	}
}

type blockedDeleteStore struct{ *fakeStore }

func (b *blockedDeleteStore) Delete(context.Context, int64) (bool, error) { return false, nil }

func TestSendEmailValidations(t *testing.T) {
	store := newFakeStore()
	customer := store.seed("Ada", "+12125552368", domain.StatusNew)
	svc, _ := newTestService(store, nil)

	err := svc.SendEmail(context.Background(), customer.ID, "Hello", "Body")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("SendEmail without sender = %v, want validation error", err)
	}

	sender := &fakeSender{enabled: true}
	svc = New(store, nil, sender, nil, &recordingBus{}, logger.New("development"))
	err = svc.SendEmail(context.Background(), customer.ID, "Hello", "Body")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("SendEmail without address = %v, want validation error", err)
	}

	email := "ada@example.com"
	store.customers[customer.ID].Email = &email
	if err := svc.SendEmail(context.Background(), customer.ID, "Hello", "Body"); err != nil {
		t.Fatalf("SendEmail returned error: %v", err)
	}
	if sender.sent != 1 {
		t.Errorf("sender.sent = %d, want 1", sender.sent)
	}
}

type fakeSender struct {
	enabled bool
	sent    int
}

func (f *fakeSender) Enabled() bool { return f.enabled }

func (f *fakeSender) Send(context.Context, string, string, string, string) error {
	f.sent++
	return nil
}
