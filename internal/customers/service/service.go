// Package service implements the customer lifecycle: CRUD, outbound call
// dispatch and the webhook-driven status transitions. All status writes go
// through the store's guarded compare-and-swap so concurrent webhooks and
// operators cannot clobber each other.
package service

import (
	"context"

	"voicecrm_backend/internal/customers/domain"
	"voicecrm_backend/internal/customers/repository"
	"voicecrm_backend/internal/events"
	"voicecrm_backend/internal/shared/pagination"
	"voicecrm_backend/platform/apperr"
	"voicecrm_backend/platform/logger"
	"voicecrm_backend/platform/phone"
)

// CallDispatcher starts an outbound call to a customer through the voice
// provider. Implementations return an error only for confirmed dispatch
// failures (bad config, provider rejection).
type CallDispatcher interface {
	Dispatch(ctx context.Context, customerID int64, name, phoneNumber string) error
}

// EmailSender delivers a message to a customer address. Enabled reports
// whether outbound email is configured at all.
type EmailSender interface {
	Enabled() bool
	Send(ctx context.Context, toName, toAddress, subject, body string) error
}

// Archiver stores a copy of an uploaded import file. Best-effort only.
type Archiver interface {
	Enabled() bool
	Archive(ctx context.Context, filename string, data []byte) error
}

// Service orchestrates customer operations.
type Service struct {
	store      repository.Store
	dispatcher CallDispatcher
	email      EmailSender
	archiver   Archiver
	bus        events.Bus
	log        *logger.Logger
}

// New creates the customer service. dispatcher, email and archiver may be
// nil when the corresponding integration is not configured.
func New(store repository.Store, dispatcher CallDispatcher, email EmailSender, archiver Archiver, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:      store,
		dispatcher: dispatcher,
		email:      email,
		archiver:   archiver,
		bus:        bus,
		log:        log,
	}
}

// Create inserts a new customer with status New. The phone number is
// normalized to E.164 before the uniqueness check so "+1 (212) 555-2368" and
// "+12125552368" collide as expected.
func (s *Service) Create(ctx context.Context, name, phoneNumber string, email *string) (*repository.Customer, error) {
	normalized := phone.NormalizeE164(phoneNumber)
	if normalized == "" {
		return nil, apperr.Validation("phone number is required")
	}

	id, err := s.store.Add(ctx, name, normalized, email)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to create customer", err)
	}
	if id == 0 {
		return nil, apperr.Conflict("a customer with this phone number already exists")
	}

	customer, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.CustomerCreated{
		BaseEvent: events.NewBaseEvent(),
		Customer:  snapshot(customer),
	})
	return customer, nil
}

// Get returns one customer by id.
func (s *Service) Get(ctx context.Context, customerID int64) (*repository.Customer, error) {
	return s.store.GetByID(ctx, customerID)
}

// List returns one page of customers, optionally filtered by search text
// and status.
func (s *Service) List(ctx context.Context, params pagination.Params) (*pagination.PagedList[repository.Customer], error) {
	if params.Status != nil && !domain.Status(*params.Status).Valid() {
		return nil, apperr.Validation("unknown status filter")
	}
	return s.store.ListPaginated(ctx, params)
}

// Statistics returns the dashboard counters.
func (s *Service) Statistics(ctx context.Context) (*repository.Statistics, error) {
	return s.store.Statistics(ctx)
}

// Update overwrites the customer's editable fields. The status may be set
// directly here; webhook-driven transitions use ApplyCallOutcome instead.
func (s *Service) Update(ctx context.Context, customerID int64, name, phoneNumber string, email *string, status domain.Status) (*repository.Customer, error) {
	if !status.Valid() {
		return nil, apperr.Validation("unknown customer status")
	}

	existing, err := s.store.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	normalized := phone.NormalizeE164(phoneNumber)
	if normalized == "" {
		return nil, apperr.Validation("phone number is required")
	}
	if normalized != existing.PhoneNumber {
		other, err := s.store.GetByPhone(ctx, normalized)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to check phone number", err)
		}
		if other != nil && other.ID != customerID {
			return nil, apperr.Conflict("a customer with this phone number already exists")
		}
	}

	updated := &repository.Customer{
		ID:          customerID,
		Name:        name,
		PhoneNumber: normalized,
		Email:       email,
		Status:      status,
	}
	ok, err := s.store.Update(ctx, updated)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to update customer", err)
	}
	if !ok {
		return nil, apperr.NotFound("customer not found")
	}

	customer, err := s.store.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	s.publishUpdated(ctx, customer)
	return customer, nil
}

// Delete removes a customer. Deletion is rejected with a conflict when
// bookings still reference the customer.
func (s *Service) Delete(ctx context.Context, customerID int64) error {
	if _, err := s.store.GetByID(ctx, customerID); err != nil {
		return err
	}

	ok, err := s.store.Delete(ctx, customerID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to delete customer", err)
	}
	if !ok {
		return apperr.Conflict("customer has bookings and cannot be deleted")
	}

	s.bus.Publish(ctx, events.CustomerDeleted{
		BaseEvent:  events.NewBaseEvent(),
		CustomerID: customerID,
	})
	return nil
}

// StartCall dispatches an outbound call to the customer. The status is
// flipped to Calling before the provider is contacted, so a second StartCall
// racing this one loses the guard and gets a conflict. Only a confirmed
// dispatch failure reverts the customer to Failed; an ambiguous outcome
// (timeout) leaves the customer in Calling for the webhook to resolve.
func (s *Service) StartCall(ctx context.Context, customerID int64) error {
	customer, err := s.store.GetByID(ctx, customerID)
	if err != nil {
		return err
	}
	if customer.Status == domain.StatusCalling {
		return apperr.Conflict("a call to this customer is already in progress")
	}
	if s.dispatcher == nil {
		return apperr.Internal("voice provider is not configured")
	}

	ok, err := s.store.UpdateStatusGuarded(ctx, customerID, domain.StatusCalling, customer.Status)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to mark customer as calling", err)
	}
	if !ok {
		return apperr.Conflict("customer status changed, call not started")
	}

	customer.Status = domain.StatusCalling
	s.publishUpdated(ctx, customer)

	if err := s.dispatcher.Dispatch(ctx, customer.ID, customer.Name, customer.PhoneNumber); err != nil {
		s.log.WithContext(ctx).Error("call dispatch failed",
			"customer_id", customer.ID, "error", err.Error())
		s.revertFailedDispatch(ctx, customer)
		return apperr.Wrap(apperr.KindInternal, "failed to start call", err)
	}

	return nil
}

// revertFailedDispatch moves Calling back to Failed after a confirmed
// dispatch failure. Best-effort: if a webhook already moved the customer on,
// the guard fails and the newer status wins.
func (s *Service) revertFailedDispatch(ctx context.Context, customer *repository.Customer) {
	ok, err := s.store.UpdateStatusGuarded(ctx, customer.ID, domain.StatusFailed, domain.StatusCalling)
	if err != nil {
		s.log.WithContext(ctx).Error("failed to revert customer after dispatch failure",
			"customer_id", customer.ID, "error", err.Error())
		return
	}
	if !ok {
		return
	}
	customer.Status = domain.StatusFailed
	s.publishUpdated(ctx, customer)
}

// ApplyCallOutcome maps a completed call's analysis onto the customer status
// and commits it with the guard. Equal current and target statuses succeed
// without a write or a broadcast; a lost guard surfaces as a conflict so the
// provider retries the webhook.
func (s *Service) ApplyCallOutcome(ctx context.Context, customerID int64, outcome domain.CallOutcome) error {
	customer, err := s.store.GetByID(ctx, customerID)
	if err != nil {
		return err
	}

	target, recognized := domain.DecideStatus(customer.Status, outcome)
	if !recognized {
		s.log.WithContext(ctx).Warn("unrecognized disconnect reason",
			"customer_id", customerID, "reason", outcome.DisconnectReason)
	}
	if target == customer.Status {
		return nil
	}

	ok, err := s.store.UpdateStatusGuarded(ctx, customerID, target, customer.Status)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to update customer status", err)
	}
	if !ok {
		return apperr.Conflict("customer status changed concurrently")
	}

	customer.Status = target
	s.publishUpdated(ctx, customer)
	return nil
}

// TransitionGuarded applies a from→to status transition if the customer is
// still in from, broadcasting on success. It reports whether the transition
// was applied; a lost guard is a normal false, not an error. Used by the
// booking flow (mark Booked, cascade Booked→Contacted on cancellation).
func (s *Service) TransitionGuarded(ctx context.Context, customerID int64, from, to domain.Status) (bool, error) {
	ok, err := s.store.UpdateStatusGuarded(ctx, customerID, to, from)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "failed to transition customer status", err)
	}
	if !ok {
		return false, nil
	}

	customer, err := s.store.GetByID(ctx, customerID)
	if err != nil {
		// The write succeeded; a read failure must not fail the caller.
		s.log.WithContext(ctx).Error("failed to load customer after transition",
			"customer_id", customerID, "error", err.Error())
		return true, nil
	}
	s.publishUpdated(ctx, customer)
	return true, nil
}

// PublishRefresh broadcasts the customer's current state without writing
// anything. Webhook flows use it when a related entity changed and
// subscribers should re-render the customer.
func (s *Service) PublishRefresh(ctx context.Context, customerID int64) error {
	customer, err := s.store.GetByID(ctx, customerID)
	if err != nil {
		return err
	}
	s.publishUpdated(ctx, customer)
	return nil
}

// FindByPhone returns the customer owning the phone number, or nil when no
// customer has it.
func (s *Service) FindByPhone(ctx context.Context, phoneNumber string) (*repository.Customer, error) {
	return s.store.GetByPhone(ctx, phone.NormalizeE164(phoneNumber))
}

// SendEmail delivers an operator-composed message to the customer's address.
func (s *Service) SendEmail(ctx context.Context, customerID int64, subject, body string) error {
	if s.email == nil || !s.email.Enabled() {
		return apperr.Validation("outbound email is not configured")
	}

	customer, err := s.store.GetByID(ctx, customerID)
	if err != nil {
		return err
	}
	if customer.Email == nil || *customer.Email == "" {
		return apperr.Validation("customer has no email address")
	}

	if err := s.email.Send(ctx, customer.Name, *customer.Email, subject, body); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to send email", err)
	}
	s.log.WithContext(ctx).Info("customer email sent",
		"customer_id", customerID, "subject", subject)
	return nil
}

func (s *Service) publishUpdated(ctx context.Context, customer *repository.Customer) {
	s.bus.Publish(ctx, events.CustomerUpdated{
		BaseEvent: events.NewBaseEvent(),
		Customer:  snapshot(customer),
	})
}

func snapshot(c *repository.Customer) events.CustomerSnapshot {
	return events.CustomerSnapshot{
		ID:          c.ID,
		Name:        c.Name,
		PhoneNumber: c.PhoneNumber,
		Email:       c.Email,
		Status:      c.Status.String(),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
