package notifier

import (
	"context"

	"voicecrm_backend/internal/events"
	"voicecrm_backend/platform/logger"
)

// SSE event types, one per domain event contract.
const (
	TypeCustomerCreated   = "customer_created"
	TypeCustomerUpdated   = "customer_updated"
	TypeCustomerDeleted   = "customer_deleted"
	TypeBookingCreated    = "booking_created"
	TypeBookingUpdated    = "booking_updated"
	TypeCustomersImported = "customers_imported"
)

// subscribedEvents lists every bus event the notifier relays.
var subscribedEvents = []string{
	events.CustomerCreated{}.EventName(),
	events.CustomerUpdated{}.EventName(),
	events.CustomerDeleted{}.EventName(),
	events.BookingCreated{}.EventName(),
	events.BookingUpdated{}.EventName(),
	events.CustomersImported{}.EventName(),
}

// Subscriber bridges the in-process event bus to the SSE hub. When a Redis
// bridge is configured, events detour through the shared channel so every
// instance's hub sees them; otherwise they go straight to the local hub.
type Subscriber struct {
	hub    *Hub
	bridge *RedisBridge
	log    *logger.Logger
}

// NewSubscriber creates the bus-to-hub relay. bridge may be nil.
func NewSubscriber(hub *Hub, bridge *RedisBridge, log *logger.Logger) *Subscriber {
	return &Subscriber{hub: hub, bridge: bridge, log: log}
}

// Register subscribes the relay to every broadcastable domain event.
func (s *Subscriber) Register(bus events.Bus) {
	for _, name := range subscribedEvents {
		bus.Subscribe(name, s)
	}
}

// Handle maps a domain event to its SSE frame and dispatches it.
func (s *Subscriber) Handle(ctx context.Context, event events.Event) error {
	sseEvent, ok := toSSEEvent(event)
	if !ok {
		return nil
	}

	if s.bridge != nil {
		return s.bridge.Publish(ctx, sseEvent)
	}
	s.hub.Broadcast(sseEvent)
	return nil
}

func toSSEEvent(event events.Event) (Event, bool) {
	switch e := event.(type) {
	case events.CustomerCreated:
		return Event{Type: TypeCustomerCreated, Payload: e.Customer}, true
	case events.CustomerUpdated:
		return Event{Type: TypeCustomerUpdated, Payload: e.Customer}, true
	case events.CustomerDeleted:
		return Event{Type: TypeCustomerDeleted, Payload: map[string]int64{"customerId": e.CustomerID}}, true
	case events.BookingCreated:
		return Event{Type: TypeBookingCreated, Payload: e.Booking}, true
	case events.BookingUpdated:
		return Event{Type: TypeBookingUpdated, Payload: map[string]any{
			"booking":     e.Booking,
			"statusLabel": e.StatusLabel,
		}}, true
	case events.CustomersImported:
		return Event{Type: TypeCustomersImported, Payload: map[string]int{
			"imported": e.Imported,
			"skipped":  e.Skipped,
			"failed":   e.Failed,
		}}, true
	default:
		return Event{}, false
	}
}

var _ events.Handler = (*Subscriber)(nil)
