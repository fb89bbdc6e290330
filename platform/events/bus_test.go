package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"voicecrm_backend/platform/logger"
)

type testEvent struct {
	BaseEvent
	name string
}

func (e testEvent) EventName() string { return e.name }

func TestPublishSyncDeliversToAllHandlers(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	var calls int32
	for i := 0; i < 3; i++ {
		bus.Subscribe("customer.updated", HandlerFunc(func(ctx context.Context, e Event) error {
			atomic.AddInt32(&calls, 1)
			return nil
		}))
	}

	if err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "customer.updated"}); err != nil {
		t.Fatalf("PublishSync returned error: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 handler invocations, got %d", got)
	}
}

func TestPublishSyncJoinsHandlerErrors(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	wantErr := errors.New("boom")
	bus.Subscribe("booking.updated", HandlerFunc(func(ctx context.Context, e Event) error {
		return wantErr
	}))
	bus.Subscribe("booking.updated", HandlerFunc(func(ctx context.Context, e Event) error {
		return nil
	}))

	err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "booking.updated"})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected joined error to contain %v, got %v", wantErr, err)
	}
}

func TestPublishIsFireAndForget(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	done := make(chan struct{})
	bus.Subscribe("customer.created", HandlerFunc(func(ctx context.Context, e Event) error {
		close(done)
		return errors.New("handler failure must not reach publisher")
	}))

	// Publish must not block or surface the handler error.
	bus.Publish(context.Background(), testEvent{NewBaseEvent(), "customer.created"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was never invoked")
	}
}

func TestPublishIgnoresUnsubscribedEvents(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))
	// No handlers registered; both paths must be safe no-ops.
	bus.Publish(context.Background(), testEvent{NewBaseEvent(), "nobody.cares"})
	if err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "nobody.cares"}); err != nil {
		t.Errorf("PublishSync with no handlers returned error: %v", err)
	}
}
