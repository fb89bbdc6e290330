package notifier

import (
	"context"

	"voicecrm_backend/internal/events"
	apphttp "voicecrm_backend/internal/http"
	"voicecrm_backend/platform/config"
	"voicecrm_backend/platform/logger"
)

// Module is the real-time notifier module implementing http.Module.
type Module struct {
	hub        *Hub
	bridge     *RedisBridge
	subscriber *Subscriber
}

// NewModule builds the SSE hub, the optional Redis bridge and the bus
// relay. A Redis failure degrades to single-instance local fan-out rather
// than failing startup.
func NewModule(ctx context.Context, cfg config.NotifierConfig, bus events.Bus, log *logger.Logger) *Module {
	hub := NewHub(log)

	var bridge *RedisBridge
	if url := cfg.GetRedisURL(); url != "" {
		b, err := NewRedisBridge(url, hub, log)
		if err != nil {
			log.Warn("redis bridge disabled", "error", err.Error())
		} else {
			bridge = b
			bridge.Start(ctx)
			log.Info("redis event bridge started")
		}
	}

	subscriber := NewSubscriber(hub, bridge, log)
	subscriber.Register(bus)

	return &Module{hub: hub, bridge: bridge, subscriber: subscriber}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notifier"
}

// Hub exposes the hub for tests and health endpoints.
func (m *Module) Hub() *Hub {
	return m.hub
}

// RegisterRoutes mounts the SSE stream. Auth middleware accepts the token
// as a query parameter since EventSource cannot set headers.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/events/stream", m.hub.Handler())
}

// Close disconnects all clients and the Redis bridge.
func (m *Module) Close() {
	m.hub.Close()
	if m.bridge != nil {
		_ = m.bridge.Close()
	}
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
