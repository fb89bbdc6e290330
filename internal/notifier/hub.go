// Package notifier fans domain events out to connected dashboard clients
// over Server-Sent Events. Delivery is fire-and-forget and at-most-once: a
// slow client's buffer overflowing drops the event for that client only,
// and nothing here ever gates the write that produced the event.
package notifier

import (
	"encoding/json"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"voicecrm_backend/platform/logger"
)

// Event is one SSE frame sent to subscribers.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// clientBufferSize bounds the per-client queue. Slow consumers lose events
// rather than backpressuring the write path.
const clientBufferSize = 32

type client struct {
	id     string
	events chan Event
}

// Hub tracks connected SSE clients and broadcasts events to all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	log     *logger.Logger
}

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		log:     log,
	}
}

// Broadcast sends the event to every connected client. Clients whose buffer
// is full are skipped.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, cl := range h.clients {
		select {
		case cl.events <- event:
		default:
			h.log.Warn("dropping event for slow subscriber", "client_id", cl.id, "event", event.Type)
		}
	}
}

// ClientCount reports how many clients are connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[cl.id] = cl
}

func (h *Hub) removeClient(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl.id]; ok {
		delete(h.clients, cl.id)
		close(cl.events)
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, cl := range h.clients {
		close(cl.events)
	}
	h.clients = make(map[string]*client)
}

// Handler returns the Gin handler that holds an SSE connection open and
// streams broadcast events to it.
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{
			id:     uuid.NewString(),
			events: make(chan Event, clientBufferSize),
		}
		h.addClient(cl)
		defer h.removeClient(cl)

		c.SSEvent("connected", gin.H{"clientId": cl.id})
		c.Writer.Flush()
		h.log.Debug("sse client connected", "client_id", cl.id)

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				h.log.Debug("sse client disconnected", "client_id", cl.id)
				return
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				data, err := json.Marshal(event)
				if err != nil {
					h.log.Error("failed to marshal sse event", "event", event.Type, "error", err.Error())
					continue
				}
				c.SSEvent(event.Type, string(data))
				c.Writer.Flush()
			}
		}
	}
}
