package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"voicecrm_backend/platform/logger"
)

// eventsChannel is the Redis pub/sub channel shared by all instances.
const eventsChannel = "voicecrm:events"

// RedisBridge relays SSE events through Redis pub/sub so dashboards
// connected to one instance see writes handled by another. Subscribers not
// connected at publish time miss the event, matching the at-most-once
// contract of the hub itself.
type RedisBridge struct {
	rdb *redis.Client
	hub *Hub
	log *logger.Logger
}

// NewRedisBridge connects to Redis and wires the bridge to the hub.
func NewRedisBridge(redisURL string, hub *Hub, log *logger.Logger) (*RedisBridge, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisBridge{
		rdb: redis.NewClient(opts),
		hub: hub,
		log: log,
	}, nil
}

// Publish puts the event on the shared channel. Local delivery happens when
// the subscription loop receives it back.
func (b *RedisBridge) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.rdb.Publish(ctx, eventsChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Start runs the subscription loop until ctx is cancelled, rebroadcasting
// every received event to the local hub.
func (b *RedisBridge) Start(ctx context.Context) {
	sub := b.rdb.Subscribe(ctx, eventsChannel)
	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.log.Warn("dropping malformed bridged event", "error", err.Error())
					continue
				}
				b.hub.Broadcast(event)
			}
		}
	}()
}

// Close releases the Redis connection.
func (b *RedisBridge) Close() error {
	return b.rdb.Close()
}
