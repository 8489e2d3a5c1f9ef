package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// envelope is the pub/sub message shared between instances.
type envelope struct {
	Origin string `json:"origin,omitempty"`
	Event  *Event `json:"event"`
}

// RedisBridge fans hub events out to every API instance over Redis Pub/Sub.
type RedisBridge struct {
	rdb     *redis.Client
	channel string
	hub     *Hub
}

// NewRedisBridge creates a bridge and installs it as the hub's fanout.
func NewRedisBridge(rdb *redis.Client, channel string, hub *Hub) *RedisBridge {
	b := &RedisBridge{rdb: rdb, channel: channel, hub: hub}
	hub.SetFanout(b)
	return b
}

// Forward publishes event for every instance, this one included.
func (b *RedisBridge) Forward(ctx context.Context, event *Event, origin string) error {
	data, err := json.Marshal(envelope{Origin: origin, Event: event})
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}
	if err := b.rdb.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event to %s: %w", event.Type, b.channel, err)
	}
	return nil
}

// Run delivers events received on the channel to the local hub until ctx is done.
// ready, when not nil, is closed once the subscription is live.
func (b *RedisBridge) Run(ctx context.Context, ready chan<- struct{}) error {
	pubsub := b.rdb.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	// Wait for confirmation that subscription is created before publishing anything.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to receive confirmation from Redis Pub/Sub subscription: %w", err)
	}
	if ready != nil {
		close(ready)
	}

	ch := pubsub.Channel()
	log.Println("Subscribed to Redis channel for realtime events:", b.channel)

	for {
		select {
		case <-ctx.Done():
			log.Println("Realtime Pub/Sub listener stopped.")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil || env.Event == nil {
				log.Printf("Dropping malformed realtime message on %s: %v", msg.Channel, err)
				continue
			}
			b.hub.Deliver(env.Event, env.Origin)
		}
	}
}
