package services

import (
	"context"
	"log"
)

// IEventPublisher pushes an event to every client subscribed to topic.
// Delivery is best effort: a failed publish never fails the write that caused it.
type IEventPublisher interface {
	Publish(ctx context.Context, topic, eventType string, payload interface{}) error
}

// NopPublisher discards events. It is used by workers that have no clients.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, interface{}) error { return nil }

func publish(ctx context.Context, p IEventPublisher, topic, eventType string, payload interface{}) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, topic, eventType, payload); err != nil {
		log.Printf("Failed to publish %s to %s: %v", eventType, topic, err)
	}
}
