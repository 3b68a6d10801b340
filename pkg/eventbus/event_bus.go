// Package eventbus carries conversation and project events between chatflow components.
package eventbus

import (
	"context"

	"github.com/dukex/chatflow/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a pointer to the decoded event struct, e.g. *events.HandoffRequested.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, string, Event) error { return nil }

// Discard is a publisher that drops every event.
var Discard EventPublisher = discardPublisher{}
