// Package events fans catalog and sale notifications out to live listeners.
// Delivery is best effort and always happens after the database commit.
package events

import (
	"context"
	"time"
)

// Topics
const (
	TopicSaleCommitted   = "sale.committed"
	TopicStockUpdated    = "stock.updated"
	TopicProductCreated  = "product.created"
	TopicProductUpdated  = "product.updated"
	TopicProductDeleted  = "product.deleted"
	TopicImportCompleted = "product.imported"
	TopicUserStatus      = "user.status"
)

// Actor is whoever triggered the event.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type Event struct {
	Type       string    `json:"type"`
	Action     string    `json:"action"`
	Data       any       `json:"data"`
	Actor      *Actor    `json:"user,omitempty"`
	Message    string    `json:"message,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, topic string, evt Event)
}

// Multi publishes to every publisher in order.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, topic string, evt Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(ctx, topic, evt)
		}
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, string, Event) {}
