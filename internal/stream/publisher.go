package stream

import (
	"github.com/conduit-lang/cascade/internal/feed"
)

// Publisher forwards feed notifications to every viewer of a hub
type Publisher struct {
	hub *Hub
}

// NewPublisher creates a new Publisher
func NewPublisher(hub *Hub) *Publisher {
	return &Publisher{hub: hub}
}

// Publish queues n for broadcast. It has the feed.Handler signature and
// never blocks the tree.
func (p *Publisher) Publish(n feed.Notification) {
	p.hub.Broadcast(&Message{Type: TypeNotification, Payload: n})
}
