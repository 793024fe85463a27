package notify

import (
	"context"
	"sync"

	"cropCircle/internal/model"
)

const subscriberBuffer = 16

// Hub fans notifications out to in-process subscribers such as SSE streams.
// Slow subscribers miss notifications instead of blocking publishers.
type Hub struct {
	mu      sync.Mutex
	clients map[*Subscription]struct{}
}

// Subscription is one registered receiver.
type Subscription struct {
	ch      chan model.Notification
	eventID string
}

// C yields notifications until the subscription is cancelled.
func (s *Subscription) C() <-chan model.Notification {
	return s.ch
}

func NewHub() *Hub {
	return &Hub{clients: map[*Subscription]struct{}{}}
}

// Subscribe registers a receiver. A non-empty eventID filters by event.
func (h *Hub) Subscribe(eventID string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub := &Subscription{ch: make(chan model.Notification, subscriberBuffer), eventID: eventID}
	h.clients[sub] = struct{}{}
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[sub]; ok {
		delete(h.clients, sub)
		close(sub.ch)
	}
}

func (h *Hub) Publish(_ context.Context, n model.Notification) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.clients {
		if sub.eventID != "" && sub.eventID != n.EventID {
			continue
		}
		select {
		case sub.ch <- n:
		default:
		}
	}
	return nil
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
