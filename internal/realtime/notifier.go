// Package realtime fans session-change notifications out to live session-list queries.
package realtime

import (
	"context"
	"sync"
)

// Notifier delivers "sessions of this user changed" signals
type Notifier interface {
	Publish(ctx context.Context, userID string) error
	// Subscribe returns a coalescing signal channel and an idempotent cancel func
	Subscribe(userID string) (<-chan struct{}, func())
}

// Hub is the in-process Notifier. Signals coalesce: a slow subscriber sees at most one
// pending notification, which is all a re-query needs.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*subscriber]struct{}
}

type subscriber struct {
	ch   chan struct{}
	once sync.Once
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[*subscriber]struct{})}
}

func (h *Hub) Publish(_ context.Context, userID string) error {
	h.Notify(userID)
	return nil
}

// Notify signals every subscriber of userID without blocking
func (h *Hub) Notify(userID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers[userID] {
		select {
		case sub.ch <- struct{}{}:
		default:
		}
	}
}

func (h *Hub) Subscribe(userID string) (<-chan struct{}, func()) {
	sub := &subscriber{ch: make(chan struct{}, 1)}

	h.mu.Lock()
	if h.subscribers[userID] == nil {
		h.subscribers[userID] = make(map[*subscriber]struct{})
	}
	h.subscribers[userID][sub] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		sub.once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			delete(h.subscribers[userID], sub)
			if len(h.subscribers[userID]) == 0 {
				delete(h.subscribers, userID)
			}
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// SubscriberCount returns the number of live subscriptions for userID
func (h *Hub) SubscriberCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}
