package memory

import (
	"context"
	"sync"

	"quiz-battle-arena/internal/domain"
)

const subscriberBuffer = 16

// EventHub fans lifecycle events out to in-process subscribers.
type EventHub struct {
	mu          sync.Mutex
	subscribers map[chan domain.Event]string
}

func NewEventHub() *EventHub {
	return &EventHub{subscribers: make(map[chan domain.Event]string)}
}

// Subscribe returns a channel of events concerning userID, or every event when
// userID is empty. The caller must invoke cancel to avoid leaks.
func (h *EventHub) Subscribe(userID string) (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, subscriberBuffer)

	h.mu.Lock()
	h.subscribers[ch] = userID
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish never blocks: a full subscriber loses its oldest pending event.
func (h *EventHub) Publish(_ context.Context, event domain.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch, userID := range h.subscribers {
		if userID != "" && !concerns(event, userID) {
			continue
		}
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
	return nil
}

// Subscribers reports how many channels are attached.
func (h *EventHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func concerns(event domain.Event, userID string) bool {
	for _, id := range event.Participants() {
		if id == userID {
			return true
		}
	}
	return false
}
