// Package events fans booking events out to live subscribers.
package events

import (
	"sync"

	"lab-booking/internal/domain"
	"lab-booking/internal/observability"

	"github.com/rs/zerolog/log"
)

const defaultBuffer = 16

type Hub struct {
	mu     sync.Mutex
	subs   map[chan domain.BookingEvent]struct{}
	buffer int
}

func NewHub() *Hub {
	return &Hub{
		subs:   make(map[chan domain.BookingEvent]struct{}),
		buffer: defaultBuffer,
	}
}

// Subscribe registers a new listener. The returned cancel func removes it and
// closes the channel; later calls are no-ops.
func (h *Hub) Subscribe() (<-chan domain.BookingEvent, func()) {
	ch := make(chan domain.BookingEvent, h.buffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	observability.SetEventSubscribers(n)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			n := len(h.subs)
			close(ch)
			h.mu.Unlock()
			observability.SetEventSubscribers(n)
		})
	}
}

// Publish never blocks; a subscriber whose buffer is full misses the event.
func (h *Hub) Publish(ev domain.BookingEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			log.Warn().Str("type", ev.Type).Int64("booking_id", ev.BookingID).Msg("dropping event for slow subscriber")
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
