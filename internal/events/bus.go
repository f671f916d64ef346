// Package events delivers payment updates to in-process subscribers waiting on an order.
package events

import (
	"sync"

	"checkout-engine/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const subscriberBuffer = 8

// Bus is an in-memory publish/subscribe hub keyed by order ID.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[uuid.UUID]map[int]chan model.PaymentEvent
	logger zerolog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		subs:   make(map[uuid.UUID]map[int]chan model.PaymentEvent),
		logger: logger.With().Str("component", "event-bus").Logger(),
	}
}

// Subscribe registers interest in one order. The returned cancel func closes
// the channel and is safe to call more than once.
func (b *Bus) Subscribe(orderID uuid.UUID) (<-chan model.PaymentEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	ch := make(chan model.PaymentEvent, subscriberBuffer)
	if b.subs[orderID] == nil {
		b.subs[orderID] = make(map[int]chan model.PaymentEvent)
	}
	b.subs[orderID][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if set, ok := b.subs[orderID]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(b.subs, orderID)
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers evt to every subscriber of its order. Slow subscribers
// whose buffer is full miss the event; they recover on their next status check.
func (b *Bus) Publish(evt model.PaymentEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs[evt.OrderID] {
		select {
		case ch <- evt:
		default:
			b.logger.Warn().Str("order_id", evt.OrderID.String()).Msg("dropping payment event for slow subscriber")
		}
	}
}

// Subscribers reports how many listeners an order has.
func (b *Bus) Subscribers(orderID uuid.UUID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[orderID])
}
