// Package events carries ledger activity notifications to in-process
// subscribers (currently the websocket feed). Events are published after
// the originating operation has committed.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hiddenpay/backend/pkg/address"
)

type Type string

const (
	MerchantCreated       Type = "merchant.created"
	MerchantVerified      Type = "merchant.verified"
	ProductCreated        Type = "product.created"
	SubscriptionCreated   Type = "subscription.created"
	SubscriptionCancelled Type = "subscription.cancelled"
)

// Event describes one committed ledger mutation.
type Event struct {
	ID      string          `json:"id"`
	Type    Type            `json:"type"`
	Address address.Address `json:"address"`
	At      time.Time       `json:"at"`
}

// Bus is a fan-out publisher. Slow subscribers drop events instead of
// blocking publishers.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber. The returned cancel func must be
// called when the subscriber goes away.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish fans an event out to all current subscribers.
func (b *Bus) Publish(typ Type, addr address.Address) {
	e := Event{
		ID:      uuid.New().String(),
		Type:    typ,
		Address: addr,
		At:      time.Now(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
