// Package syncer keeps every open view of the cart consistent: a typed
// publish/subscribe bus inside one context, and a slot-change broadcaster
// between contexts sharing the durable slot.
package syncer

import (
	"sync"

	"github.com/agrikart/storefront/internal/cartstore"
)

// Bus delivers cart changes to in-context observers (header badge, cart page,
// navigation). Delivery is synchronous and in mutation order; no coalescing,
// so no intermediate state is hidden from observers.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   []subscriber
}

type subscriber struct {
	id int
	fn func(cartstore.Change)
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers an observer and returns its cancel function.
func (b *Bus) Subscribe(fn func(cartstore.Change)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.subs {
			if b.subs[i].id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

func (b *Bus) Publish(change cartstore.Change) {
	b.mu.Lock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(change)
	}
}
