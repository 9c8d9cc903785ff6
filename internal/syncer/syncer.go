package syncer

import (
	"context"
	"log"

	"github.com/agrikart/storefront/internal/cartstore"
)

// Syncer wires one context's store, bus and broadcaster together: local
// mutations go out on both, foreign signals trigger a reload from the durable
// slot followed by a local re-publish.
type Syncer struct {
	store *cartstore.Store
	bus   *Bus
	bc    Broadcaster
}

func New(store *cartstore.Store, bus *Bus, bc Broadcaster) *Syncer {
	s := &Syncer{store: store, bus: bus, bc: bc}
	store.OnChange(s.onLocalChange)
	return s
}

func (s *Syncer) onLocalChange(change cartstore.Change) {
	s.bus.Publish(change)

	// reloads originate from a foreign write; re-broadcasting them would echo
	// forever between contexts
	if change.Kind == cartstore.ChangeReloaded || s.bc == nil {
		return
	}

	sig := Signal{Slot: change.Slot, Origin: change.Origin, Revision: change.Revision}
	if err := s.bc.Publish(context.Background(), sig); err != nil {
		log.Printf("cart signal broadcast failed: %v", err)
	}
}

// Run listens for foreign slot changes until ctx is cancelled. Own signals
// are skipped; everything else reloads the store, which re-publishes locally.
func (s *Syncer) Run(ctx context.Context) error {
	ch, err := s.bc.Subscribe(ctx, s.store.Slot())
	if err != nil {
		return err
	}

	for {
		select {
		case sig, ok := <-ch:
			if !ok {
				return nil
			}
			if sig.Origin == s.store.Origin() {
				continue
			}
			if err := s.store.Reload(ctx); err != nil {
				log.Printf("cart reload after foreign write failed: %v", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
