// Package cartstore owns the authoritative cart state. All mutation goes
// through the Store; every mutation is written to the durable BoltDB slot
// before any observer is notified, so a crash between the two can lose a
// notification but never durable state.
package cartstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	bolt "github.com/boltdb/bolt"
	"golang.org/x/sync/singleflight"

	"github.com/agrikart/storefront/domain"
)

const bucketName = "carts"

type ChangeKind string

const (
	ChangeAdded    ChangeKind = "ADDED"
	ChangeQuantity ChangeKind = "QUANTITY"
	ChangeRemoved  ChangeKind = "REMOVED"
	ChangeCleared  ChangeKind = "CLEARED"
	ChangeReloaded ChangeKind = "RELOADED"
)

// Change describes one committed mutation. Revision increases monotonically
// per context; Origin identifies the context that performed the write.
type Change struct {
	Kind      ChangeKind
	ProductID int64
	Slot      string
	Origin    string
	Revision  uint64
}

// envelope is the serialized form stored in the slot.
type envelope struct {
	Revision uint64            `json:"revision"`
	Items    []domain.CartItem `json:"items"`
}

// Store holds one cart backed by one durable slot. Mutations are expected to
// arrive from a single event loop per context; the mutex only guards against
// the synchronizer's reload goroutine.
type Store struct {
	db     *bolt.DB
	slot   string
	origin string

	mu       sync.Mutex
	cart     domain.Cart
	revision uint64

	notify func(Change)
	sfg    singleflight.Group
}

// Open binds a store to the given slot, creating the bucket if needed and
// loading any previously persisted cart.
func Open(db *bolt.DB, slot, origin string) (*Store, error) {
	s := &Store{db: db, slot: slot, origin: origin}

	err := db.Update(func(tx *bolt.Tx) error {
		b, e := tx.CreateBucketIfNotExists([]byte(bucketName))
		if e != nil {
			return e
		}
		data := b.Get([]byte(slot))
		if data == nil {
			return nil // first access, cart starts empty
		}
		var env envelope
		if e := json.Unmarshal(data, &env); e != nil {
			return fmt.Errorf("corrupt cart slot %q: %w", slot, e)
		}
		s.cart = domain.Cart{Items: env.Items}
		s.revision = env.Revision
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open cart slot: %w", err)
	}
	return s, nil
}

// OnChange registers the single change observer (the synchronizer). Must be
// set before the store is mutated.
func (s *Store) OnChange(fn func(Change)) {
	s.notify = fn
}

func (s *Store) Slot() string   { return s.slot }
func (s *Store) Origin() string { return s.origin }

func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Snapshot returns a deep copy for consumers; mutation of the copy never
// reaches the store.
func (s *Store) Snapshot() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// Add inserts the item or, if the product is already present, increments its
// quantity by the item's quantity (minimum 1). Duplicate lines for one
// product are never created.
func (s *Store) Add(item domain.CartItem) error {
	delta := item.Quantity
	if delta < 1 {
		delta = 1
	}

	return s.apply(ChangeAdded, item.ProductID, func(cart *domain.Cart) {
		if i := cart.Find(item.ProductID); i >= 0 {
			cart.Items[i].Quantity += delta
			return
		}
		item.Quantity = delta
		cart.Items = append(cart.Items, item)
	})
}

// SetQuantity sets the line quantity; qty <= 0 removes the line rather than
// keeping it at zero.
func (s *Store) SetQuantity(productID int64, qty int) error {
	if qty <= 0 {
		return s.Remove(productID)
	}

	return s.apply(ChangeQuantity, productID, func(cart *domain.Cart) {
		if i := cart.Find(productID); i >= 0 {
			cart.Items[i].Quantity = qty
		}
	})
}

// Remove deletes the line. Removing an absent product is a no-op, not an
// error.
func (s *Store) Remove(productID int64) error {
	return s.apply(ChangeRemoved, productID, func(cart *domain.Cart) {
		if i := cart.Find(productID); i >= 0 {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
		}
	})
}

// Clear empties the cart and erases the durable slot.
func (s *Store) Clear() error {
	s.mu.Lock()
	next := s.revision + 1

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(s.slot))
	})
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to erase cart slot: %w", err)
	}

	s.cart = domain.Cart{}
	s.revision = next
	change := Change{Kind: ChangeCleared, Slot: s.slot, Origin: s.origin, Revision: next}
	s.mu.Unlock()

	s.emit(change)
	return nil
}

// Reload replaces in-memory state from the durable slot. Used by the
// synchronizer when another context wrote the slot; concurrent reloads for
// the same slot collapse into one read.
func (s *Store) Reload(ctx context.Context) error {
	_, err, _ := s.sfg.Do(s.slot, func() (interface{}, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var env envelope
		found := false
		err := s.db.View(func(tx *bolt.Tx) error {
			b := tx.Bucket([]byte(bucketName))
			if b == nil {
				return nil
			}
			data := b.Get([]byte(s.slot))
			if data == nil {
				return nil
			}
			found = true
			return json.Unmarshal(data, &env)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to reload cart slot: %w", err)
		}

		s.mu.Lock()
		if found {
			s.cart = domain.Cart{Items: env.Items}
			s.revision = env.Revision
		} else {
			s.cart = domain.Cart{}
		}
		change := Change{Kind: ChangeReloaded, Slot: s.slot, Origin: s.origin, Revision: s.revision}
		s.mu.Unlock()

		s.emit(change)
		return nil, nil
	})
	return err
}

// apply runs one mutation: copy, mutate, persist, commit, notify — in that
// order, so durable state is never behind in-memory state.
func (s *Store) apply(kind ChangeKind, productID int64, mutate func(*domain.Cart)) error {
	s.mu.Lock()

	next := s.cart.Clone()
	mutate(&next)
	rev := s.revision + 1

	data, err := json.Marshal(envelope{Revision: rev, Items: next.Items})
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to marshal cart: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(s.slot), data)
	})
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to persist cart: %w", err)
	}

	s.cart = next
	s.revision = rev
	change := Change{Kind: kind, ProductID: productID, Slot: s.slot, Origin: s.origin, Revision: rev}
	s.mu.Unlock()

	s.emit(change)
	return nil
}

func (s *Store) emit(change Change) {
	if s.notify != nil {
		s.notify(change)
	}
}
