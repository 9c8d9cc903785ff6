package syncer

import (
	"context"
	"sync"
)

// Signal is the slot-change notification exchanged between contexts. It only
// says "the slot changed"; receivers reload the authoritative state from the
// slot itself (last-writer-wins, no merging).
type Signal struct {
	Slot     string `json:"slot"`
	Origin   string `json:"origin"`
	Revision uint64 `json:"revision"`
}

type Broadcaster interface {
	Publish(ctx context.Context, sig Signal) error
	Subscribe(ctx context.Context, slot string) (<-chan Signal, error)
}

// MemoryBroadcaster connects contexts living in the same process (two views
// over one durable file). Signals to a slow receiver are dropped rather than
// blocking the writer; the receiver reloads full state on the next signal.
type MemoryBroadcaster struct {
	mu   sync.Mutex
	subs map[string][]chan Signal
}

func NewMemoryBroadcaster() *MemoryBroadcaster {
	return &MemoryBroadcaster{subs: make(map[string][]chan Signal)}
}

func (m *MemoryBroadcaster) Publish(_ context.Context, sig Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ch := range m.subs[sig.Slot] {
		select {
		case ch <- sig:
		default:
		}
	}
	return nil
}

func (m *MemoryBroadcaster) Subscribe(ctx context.Context, slot string) (<-chan Signal, error) {
	ch := make(chan Signal, 64)

	m.mu.Lock()
	m.subs[slot] = append(m.subs[slot], ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		chans := m.subs[slot]
		for i := range chans {
			if chans[i] == ch {
				m.subs[slot] = append(chans[:i], chans[i+1:]...)
				break
			}
		}
		close(ch)
	}()

	return ch, nil
}
