package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// RedisBroadcaster connects contexts running in separate processes through
// redis pub/sub, one channel per slot.
type RedisBroadcaster struct {
	client *redis.Client
}

func NewRedisBroadcaster(client *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{client: client}
}

func channelFor(slot string) string {
	return fmt.Sprintf("cartsync:%s", slot)
}

func (r *RedisBroadcaster) Publish(ctx context.Context, sig Signal) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal failed: %w", err)
	}

	if err := r.client.Publish(ctx, channelFor(sig.Slot), payload).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

func (r *RedisBroadcaster) Subscribe(ctx context.Context, slot string) (<-chan Signal, error) {
	ps := r.client.Subscribe(ctx, channelFor(slot))
	if _, err := ps.Receive(ctx); err != nil {
		return nil, fmt.Errorf("redis subscribe failed: %w", err)
	}

	out := make(chan Signal, 64)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var sig Signal
				if err := json.Unmarshal([]byte(msg.Payload), &sig); err != nil {
					log.Printf("dropping malformed cart signal: %v", err)
					continue
				}
				select {
				case out <- sig:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
