package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"aiinfra/internal/logging"
)

// RedisBus implements Bus using Redis pub/sub
type RedisBus struct {
	client  *redis.Client
	channel string
	buffer  int

	mu      sync.Mutex
	closed  bool
	pubsubs map[*redis.PubSub]struct{}
}

// NewRedisBus creates a new Redis-backed bus
func NewRedisBus(config *Config) (*RedisBus, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.Channel == "" {
		return nil, fmt.Errorf("channel is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.RedisAddr,
		Password:     config.RedisPassword,
		DB:           config.RedisDB,
		PoolSize:     config.PoolSize,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	buffer := config.BufferSize
	if buffer <= 0 {
		buffer = 64
	}

	return &RedisBus{
		client:  client,
		channel: config.Channel,
		buffer:  buffer,
		pubsubs: make(map[*redis.PubSub]struct{}),
	}, nil
}

func (b *RedisBus) track(pubsub *redis.PubSub) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.pubsubs[pubsub] = struct{}{}
	return true
}

func (b *RedisBus) untrack(pubsub *redis.PubSub) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pubsubs, pubsub)
}

func (b *RedisBus) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Publish sends the event on the Redis channel
func (b *RedisBus) Publish(ctx context.Context, event Event) error {
	if b.isClosed() {
		return ErrBusClosed
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis: %w", err)
	}
	return nil
}

// Subscribe returns once the subscription is confirmed by Redis, so events
// published after it returns are delivered.
func (b *RedisBus) Subscribe(ctx context.Context) (<-chan Event, error) {
	if b.isClosed() {
		return nil, ErrBusClosed
	}

	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to Redis: %w", err)
	}

	if !b.track(pubsub) {
		_ = pubsub.Close()
		return nil, ErrBusClosed
	}

	out := make(chan Event, b.buffer)
	go func() {
		defer close(out)
		defer func() {
			b.untrack(pubsub)
			_ = pubsub.Close()
		}()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}

				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logging.Warningf("Skipping malformed event on %s: %v", b.channel, err)
					continue
				}

				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close ends every open subscription and shuts down the Redis client
func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	pubsubs := make([]*redis.PubSub, 0, len(b.pubsubs))
	for ps := range b.pubsubs {
		pubsubs = append(pubsubs, ps)
	}
	b.mu.Unlock()

	for _, ps := range pubsubs {
		_ = ps.Close()
	}
	return b.client.Close()
}
