package events

import (
	"context"
	"sync"

	"aiinfra/internal/logging"
)

// MemoryBus implements Bus with in-process channels
type MemoryBus struct {
	mu          sync.RWMutex
	closed      bool
	nextID      int
	subscribers map[int]chan Event
	config      *Config
}

// NewMemoryBus creates a new in-memory bus
func NewMemoryBus(config *Config) *MemoryBus {
	if config == nil {
		config = DefaultConfig("memory")
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 64
	}

	return &MemoryBus{
		subscribers: make(map[int]chan Event),
		config:      config,
	}
}

// Publish delivers the event to every subscriber without blocking. A
// subscriber whose buffer is full misses the event.
func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for id, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			logging.Warningf("Event bus subscriber %d is full, dropping %s event %s", id, event.Topic, event.ID)
		}
	}
	return nil
}

// Subscribe registers a subscriber until ctx is done
func (b *MemoryBus) Subscribe(ctx context.Context) (<-chan Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.config.BufferSize)
	b.subscribers[id] = ch

	go func() {
		<-ctx.Done()
		b.unsubscribe(id)
	}()

	return ch, nil
}

func (b *MemoryBus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
}

// Close closes every subscriber channel
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
	return nil
}
