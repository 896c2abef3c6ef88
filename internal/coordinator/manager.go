package coordinator

import (
	"context"
	"sync"
	"time"

	"aiinfra/internal/cache"
	"aiinfra/internal/events"
)

// Factory builds the session of one user.
type Factory func(userID string) *Session

// Manager keeps the recently used sessions of a process, one per user.
type Manager struct {
	factory  Factory
	mu       sync.Mutex
	sessions *cache.LRUCache[*Session]
}

// NewManager creates a manager holding at most size sessions, each dropped
// after ttl.
func NewManager(factory Factory, size int, ttl time.Duration) *Manager {
	return &Manager{
		factory:  factory,
		sessions: cache.NewLRUCache[*Session](size, ttl),
	}
}

// Get returns the session of userID, creating it if needed.
func (m *Manager) Get(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions.Get(userID); ok {
		return s
	}
	s := m.factory(userID)
	m.sessions.Set(userID, s)
	return s
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	return m.sessions.Len()
}

// Run delivers bus events to the live session of the event's user until ctx
// is done or the bus closes. Users without a live session are skipped; their
// next session starts from storage anyway.
func (m *Manager) Run(ctx context.Context, bus events.Bus) error {
	ch, err := bus.Subscribe(ctx)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.sessions.CleanupExpired()
		case event, ok := <-ch:
			if !ok {
				return ctx.Err()
			}
			if s, found := m.sessions.Get(event.UserID); found {
				s.handleEventIfRelevant(ctx, event)
			}
		}
	}
}
