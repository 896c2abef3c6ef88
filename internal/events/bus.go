// Package events carries refresh signals between the processes serving one
// user: after a write, interested sessions refetch the affected lists.
//
// Two backends are available:
//
//  1. Memory bus: in-process fan-out, for single-node and development setups.
//  2. Redis bus: Redis pub/sub, so every replica sees every signal.
//
// Delivery is best effort. A missed signal only delays a refresh until the
// next one.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Topic names the list a signal refers to.
type Topic string

const (
	TopicProviders Topic = "providers"
	TopicModels    Topic = "models"
)

// Event is one refresh signal.
type Event struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	Topic      Topic  `json:"topic"`
	ProviderID string `json:"providerId,omitempty"`
	// Origin identifies the publisher so it can ignore its own signals.
	Origin string    `json:"origin,omitempty"`
	At     time.Time `json:"at"`
}

// NewEvent builds a signal for userID.
func NewEvent(userID string, topic Topic, providerID string) Event {
	return Event{
		ID:         uuid.NewString(),
		UserID:     userID,
		Topic:      topic,
		ProviderID: providerID,
		At:         time.Now().UTC(),
	}
}

// Bus publishes and delivers refresh signals.
type Bus interface {
	// Publish sends an event to every current subscriber
	Publish(ctx context.Context, event Event) error

	// Subscribe returns a channel of events. The channel is closed when ctx
	// is cancelled or the bus is closed.
	Subscribe(ctx context.Context) (<-chan Event, error)

	// Close shuts down the bus
	Close() error
}

// Config holds bus configuration
type Config struct {
	// UseRedis indicates whether to use Redis or the in-memory bus
	UseRedis bool

	// RedisAddr is the Redis server address (if UseRedis is true)
	RedisAddr string

	// RedisPassword is the Redis password (if UseRedis is true)
	RedisPassword string

	// RedisDB is the Redis database number (if UseRedis is true)
	RedisDB int

	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Channel is the pub/sub channel name
	Channel string

	// BufferSize is the per-subscriber buffer; events beyond it are dropped
	BufferSize int
}

// DefaultConfig returns default bus configuration
func DefaultConfig(channel string) *Config {
	return &Config{
		UseRedis:     false,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		Channel:      channel,
		BufferSize:   64,
	}
}

// New creates the bus selected by config.
func New(config *Config) (Bus, error) {
	if config != nil && config.UseRedis {
		return NewRedisBus(config)
	}
	return NewMemoryBus(config), nil
}
