package idempotency

import (
	"time"

	bitpay "github.com/bitpay/bitpay-go"
)

// DefaultTTL is how long the default store remembers a delivery
const DefaultTTL = 24 * time.Hour

// config holds the configuration for Wrap.
type config struct {
	ttl          time.Duration
	store        bitpay.NotificationStore
	keyGenerator KeyGenerator
}

// Option configures Wrap.
type Option func(*config)

// WithTTL sets how long handled deliveries are remembered.
//
// Only applies to the default InMemoryStore.
//
// Default: 24 hours
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.ttl = ttl
	}
}

// WithStore sets a custom bitpay.NotificationStore, e.g. one backed by
// the order database. WithTTL is ignored when it is given.
func WithStore(store bitpay.NotificationStore) Option {
	return func(c *config) {
		c.store = store
	}
}

// WithKeyGenerator sets a custom key function.
//
// Default: DefaultKeyGenerator
func WithKeyGenerator(gen KeyGenerator) Option {
	return func(c *config) {
		c.keyGenerator = gen
	}
}

// Wrap creates a receiver that hands each delivery to handler at most once.
func Wrap(client *bitpay.Client, handler bitpay.NotificationFunc, opts ...Option) *bitpay.Receiver {
	cfg := &config{
		ttl:          DefaultTTL,
		keyGenerator: DefaultKeyGenerator,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	store := cfg.store
	if store == nil {
		store = NewInMemoryStore(cfg.ttl)
	}

	return bitpay.NewReceiver(client, handler,
		bitpay.WithStore(store),
		bitpay.WithKeyFunc(cfg.keyGenerator),
	)
}
