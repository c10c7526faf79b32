package idempotency

import (
	"context"
	"sync"
	"time"

	bitpay "github.com/bitpay/bitpay-go"
)

// InMemoryStore is a bitpay.NotificationStore for single-instance
// receivers. Handled keys expire after the TTL; expired entries are
// removed lazily.
type InMemoryStore struct {
	mu       sync.Mutex
	expiry   map[string]time.Time
	inFlight map[string]chan struct{}
	ttl      time.Duration
	now      func() time.Time
}

// NewInMemoryStore creates a store remembering handled keys for ttl
func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	return &InMemoryStore{
		expiry:   make(map[string]time.Time),
		inFlight: make(map[string]chan struct{}),
		ttl:      ttl,
		now:      time.Now,
	}
}

// CheckAndMark atomically checks the store and marks key in-flight if it
// has not been handled.
func (s *InMemoryStore) CheckAndMark(key string) (bitpay.DeliveryStatus, chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expiry, exists := s.expiry[key]; exists {
		if s.now().Before(expiry) {
			return bitpay.DeliveryHandled, nil
		}
		delete(s.expiry, key)
	}

	if done, exists := s.inFlight[key]; exists {
		return bitpay.DeliveryInFlight, done
	}

	done := make(chan struct{})
	s.inFlight[key] = done
	return bitpay.DeliveryNew, done
}

// WaitForResult waits for the in-flight delivery of key to finish
func (s *InMemoryStore) WaitForResult(ctx context.Context, key string, done chan struct{}) (bool, error) {
	select {
	case <-done:
		return s.handled(key), nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (s *InMemoryStore) handled(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, exists := s.expiry[key]
	if !exists {
		return false
	}
	if s.now().After(expiry) {
		delete(s.expiry, key)
		return false
	}
	return true
}

// Complete records key as handled and signals waiters
func (s *InMemoryStore) Complete(key string, done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expiry[key] = s.now().Add(s.ttl)
	delete(s.inFlight, key)
	close(done)

	s.cleanupExpiredLocked()
}

// Fail removes the in-flight marker without recording the key
func (s *InMemoryStore) Fail(key string, done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, key)
	close(done)
}

// Len returns the number of remembered keys, expired ones included until
// the next cleanup
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expiry)
}

// cleanupExpiredLocked must be called with the lock held
func (s *InMemoryStore) cleanupExpiredLocked() {
	now := s.now()
	for key, expiry := range s.expiry {
		if now.After(expiry) {
			delete(s.expiry, key)
		}
	}
}

var _ bitpay.NotificationStore = (*InMemoryStore)(nil)
