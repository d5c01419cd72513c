package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrBrokerClosed is returned by a broker after Close
var ErrBrokerClosed = errors.New("broker closed")

// MemoryBroker is an in-process broker for a single API instance
type MemoryBroker struct {
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// NewMemoryBroker creates an in-process broker
func NewMemoryBroker(logger *slog.Logger) *MemoryBroker {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryBroker{
		logger: logger,
		subs:   make(map[*Subscription]struct{}),
	}
}

// Publish delivers ev to every subscriber. A subscriber whose buffer is
// full misses the event; the others are not held up.
func (b *MemoryBroker) Publish(_ context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBrokerClosed
	}

	for sub := range b.subs {
		if !sub.offer(ev) {
			b.logger.Warn("subscriber lagging, event dropped", "type", ev.Type)
		}
	}
	return nil
}

// Subscribe registers a new subscriber
func (b *MemoryBroker) Subscribe(_ context.Context) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrokerClosed
	}

	var sub *Subscription
	sub = newSubscription(func() { b.remove(sub) })
	b.subs[sub] = struct{}{}
	return sub, nil
}

// Close releases every subscription
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*Subscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	return nil
}

func (b *MemoryBroker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.events)
	}
}
