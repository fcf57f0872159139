package events

import (
	"context"
	"sync"
)

// MemoryBus is an in-process Publisher+Subscriber. Used when no redis is
// configured and in tests; delivery is synchronous per handler goroutine.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]func(Event)
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[string][]func(Event))}
}

func (b *MemoryBus) Publish(ctx context.Context, stream string, event Event) error {
	b.mu.RLock()
	handlers := make([]func(Event), len(b.handlers[stream]))
	copy(handlers, b.handlers[stream])
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, stream string, handler func(Event)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[stream] = append(b.handlers[stream], handler)
	return nil
}
