package events

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Bridge multiplexes the ledger event stream to per-kind, per-address
// callbacks. One underlying bus subscription serves any number of bridge
// subscriptions; the address filter is case-insensitive, and an empty filter
// matches every address.
type Bridge struct {
	log *zap.Logger

	mu     sync.RWMutex
	nextID int
	subs   map[int]*bridgeSub
}

type bridgeSub struct {
	kind     string
	address  string // lowercase, "" matches all
	callback func(Event)
}

func NewBridge(ctx context.Context, subscriber Subscriber, log *zap.Logger) (*Bridge, error) {
	b := &Bridge{log: log, subs: make(map[int]*bridgeSub)}
	if err := subscriber.Subscribe(ctx, StreamLedger, b.dispatch); err != nil {
		return nil, err
	}
	return b, nil
}

// Subscribe registers a callback for one event kind, optionally filtered by
// affected address. The returned function removes the subscription; calling
// it more than once is harmless.
func (b *Bridge) Subscribe(kind, filterAddress string, callback func(Event)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = &bridgeSub{
		kind:     kind,
		address:  strings.ToLower(filterAddress),
		callback: callback,
	}
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *Bridge) dispatch(event Event) {
	eventAddr := strings.ToLower(event.Address)

	b.mu.RLock()
	var matched []func(Event)
	for _, sub := range b.subs {
		if sub.kind != event.Kind {
			continue
		}
		if sub.address != "" && sub.address != eventAddr {
			continue
		}
		matched = append(matched, sub.callback)
	}
	b.mu.RUnlock()

	for _, cb := range matched {
		cb(event)
	}
}
