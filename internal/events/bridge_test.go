package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestBridge(t *testing.T) (*Bridge, *MemoryBus) {
	t.Helper()
	bus := NewMemoryBus()
	bridge, err := NewBridge(context.Background(), bus, zap.NewNop())
	require.NoError(t, err)
	return bridge, bus
}

func TestBridgeFiltersByKindAndAddress(t *testing.T) {
	bridge, bus := newTestBridge(t)

	var got []Event
	bridge.Subscribe(EventFriendRequestSent, "0xAbC", func(e Event) {
		got = append(got, e)
	})

	ctx := context.Background()
	_ = bus.Publish(ctx, StreamLedger, Event{Kind: EventFriendRequestSent, Address: "0xabc"})
	_ = bus.Publish(ctx, StreamLedger, Event{Kind: EventFriendRequestSent, Address: "0xother"})
	_ = bus.Publish(ctx, StreamLedger, Event{Kind: EventFriendshipRemoved, Address: "0xabc"})

	require.Len(t, got, 1)
	require.Equal(t, EventFriendRequestSent, got[0].Kind)
}

func TestBridgeEmptyFilterMatchesAll(t *testing.T) {
	bridge, bus := newTestBridge(t)

	count := 0
	bridge.Subscribe(EventGroupCreated, "", func(Event) { count++ })

	ctx := context.Background()
	_ = bus.Publish(ctx, StreamLedger, Event{Kind: EventGroupCreated, Address: "0xa"})
	_ = bus.Publish(ctx, StreamLedger, Event{Kind: EventGroupCreated, Address: "0xb"})

	require.Equal(t, 2, count)
}

func TestBridgeUnsubscribe(t *testing.T) {
	bridge, bus := newTestBridge(t)

	count := 0
	unsub := bridge.Subscribe(EventTokenRewarded, "", func(Event) { count++ })

	ctx := context.Background()
	_ = bus.Publish(ctx, StreamLedger, Event{Kind: EventTokenRewarded})
	unsub()
	unsub() // second call is a no-op
	_ = bus.Publish(ctx, StreamLedger, Event{Kind: EventTokenRewarded})

	require.Equal(t, 1, count)
}
