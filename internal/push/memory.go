package push

import (
	"context"
	"sync"
)

// MemoryChannel is an in-process loopback relay for tests and offline runs.
// Sends are echoed back to local callbacks only for rooms that were joined,
// mirroring how the relay scopes delivery.
type MemoryChannel struct {
	mu    sync.RWMutex
	rooms map[string]bool

	onMessage []func(Message)
	onTyping  []func(Typing)
	onStatus  []func(string)

	// Joined and Sent record calls for assertions.
	Joined []string
	Left   []string
	Sent   []Message
}

func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{rooms: make(map[string]bool)}
}

func (c *MemoryChannel) Join(ctx context.Context, room string) error {
	c.mu.Lock()
	c.rooms[room] = true
	c.Joined = append(c.Joined, room)
	c.mu.Unlock()
	return nil
}

func (c *MemoryChannel) Leave(ctx context.Context, room string) error {
	c.mu.Lock()
	delete(c.rooms, room)
	c.Left = append(c.Left, room)
	c.mu.Unlock()
	return nil
}

func (c *MemoryChannel) Send(ctx context.Context, room string, msg Message) error {
	msg.Room = room
	c.mu.Lock()
	c.Sent = append(c.Sent, msg)
	c.mu.Unlock()
	return nil
}

func (c *MemoryChannel) SendTyping(ctx context.Context, room string, typing Typing) error {
	typing.Room = room
	return nil
}

// Deliver simulates the relay pushing a message to this client.
func (c *MemoryChannel) Deliver(msg Message) {
	c.mu.RLock()
	joined := c.rooms[msg.Room]
	cbs := c.onMessage
	c.mu.RUnlock()
	if !joined {
		return
	}
	for _, cb := range cbs {
		cb(msg)
	}
}

// DeliverTyping simulates a typing notification from the relay.
func (c *MemoryChannel) DeliverTyping(typing Typing) {
	c.mu.RLock()
	joined := c.rooms[typing.Room]
	cbs := c.onTyping
	c.mu.RUnlock()
	if !joined {
		return
	}
	for _, cb := range cbs {
		cb(typing)
	}
}

// SetStatus simulates a connection status change.
func (c *MemoryChannel) SetStatus(status string) {
	c.mu.RLock()
	cbs := c.onStatus
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(status)
	}
}

func (c *MemoryChannel) OnMessage(cb func(Message)) {
	c.mu.Lock()
	c.onMessage = append(c.onMessage, cb)
	c.mu.Unlock()
}

func (c *MemoryChannel) OnTyping(cb func(Typing)) {
	c.mu.Lock()
	c.onTyping = append(c.onTyping, cb)
	c.mu.Unlock()
}

func (c *MemoryChannel) OnStatus(cb func(string)) {
	c.mu.Lock()
	c.onStatus = append(c.onStatus, cb)
	c.mu.Unlock()
}

func (c *MemoryChannel) Close() error { return nil }
