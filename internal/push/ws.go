package push

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeTimeout       = 10 * time.Second
	reconnectBaseDelay = time.Second
)

// frame is the relay wire envelope.
type frame struct {
	Type    string   `json:"type"`
	Room    string   `json:"room,omitempty"`
	Message *Message `json:"message,omitempty"`
	Typing  *Typing  `json:"typing,omitempty"`
}

// WSChannel is a relay client over a single websocket connection. It
// reconnects with exponential backoff and re-joins all rooms after a
// reconnect, so callers never observe membership loss.
type WSChannel struct {
	url          string
	reconnectMax time.Duration
	log          *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	rooms  map[string]bool
	closed bool

	cbMu      sync.RWMutex
	onMessage []func(Message)
	onTyping  []func(Typing)
	onStatus  []func(string)
}

func NewWSChannel(ctx context.Context, url string, reconnectMax time.Duration, log *zap.Logger) (*WSChannel, error) {
	c := &WSChannel{
		url:          url,
		reconnectMax: reconnectMax,
		log:          log,
		rooms:        make(map[string]bool),
	}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	go c.readLoop(ctx)
	return c, nil
}

func (c *WSChannel) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial relay %s: %w", c.url, err)
	}

	c.mu.Lock()
	c.conn = conn
	rooms := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		rooms = append(rooms, r)
	}
	c.mu.Unlock()

	// Re-join rooms held before the reconnect.
	for _, room := range rooms {
		if err := c.writeFrame(frame{Type: frameJoin, Room: room}); err != nil {
			c.log.Warn("re-join after reconnect failed", zap.String("room", room), zap.Error(err))
		}
	}

	c.notifyStatus(StatusConnected)
	return nil
}

func (c *WSChannel) readLoop(ctx context.Context) {
	delay := reconnectBaseDelay

	for {
		c.mu.Lock()
		conn := c.conn
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			c.notifyStatus(StatusDisconnected)

			for {
				select {
				case <-ctx.Done():
					return
				case <-time.After(delay):
				}

				c.mu.Lock()
				closed := c.closed
				c.mu.Unlock()
				if closed {
					return
				}

				c.notifyStatus(StatusReconnecting)
				if err := c.connect(ctx); err == nil {
					delay = reconnectBaseDelay
					break
				}
				c.log.Warn("relay reconnect failed", zap.Duration("retry_in", delay))
				delay *= 2
				if delay > c.reconnectMax {
					delay = c.reconnectMax
				}
			}
			continue
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.log.Warn("malformed relay frame", zap.Error(err))
			continue
		}
		c.dispatch(f)
	}
}

func (c *WSChannel) dispatch(f frame) {
	switch f.Type {
	case frameMessage:
		if f.Message == nil {
			return
		}
		c.cbMu.RLock()
		cbs := c.onMessage
		c.cbMu.RUnlock()
		for _, cb := range cbs {
			cb(*f.Message)
		}
	case frameTyping:
		if f.Typing == nil {
			return
		}
		c.cbMu.RLock()
		cbs := c.onTyping
		c.cbMu.RUnlock()
		for _, cb := range cbs {
			cb(*f.Typing)
		}
	}
}

func (c *WSChannel) notifyStatus(status string) {
	c.cbMu.RLock()
	cbs := c.onStatus
	c.cbMu.RUnlock()
	for _, cb := range cbs {
		cb(status)
	}
}

func (c *WSChannel) writeFrame(f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.closed {
		return fmt.Errorf("relay connection is closed")
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *WSChannel) Join(ctx context.Context, room string) error {
	c.mu.Lock()
	c.rooms[room] = true
	c.mu.Unlock()
	return c.writeFrame(frame{Type: frameJoin, Room: room})
}

func (c *WSChannel) Leave(ctx context.Context, room string) error {
	c.mu.Lock()
	delete(c.rooms, room)
	c.mu.Unlock()
	return c.writeFrame(frame{Type: frameLeave, Room: room})
}

func (c *WSChannel) Send(ctx context.Context, room string, msg Message) error {
	msg.Room = room
	return c.writeFrame(frame{Type: frameMessage, Room: room, Message: &msg})
}

func (c *WSChannel) SendTyping(ctx context.Context, room string, typing Typing) error {
	typing.Room = room
	return c.writeFrame(frame{Type: frameTyping, Room: room, Typing: &typing})
}

func (c *WSChannel) OnMessage(cb func(Message)) {
	c.cbMu.Lock()
	c.onMessage = append(c.onMessage, cb)
	c.cbMu.Unlock()
}

func (c *WSChannel) OnTyping(cb func(Typing)) {
	c.cbMu.Lock()
	c.onTyping = append(c.onTyping, cb)
	c.cbMu.Unlock()
}

func (c *WSChannel) OnStatus(cb func(status string)) {
	c.cbMu.Lock()
	c.onStatus = append(c.onStatus, cb)
	c.cbMu.Unlock()
}

func (c *WSChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
