package push

import "context"

// Connection statuses reported via OnStatus.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusReconnecting = "reconnecting"
)

// Wire frame kinds exchanged with the relay.
const (
	frameJoin    = "join"
	frameLeave   = "leave"
	frameMessage = "message"
	frameTyping  = "typing"
)

// Message is a chat payload delivered to a room. The relay is best-effort:
// in-order per room for a single sender, nothing stronger.
type Message struct {
	Room           string `json:"room"`
	MessageID      string `json:"message_id"`
	SenderAddress  string `json:"sender_address"`
	SenderUsername string `json:"sender_username,omitempty"`
	Kind           string `json:"kind"`
	Content        string `json:"content"`
	FileRef        string `json:"file_ref,omitempty"`
	FileName       string `json:"file_name,omitempty"`
	FileSize       int64  `json:"file_size,omitempty"`
	SentAt         int64  `json:"sent_at"`
}

// Typing is a typing-indicator notification for a room.
type Typing struct {
	Room     string `json:"room"`
	Username string `json:"username"`
	Active   bool   `json:"active"`
}

// Channel is the real-time push channel boundary. Implementations must allow
// Join/Leave/Send to be called from any goroutine; callbacks are invoked from
// the channel's own read loop.
type Channel interface {
	Join(ctx context.Context, room string) error
	Leave(ctx context.Context, room string) error
	Send(ctx context.Context, room string, msg Message) error
	SendTyping(ctx context.Context, room string, typing Typing) error

	OnMessage(cb func(Message))
	OnTyping(cb func(Typing))
	OnStatus(cb func(status string))

	Close() error
}
