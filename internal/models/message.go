package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MessageKindText   = "text"
	MessageKindImage  = "image"
	MessageKindFile   = "file"
	MessageKindSystem = "system"
)

// Delivery statuses. A locally created message starts as "sending" and moves
// to "sent" once handed to the relay; "delivered" and "read" come from the
// push channel, if the relay reports them at all.
const (
	DeliverySending   = "sending"
	DeliverySent      = "sent"
	DeliveryDelivered = "delivered"
	DeliveryRead      = "read"
	DeliveryFailed    = "failed"
)

// A relay echo can arrive before the local send call returns, so "sending"
// may jump straight to "delivered".
var ValidDeliveryTransitions = map[string][]string{
	DeliverySending:   {DeliverySent, DeliveryDelivered, DeliveryFailed},
	DeliverySent:      {DeliveryDelivered, DeliveryRead},
	DeliveryDelivered: {DeliveryRead},
	DeliveryRead:      {},
	DeliveryFailed:    {},
}

func IsValidDeliveryTransition(from, to string) bool {
	for _, t := range ValidDeliveryTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

type ChatMessage struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	SenderAddress  string          `json:"sender_address"`
	SenderUsername string          `json:"sender_username,omitempty"`
	Content        string          `json:"content"`
	Kind           string          `json:"kind"`
	DeliveryStatus string          `json:"delivery_status"`
	FileRef        string          `json:"file_ref,omitempty"`
	FileURL        string          `json:"file_url,omitempty"`
	FileName       string          `json:"file_name,omitempty"`
	FileSize       int64           `json:"file_size,omitempty"`
	Preview        *LinkPreview    `json:"preview,omitempty"`
	SentAt         time.Time       `json:"sent_at"`
}

// LinkPreview is scraped metadata for the first URL in a text message.
type LinkPreview struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// NewMessageID returns a unique local message id. Two messages created in the
// same instant must still get distinct ids; reconciliation uses message
// identity, never timeline position.
func NewMessageID() string {
	return uuid.NewString()
}
