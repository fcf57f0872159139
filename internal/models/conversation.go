package models

import (
	"fmt"
	"strings"
)

const (
	ConversationPrivate = "private"
	ConversationGroup   = "group"
)

const (
	GroupTypePublic  = "public"
	GroupTypePrivate = "private"
)

type GroupSettings struct {
	IsPublic        bool `json:"is_public"`
	RequireApproval bool `json:"require_approval"`
	AllowInvites    bool `json:"allow_invites"`
	MaxMembers      int  `json:"max_members"`
}

// Conversation is a chat session: private (derived from a friendship, no
// ledger record of its own) or group (derived from ledger membership).
type Conversation struct {
	ID           string       `json:"id"`
	Kind         string       `json:"kind"`
	Participants []*Profile   `json:"participants"`
	LastMessage  *ChatMessage `json:"last_message,omitempty"`
	UnreadCount  int          `json:"unread_count"`

	// Group-only fields.
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	AvatarRef   string          `json:"avatar_ref,omitempty"`
	AvatarURL   string          `json:"avatar_url,omitempty"`
	Admins      map[string]bool `json:"admins,omitempty"`
	Settings    *GroupSettings  `json:"settings,omitempty"`
}

func (c *Conversation) IsAdmin(address string) bool {
	return c.Admins[strings.ToLower(address)]
}

func (c *Conversation) HasParticipant(address string) bool {
	address = strings.ToLower(address)
	for _, p := range c.Participants {
		if strings.ToLower(p.Address) == address {
			return true
		}
	}
	return false
}

// PrivateConversationID derives the id of a two-party conversation from the
// participant addresses. Order-independent, so both peers derive the same id
// without coordination.
func PrivateConversationID(a, b string) string {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("dm:%s:%s", a, b)
}

// GroupConversationID maps a ledger group id to a conversation id.
func GroupConversationID(groupID uint64) string {
	return fmt.Sprintf("group:%d", groupID)
}
