package events

import "context"

// Ledger change-notification kinds. Delivery is at-least-once and unordered
// across kinds; consumers refresh from the ledger rather than applying event
// payloads as state.
const (
	EventRegistration          = "registration"
	EventProfileUpdated        = "profile_updated"
	EventAvatarUpdated         = "avatar_updated"
	EventFriendRequestSent     = "friend_request_sent"
	EventFriendRequestAccepted = "friend_request_accepted"
	EventFriendRequestDeclined = "friend_request_declined"
	EventFriendshipRemoved     = "friendship_removed"
	EventGroupCreated          = "group_created"
	EventGroupMemberAdded      = "group_member_added"
	EventTokenRewarded         = "token_rewarded"
	EventTokenDailyClaimed     = "token_daily_claimed"
	EventTxConfirmed           = "tx_confirmed"
	EventTxFailed              = "tx_failed"
)

// StreamLedger is the bus stream carrying all ledger change notifications.
const StreamLedger = "events:ledger"

type Event struct {
	Kind    string         `json:"kind"`
	Address string         `json:"address,omitempty"` // affected wallet address
	Payload map[string]any `json:"payload,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
