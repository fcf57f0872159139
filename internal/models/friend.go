package models

import "time"

// Friend request statuses. Identity of a request is the ordered (from, to)
// pair: at most one pending request may exist per pair, enforced locally
// before any write.
const (
	RequestStatusPending  = "pending"
	RequestStatusAccepted = "accepted"
	RequestStatusDeclined = "declined"
)

// MaxRequestMessageLen caps the free-text message attached to a friend request.
const MaxRequestMessageLen = 200

type FriendRequest struct {
	FromAddress string    `json:"from_address"`
	ToAddress   string    `json:"to_address"`
	Message     string    `json:"message,omitempty"`
	Status      string    `json:"status"`
	SentAt      time.Time `json:"sent_at"`
}

// ValidRequestTransitions lists the allowed request status moves.
// Accepted and declined are terminal; the request leaves the pending view.
var ValidRequestTransitions = map[string][]string{
	RequestStatusPending:  {RequestStatusAccepted, RequestStatusDeclined},
	RequestStatusAccepted: {},
	RequestStatusDeclined: {},
}

func IsValidRequestTransition(from, to string) bool {
	for _, t := range ValidRequestTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}
