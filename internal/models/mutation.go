package models

import "time"

// A submitted ledger write moves through pending -> confirmed/failed. The
// caches track one PendingMutation per submitted transaction so optimistic
// state can be rolled back when the write fails instead of silently waiting
// for the next full refresh.
const (
	MutationPending   = "pending"
	MutationConfirmed = "confirmed"
	MutationFailed    = "failed"
)

var ValidMutationTransitions = map[string][]string{
	MutationPending:   {MutationConfirmed, MutationFailed},
	MutationConfirmed: {},
	MutationFailed:    {},
}

func IsValidMutationTransition(from, to string) bool {
	for _, t := range ValidMutationTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

type PendingMutation struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"` // e.g. "friend_accept", "group_leave"
	TxHash      string    `json:"tx_hash,omitempty"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`

	// Revert undoes the optimistic local change if the write fails.
	Revert func() `json:"-"`
}
