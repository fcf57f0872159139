package models

import "time"

// Activity kinds that earn token rewards.
const (
	ActivityMessageSent   = "message_sent"
	ActivityFriendAdded   = "friend_added"
	ActivityGroupCreated  = "group_created"
	ActivityGroupJoined   = "group_joined"
	ActivityDailyLogin    = "daily_login"
	ActivityProfileUpdate = "profile_update"
)

// TokenStats is a pure projection of the token ledger. Amounts are in
// nanotokens. The only local mutation is an optimistic adjustment right
// after a claim/burn submission, corrected on the next refresh.
type TokenStats struct {
	Balance            int64         `json:"balance"`
	PendingRewards     int64         `json:"pending_rewards"`
	TotalEarned        int64         `json:"total_earned"`
	CanClaimDaily      bool          `json:"can_claim_daily"`
	LastClaimTime      time.Time     `json:"last_claim_time,omitempty"`
	TimeUntilNextClaim time.Duration `json:"time_until_next_claim"`
	RewardMultiplier   int           `json:"reward_multiplier"`
}

// ActivityRecord is a locally synthesized feed entry for a reward-earning
// action, shown immediately while the ledger catches up.
type ActivityRecord struct {
	Kind      string    `json:"kind"`
	Amount    int64     `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}
