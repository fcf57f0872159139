package dto

import "github.com/chainchat/syncd/internal/models"

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type AuthResponse struct {
	Token   string `json:"token"`
	Address string `json:"address"`
}

type PendingRequestsResponse struct {
	Incoming []models.FriendRequest `json:"incoming"`
	Outgoing []models.FriendRequest `json:"outgoing"`
}

type StatsResponse struct {
	Stats models.TokenStats `json:"stats"`
	// Decimal renderings of the nanotoken counters, for direct display.
	BalanceDisplay string                  `json:"balance_display"`
	PendingDisplay string                  `json:"pending_display"`
	Activity       []models.ActivityRecord `json:"activity"`
}
