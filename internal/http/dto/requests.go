package dto

import (
	"github.com/chainchat/syncd/internal/auth"
	"github.com/chainchat/syncd/internal/models"
)

type WalletLoginRequest struct {
	Address   string     `json:"address"`
	Network   string     `json:"network"`
	PublicKey string     `json:"public_key"`
	Proof     auth.Proof `json:"proof"`
}

type RegisterRequest struct {
	Username string `json:"username"`
}

type UpdateBioRequest struct {
	Bio string `json:"bio"`
}

type UpdateAvatarRequest struct {
	AvatarRef string `json:"avatar_ref"`
}

type FriendRequestRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

type SetActiveRequest struct {
	ConversationID string `json:"conversation_id"`
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

type TypingRequest struct {
	Active bool `json:"active"`
}

type CreateGroupRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	GroupType   string   `json:"group_type"`
	Members     []string `json:"members"`
}

type AddMemberRequest struct {
	Address string `json:"address"`
}

type UpdateGroupInfoRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	AvatarRef   string `json:"avatar_ref"`
}

type UpdateGroupSettingsRequest struct {
	Settings models.GroupSettings `json:"settings"`
}

type BurnRequest struct {
	// Amount in whole tokens, e.g. "1.5".
	Amount string `json:"amount"`
}
