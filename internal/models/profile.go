package models

import "time"

// Profile is the identity record for a wallet address. Registration is
// permanent on the ledger, so profiles are never hard-deleted; an address
// that has not registered yet is represented by an unregistered sentinel
// (empty username, IsRegistered=false).
type Profile struct {
	Address      string    `json:"address"`
	Username     string    `json:"username"`
	Bio          string    `json:"bio,omitempty"`
	AvatarRef    string    `json:"avatar_ref,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	RegisteredAt time.Time `json:"registered_at,omitempty"`
	IsRegistered bool      `json:"is_registered"`
}

// UnregisteredProfile returns the sentinel profile for an address with no
// ledger registration. Callers distinguish this from "not found".
func UnregisteredProfile(address string) *Profile {
	return &Profile{Address: address}
}
