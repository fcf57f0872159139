package models

import "errors"

// Precondition failures. Checked before any ledger write is issued, so a
// failed check never consumes a transaction. Callers match with errors.Is.
var (
	ErrSelfRequest         = errors.New("cannot send a friend request to yourself")
	ErrAlreadyFriends      = errors.New("already friends")
	ErrDuplicateRequest    = errors.New("friend request already pending")
	ErrMessageTooLong      = errors.New("request message exceeds maximum length")
	ErrNotFound            = errors.New("not found")
	ErrNotAdmin            = errors.New("not a group admin")
	ErrAlreadyMember       = errors.New("already a group member")
	ErrNotMember           = errors.New("not a group member")
	ErrGroupFull           = errors.New("group member limit reached")
	ErrInsufficientBalance = errors.New("insufficient token balance")
	ErrAlreadyClaimedToday = errors.New("daily reward already claimed")
)

// Chat session failures.
var (
	ErrNoActiveConversation = errors.New("no active conversation")
	ErrProfileNotLoaded     = errors.New("own profile not resolved yet")
	ErrFileTooLarge         = errors.New("file exceeds maximum upload size")
	ErrUnsupportedFileType  = errors.New("unsupported file type")
)
