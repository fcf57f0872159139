package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainchat/syncd/internal/models"
)

// Error codes returned by the ledger boundary. Callers classify failures by
// code, never by matching substrings of the underlying message.
type Code string

const (
	CodeNotFound          Code = "not_found"
	CodeRejected          Code = "rejected"
	CodeInsufficientFunds Code = "insufficient_funds"
	CodeUnavailable       Code = "unavailable"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ledger: %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("ledger: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(code Code, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

func IsNotFound(err error) bool {
	var le *Error
	return errors.As(err, &le) && le.Code == CodeNotFound
}

func IsUnavailable(err error) bool {
	var le *Error
	return errors.As(err, &le) && le.Code == CodeUnavailable
}

// TxHandle identifies a submitted ledger write. The write is only submitted,
// not confirmed; confirmation is resolved by the Confirmer or, as a fallback,
// assumed after a settle delay.
type TxHandle struct {
	Hash string
	LT   uint64
}

// GroupInfo is the ledger's record of one group.
type GroupInfo struct {
	ID          uint64
	Name        string
	Description string
	AvatarRef   string
	GroupType   string
	Members     []string
	Admins      []string
	Settings    models.GroupSettings
}

// IdentityLedger reads and mutates the identity/ENS contract.
type IdentityLedger interface {
	GetProfile(ctx context.Context, address string) (*models.Profile, error)
	ResolveUsername(ctx context.Context, username string) (string, error)
	ListRegistered(ctx context.Context, offset, limit int) ([]string, error)

	Register(ctx context.Context, username string) (TxHandle, error)
	UpdateBio(ctx context.Context, bio string) (TxHandle, error)
	UpdateAvatar(ctx context.Context, avatarRef string) (TxHandle, error)
}

// FriendLedger reads and mutates the friends contract. All lists are scoped
// to a viewer address.
type FriendLedger interface {
	ListFriends(ctx context.Context, address string) ([]string, error)
	ListIncomingRequests(ctx context.Context, address string) ([]models.FriendRequest, error)
	ListOutgoingRequests(ctx context.Context, address string) ([]models.FriendRequest, error)

	SendRequest(ctx context.Context, to, message string) (TxHandle, error)
	AcceptRequest(ctx context.Context, from string) (TxHandle, error)
	DeclineRequest(ctx context.Context, from string) (TxHandle, error)
	RemoveFriend(ctx context.Context, friend string) (TxHandle, error)
}

// GroupLedger reads and mutates the groups contract.
type GroupLedger interface {
	ListMemberships(ctx context.Context, address string) ([]uint64, error)
	GetGroup(ctx context.Context, id uint64) (*GroupInfo, error)
	ListPublic(ctx context.Context, offset, limit int) ([]*GroupInfo, error)
	Search(ctx context.Context, query string, limit int) ([]*GroupInfo, error)

	CreateGroup(ctx context.Context, name, description, groupType string, isPublic bool, members []string, feeNano int64) (TxHandle, error)
	JoinGroup(ctx context.Context, id uint64) (TxHandle, error)
	LeaveGroup(ctx context.Context, id uint64) (TxHandle, error)
	AddMember(ctx context.Context, id uint64, address string) (TxHandle, error)
	RemoveMember(ctx context.Context, id uint64, address string) (TxHandle, error)
	UpdateInfo(ctx context.Context, id uint64, name, description, avatarRef string) (TxHandle, error)
	UpdateSettings(ctx context.Context, id uint64, settings models.GroupSettings) (TxHandle, error)
}

// TokenLedger reads and mutates the token contract.
type TokenLedger interface {
	GetStats(ctx context.Context, address string) (*models.TokenStats, error)
	RewardAmount(ctx context.Context, activityKind string) (int64, error)

	ClaimDaily(ctx context.Context) (TxHandle, error)
	ClaimPending(ctx context.Context) (TxHandle, error)
	Burn(ctx context.Context, amountNano int64) (TxHandle, error)
}
