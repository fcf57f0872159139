package ledger

import (
	"encoding/hex"
	"strings"

	"github.com/xssnick/tonutils-go/tlb"

	"github.com/chainchat/syncd/internal/events"
)

// ExternalPayload is the decoded op envelope of a signed contract write
// observed on chain: the op code, the wallet that signed it, and, for ops
// that act on another account, the peer or member the op targets.
type ExternalPayload struct {
	Op     uint64
	Sender string
	Target string // empty for ops without a counterparty
	Hash   string
}

// ParseExternalPayload decodes a transaction whose in-message follows the
// external-message envelope (signature, then a payload ref of op + sender +
// valid-until). Friend ops carry the peer address next; member ops carry the
// group id and then the member address.
func ParseExternalPayload(tx *tlb.Transaction) (*ExternalPayload, bool) {
	if tx.IO.In == nil {
		return nil, false
	}
	extMsg, isExt := tx.IO.In.Msg.(*tlb.ExternalMessage)
	if !isExt || extMsg == nil || extMsg.Body == nil {
		return nil, false
	}

	sl := extMsg.Body.BeginParse()
	if _, err := sl.LoadSlice(512); err != nil {
		return nil, false
	}
	payload, err := sl.LoadRefCell()
	if err != nil {
		return nil, false
	}

	ps := payload.BeginParse()
	op, err := ps.LoadUInt(32)
	if err != nil {
		return nil, false
	}
	sender, err := ps.LoadAddr()
	if err != nil {
		return nil, false
	}
	if _, err := ps.LoadUInt(64); err != nil { // valid-until
		return nil, false
	}

	p := &ExternalPayload{
		Op:     op,
		Sender: sender.String(),
		Hash:   hex.EncodeToString(payload.Hash()),
	}

	switch op {
	case opSendRequest, opAcceptRequest, opDeclineRequest, opRemoveFriend:
		target, err := ps.LoadAddr()
		if err != nil {
			return nil, false
		}
		p.Target = target.String()
	case opAddMember, opRemoveMember:
		if _, err := ps.LoadUInt(64); err != nil { // group id
			return nil, false
		}
		target, err := ps.LoadAddr()
		if err != nil {
			return nil, false
		}
		p.Target = target.String()
	}

	return p, true
}

// Affected lists every address whose cache the op touches: the sender, and
// the target when the op has one. Both sides of a friend or member op must
// see the notification, not just the wallet that signed it.
func (p *ExternalPayload) Affected() []string {
	if p.Target == "" || strings.EqualFold(p.Target, p.Sender) {
		return []string{p.Sender}
	}
	return []string{p.Sender, p.Target}
}

// ChangeKind maps a contract op code to the bus notification kind, or "" for
// ops that do not notify.
func ChangeKind(op uint64) string {
	switch op {
	case opRegister:
		return events.EventRegistration
	case opUpdateBio:
		return events.EventProfileUpdated
	case opUpdateAvatar:
		return events.EventAvatarUpdated
	case opSendRequest:
		return events.EventFriendRequestSent
	case opAcceptRequest:
		return events.EventFriendRequestAccepted
	case opDeclineRequest:
		return events.EventFriendRequestDeclined
	case opRemoveFriend:
		return events.EventFriendshipRemoved
	case opCreateGroup:
		return events.EventGroupCreated
	case opJoinGroup, opAddMember:
		return events.EventGroupMemberAdded
	case opClaimDaily:
		return events.EventTokenDailyClaimed
	case opClaimPending:
		return events.EventTokenRewarded
	default:
		return ""
	}
}
