package ledger

import (
	"bytes"
	"testing"
	"time"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/chainchat/syncd/internal/events"
)

func testAddr(tag byte) *address.Address {
	data := bytes.Repeat([]byte{tag}, 32)
	return address.NewAddress(0, 0, data)
}

func externalTx(t *testing.T, payload *cell.Cell) *tlb.Transaction {
	t.Helper()
	body := cell.BeginCell().
		MustStoreSlice(make([]byte, 64), 512).
		MustStoreRef(payload).
		EndCell()
	tx := &tlb.Transaction{}
	tx.IO.In = &tlb.Message{
		MsgType: tlb.MsgTypeExternalIn,
		Msg:     &tlb.ExternalMessage{Body: body},
	}
	return tx
}

func opEnvelope(op uint64, sender *address.Address) *cell.Builder {
	return cell.BeginCell().
		MustStoreUInt(op, 32).
		MustStoreAddr(sender).
		MustStoreUInt(uint64(time.Now().Add(time.Minute).Unix()), 64)
}

func TestParseExternalPayloadFriendOpCarriesTarget(t *testing.T) {
	sender := testAddr(0xaa)
	target := testAddr(0xbb)
	payload := opEnvelope(opSendRequest, sender).
		MustStoreAddr(target).
		MustStoreRef(cell.BeginCell().MustStoreStringSnake("hi").EndCell()).
		EndCell()

	p, ok := ParseExternalPayload(externalTx(t, payload))
	if !ok {
		t.Fatal("expected payload to parse")
	}
	if p.Op != opSendRequest {
		t.Errorf("op = %#x, want %#x", p.Op, uint64(opSendRequest))
	}
	if p.Sender != sender.String() {
		t.Errorf("sender = %s, want %s", p.Sender, sender.String())
	}
	if p.Target != target.String() {
		t.Errorf("target = %s, want %s", p.Target, target.String())
	}
	if p.Hash == "" {
		t.Error("payload hash missing")
	}

	affected := p.Affected()
	if len(affected) != 2 || affected[0] != sender.String() || affected[1] != target.String() {
		t.Errorf("affected = %v, want sender then target", affected)
	}
}

func TestParseExternalPayloadMemberOpCarriesTarget(t *testing.T) {
	sender := testAddr(0xaa)
	target := testAddr(0xcc)
	payload := opEnvelope(opAddMember, sender).
		MustStoreUInt(42, 64).
		MustStoreAddr(target).
		EndCell()

	p, ok := ParseExternalPayload(externalTx(t, payload))
	if !ok {
		t.Fatal("expected payload to parse")
	}
	if p.Target != target.String() {
		t.Errorf("target = %s, want %s", p.Target, target.String())
	}
}

func TestParseExternalPayloadSelfOps(t *testing.T) {
	sender := testAddr(0xaa)
	payload := opEnvelope(opClaimDaily, sender).EndCell()

	p, ok := ParseExternalPayload(externalTx(t, payload))
	if !ok {
		t.Fatal("expected payload to parse")
	}
	if p.Target != "" {
		t.Errorf("target = %q, want empty for a self op", p.Target)
	}
	if got := p.Affected(); len(got) != 1 || got[0] != sender.String() {
		t.Errorf("affected = %v, want just the sender", got)
	}
}

func TestParseExternalPayloadRejectsInternal(t *testing.T) {
	tx := &tlb.Transaction{}
	if _, ok := ParseExternalPayload(tx); ok {
		t.Error("transaction without in-message should not parse")
	}
}

func TestChangeKind(t *testing.T) {
	tests := []struct {
		op   uint64
		kind string
	}{
		{opSendRequest, events.EventFriendRequestSent},
		{opAcceptRequest, events.EventFriendRequestAccepted},
		{opAddMember, events.EventGroupMemberAdded},
		{opCreateGroup, events.EventGroupCreated},
		{opBurn, ""},
		{0xdeadbeef, ""},
	}
	for _, tt := range tests {
		if got := ChangeKind(tt.op); got != tt.kind {
			t.Errorf("ChangeKind(%#x) = %q, want %q", tt.op, got, tt.kind)
		}
	}
}
