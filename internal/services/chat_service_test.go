package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chainchat/syncd/internal/events"
	"github.com/chainchat/syncd/internal/ledger"
	"github.com/chainchat/syncd/internal/mocks"
	"github.com/chainchat/syncd/internal/models"
	"github.com/chainchat/syncd/internal/push"
)

type chatFixture struct {
	svc     *ChatService
	groups  *mocks.FakeGroupLedger
	friends *mocks.FakeFriendLedger
	idl     *mocks.FakeIdentityLedger
	store   *mocks.FakeStore
	channel *push.MemoryChannel
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	cfg := testConfig()
	cfg.TypingIndicatorTimeout = 3 * time.Second

	idl := mocks.NewFakeIdentityLedger()
	idl.AddProfile(&models.Profile{Address: testSelf, Username: "me", IsRegistered: true})
	store := mocks.NewFakeStore()
	identity := NewIdentityService(idl, store, nil, cfg, zap.NewNop(), testSelf)

	friends := mocks.NewFakeFriendLedger()
	social := NewSocialService(friends, identity, nil, cfg, zap.NewNop(), testSelf)

	groups := mocks.NewFakeGroupLedger()
	channel := push.NewMemoryChannel()
	svc := NewChatService(groups, identity, social, channel, store, nil, nil, cfg, zap.NewNop(), testSelf)

	return &chatFixture{svc: svc, groups: groups, friends: friends, idl: idl, store: store, channel: channel}
}

func (f *chatFixture) loadWithFriend(t *testing.T, addr, username string) string {
	t.Helper()
	f.idl.AddProfile(&models.Profile{Address: addr, Username: username, IsRegistered: true})
	f.friends.Friends = append(f.friends.Friends, addr)
	require.NoError(t, f.svc.social.Load(context.Background()))
	require.NoError(t, f.svc.LoadConversations(context.Background()))
	return models.PrivateConversationID(testSelf, addr)
}

func (f *chatFixture) addGroup(t *testing.T, id uint64, name string, admin bool, members ...string) string {
	t.Helper()
	info := &ledger.GroupInfo{
		ID:        id,
		Name:      name,
		GroupType: models.GroupTypePrivate,
		Members:   append([]string{testSelf}, members...),
		Settings:  models.GroupSettings{MaxMembers: 100},
	}
	if admin {
		info.Admins = []string{testSelf}
	}
	f.groups.Groups[id] = info
	f.groups.Memberships[testSelf] = append(f.groups.Memberships[testSelf], id)
	require.NoError(t, f.svc.LoadConversations(context.Background()))
	return models.GroupConversationID(id)
}

func TestLoadConversationsSkipsFailedGroup(t *testing.T) {
	f := newChatFixture(t)
	f.addGroup(t, 1, "alpha", false)
	f.groups.Groups[2] = &ledger.GroupInfo{ID: 2, Name: "beta", Members: []string{testSelf}}
	f.groups.Memberships[testSelf] = append(f.groups.Memberships[testSelf], 2)
	f.groups.GroupErrs[2] = ledger.NewError(ledger.CodeUnavailable, "lite server", nil)

	require.NoError(t, f.svc.LoadConversations(context.Background()))

	convs := f.svc.Conversations()
	require.Len(t, convs, 1)
	require.Equal(t, "group:1", convs[0].ID)
}

func TestLoadConversationsMergesFriendsAndGroups(t *testing.T) {
	f := newChatFixture(t)
	dmID := f.loadWithFriend(t, "0:bbbb", "bob")
	groupID := f.addGroup(t, 7, "chess club", true)

	convs := f.svc.Conversations()
	require.Len(t, convs, 2)

	ids := map[string]bool{}
	for _, c := range convs {
		ids[c.ID] = true
	}
	require.True(t, ids[dmID])
	require.True(t, ids[groupID])
}

func TestSetActiveJoinsRoomAndResetsUnread(t *testing.T) {
	f := newChatFixture(t)
	dmID := f.loadWithFriend(t, "0:bbbb", "bob")

	require.ErrorIs(t, f.svc.SetActive(context.Background(), "dm:missing"), models.ErrNotFound)

	require.NoError(t, f.svc.SetActive(context.Background(), dmID))
	require.Equal(t, []string{dmID}, f.channel.Joined)
	require.Equal(t, dmID, f.svc.ActiveConversation().ID)

	groupID := f.addGroup(t, 3, "gamma", false)
	require.NoError(t, f.svc.SetActive(context.Background(), groupID))
	require.Equal(t, []string{dmID}, f.channel.Left)
	require.Empty(t, f.svc.Timeline())
}

func TestSetActiveEmptyDeactivates(t *testing.T) {
	f := newChatFixture(t)
	dmID := f.loadWithFriend(t, "0:bbbb", "bob")
	require.NoError(t, f.svc.SetActive(context.Background(), dmID))

	f.svc.handleTyping(push.Typing{Room: dmID, Username: "bob", Active: true})

	require.NoError(t, f.svc.SetActive(context.Background(), ""))
	require.Nil(t, f.svc.ActiveConversation())
	require.Equal(t, []string{dmID}, f.channel.Left)
	require.Empty(t, f.svc.Timeline())
	require.Empty(t, f.svc.ActiveTypers())

	// Deactivated means no send target.
	_, err := f.svc.SendText(context.Background(), "hi")
	require.ErrorIs(t, err, models.ErrNoActiveConversation)
}

func TestMemberAddedEventRefreshesConversations(t *testing.T) {
	cfg := testConfig()
	cfg.SettleDelay = 10 * time.Millisecond

	bus := events.NewMemoryBus()
	bridge, err := events.NewBridge(context.Background(), bus, zap.NewNop())
	require.NoError(t, err)

	idl := mocks.NewFakeIdentityLedger()
	idl.AddProfile(&models.Profile{Address: testSelf, Username: "me", IsRegistered: true})
	store := mocks.NewFakeStore()
	identity := NewIdentityService(idl, store, nil, cfg, zap.NewNop(), testSelf)
	social := NewSocialService(mocks.NewFakeFriendLedger(), identity, nil, cfg, zap.NewNop(), testSelf)
	groups := mocks.NewFakeGroupLedger()
	svc := NewChatService(groups, identity, social, push.NewMemoryChannel(), store, nil, bridge, cfg, zap.NewNop(), testSelf)
	require.NoError(t, svc.LoadConversations(context.Background()))
	require.Empty(t, svc.Conversations())

	// An admin adds this account to a group; no local write happened, only
	// the change notification.
	groups.Groups[11] = &ledger.GroupInfo{
		ID: 11, Name: "theta", Members: []string{"0:bbbb", testSelf},
		Settings: models.GroupSettings{MaxMembers: 100},
	}
	groups.Memberships[testSelf] = []uint64{11}
	require.NoError(t, bus.Publish(context.Background(), events.StreamLedger, events.Event{
		Kind:    events.EventGroupMemberAdded,
		Address: testSelf,
	}))

	require.Eventually(t, func() bool {
		for _, c := range svc.Conversations() {
			if c.ID == models.GroupConversationID(11) {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSendTextRequiresActiveConversation(t *testing.T) {
	f := newChatFixture(t)
	f.loadWithFriend(t, "0:bbbb", "bob")

	_, err := f.svc.SendText(context.Background(), "hi")
	require.ErrorIs(t, err, models.ErrNoActiveConversation)
	require.Empty(t, f.channel.Sent)
}

func TestSendTextRequiresRegisteredProfile(t *testing.T) {
	f := newChatFixture(t)
	dmID := f.loadWithFriend(t, "0:bbbb", "bob")
	require.NoError(t, f.svc.SetActive(context.Background(), dmID))

	f.svc.identity.Invalidate(testSelf)
	delete(f.idl.Profiles, testSelf)

	_, err := f.svc.SendText(context.Background(), "hi")
	require.ErrorIs(t, err, models.ErrProfileNotLoaded)
}

func TestSendTextOptimisticDelivery(t *testing.T) {
	f := newChatFixture(t)
	dmID := f.loadWithFriend(t, "0:bbbb", "bob")
	require.NoError(t, f.svc.SetActive(context.Background(), dmID))

	first, err := f.svc.SendText(context.Background(), "one")
	require.NoError(t, err)
	second, err := f.svc.SendText(context.Background(), "two")
	require.NoError(t, err)

	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, models.DeliverySent, first.DeliveryStatus)
	require.Len(t, f.channel.Sent, 2)

	timeline := f.svc.Timeline()
	require.Len(t, timeline, 2)
	require.Equal(t, "one", timeline[0].Content)

	conv := f.svc.ActiveConversation()
	require.Equal(t, second.ID, conv.LastMessage.ID)

	// The relay echo advances delivery, it does not duplicate the message.
	f.channel.Deliver(push.Message{Room: dmID, MessageID: first.ID, SenderAddress: testSelf})
	require.Len(t, f.svc.Timeline(), 2)
	require.Equal(t, models.DeliveryDelivered, f.svc.Timeline()[0].DeliveryStatus)
}

func TestEchoBeforeSendAckStillDelivered(t *testing.T) {
	f := newChatFixture(t)
	dmID := f.loadWithFriend(t, "0:bbbb", "bob")
	require.NoError(t, f.svc.SetActive(context.Background(), dmID))

	msg := &models.ChatMessage{
		ID:             models.NewMessageID(),
		ConversationID: dmID,
		SenderAddress:  testSelf,
		Content:        "fast echo",
		Kind:           models.MessageKindText,
		DeliveryStatus: models.DeliverySending,
		SentAt:         time.Now(),
	}
	f.svc.appendLocal(msg)

	// The relay echoes the message before the local send call returns.
	f.svc.handleIncoming(push.Message{Room: dmID, MessageID: msg.ID, SenderAddress: testSelf})
	require.Equal(t, models.DeliveryDelivered, f.svc.Timeline()[0].DeliveryStatus)

	// The late local ack must not roll delivery back to "sent".
	f.svc.markDelivery(msg.ID, models.DeliverySent)
	require.Equal(t, models.DeliveryDelivered, f.svc.Timeline()[0].DeliveryStatus)
}

func TestIncomingMessageRouting(t *testing.T) {
	f := newChatFixture(t)
	dmID := f.loadWithFriend(t, "0:bbbb", "bob")
	groupID := f.addGroup(t, 5, "delta", false)
	require.NoError(t, f.svc.SetActive(context.Background(), dmID))

	// Active room: straight into the timeline, no unread bump.
	f.svc.handleIncoming(push.Message{
		Room: dmID, MessageID: "m1", SenderAddress: "0:bbbb",
		SenderUsername: "bob", Kind: models.MessageKindText, Content: "hey",
		SentAt: time.Now().Unix(),
	})
	require.Len(t, f.svc.Timeline(), 1)
	require.Equal(t, 0, f.svc.ActiveConversation().UnreadCount)

	// Inactive room: unread bump, nothing in the timeline.
	f.svc.handleIncoming(push.Message{
		Room: groupID, MessageID: "m2", SenderAddress: "0:cccc",
		Kind: models.MessageKindText, Content: "yo", SentAt: time.Now().Unix(),
	})
	require.Len(t, f.svc.Timeline(), 1)
	for _, c := range f.svc.Conversations() {
		if c.ID == groupID {
			require.Equal(t, 1, c.UnreadCount)
			require.Equal(t, "m2", c.LastMessage.ID)
		}
	}
}

func TestStaleHistoryDiscarded(t *testing.T) {
	f := newChatFixture(t)
	dmID := f.loadWithFriend(t, "0:bbbb", "bob")
	groupID := f.addGroup(t, 9, "epsilon", false)
	require.NoError(t, f.svc.SetActive(context.Background(), dmID))

	f.svc.mu.RLock()
	staleGen := f.svc.generation
	f.svc.mu.RUnlock()

	require.NoError(t, f.svc.SetActive(context.Background(), groupID))

	f.svc.mu.RLock()
	liveGen := f.svc.generation
	f.svc.mu.RUnlock()
	require.NotEqual(t, staleGen, liveGen)

	// A history batch for the previous conversation must not land.
	f.svc.applyHistory(dmID, staleGen, []*models.ChatMessage{{ID: "old", ConversationID: dmID}})
	require.Empty(t, f.svc.Timeline())

	// The same batch for the live generation does land.
	f.svc.applyHistory(groupID, liveGen, []*models.ChatMessage{{ID: "fresh", ConversationID: groupID}})
	require.Len(t, f.svc.Timeline(), 1)
}

func TestSendFileUploadFailureLeavesNoMessage(t *testing.T) {
	f := newChatFixture(t)
	dmID := f.loadWithFriend(t, "0:bbbb", "bob")
	require.NoError(t, f.svc.SetActive(context.Background(), dmID))

	f.store.UploadErr = context.DeadlineExceeded
	_, err := f.svc.SendFile(context.Background(), "photo.png", []byte("data"))
	require.Error(t, err)
	require.Empty(t, f.svc.Timeline())
	require.Empty(t, f.channel.Sent)
}

func TestSendFileValidation(t *testing.T) {
	f := newChatFixture(t)
	dmID := f.loadWithFriend(t, "0:bbbb", "bob")
	require.NoError(t, f.svc.SetActive(context.Background(), dmID))

	_, err := f.svc.SendFile(context.Background(), "malware.exe", []byte("x"))
	require.ErrorIs(t, err, models.ErrUnsupportedFileType)
	require.Equal(t, 0, f.store.UploadCalls)

	big := make([]byte, 11*1024*1024)
	_, err = f.svc.SendFile(context.Background(), "big.png", big)
	require.ErrorIs(t, err, models.ErrFileTooLarge)
	require.Equal(t, 0, f.store.UploadCalls)
}

func TestSendFileSuccess(t *testing.T) {
	f := newChatFixture(t)
	dmID := f.loadWithFriend(t, "0:bbbb", "bob")
	require.NoError(t, f.svc.SetActive(context.Background(), dmID))

	msg, err := f.svc.SendFile(context.Background(), "photo.png", []byte("imagedata"))
	require.NoError(t, err)
	require.Equal(t, models.MessageKindImage, msg.Kind)
	require.NotEmpty(t, msg.FileRef)
	require.Contains(t, msg.FileURL, msg.FileRef)
	require.Len(t, f.channel.Sent, 1)
	require.Equal(t, msg.FileRef, f.channel.Sent[0].FileRef)
}

func TestTypingIndicatorsExpire(t *testing.T) {
	f := newChatFixture(t)
	dmID := f.loadWithFriend(t, "0:bbbb", "bob")
	require.NoError(t, f.svc.SetActive(context.Background(), dmID))

	f.svc.handleTyping(push.Typing{Room: dmID, Username: "bob", Active: true})
	require.Equal(t, []string{"bob"}, f.svc.ActiveTypers())

	f.svc.handleTyping(push.Typing{Room: "dm:other", Username: "mallory", Active: true})
	require.Equal(t, []string{"bob"}, f.svc.ActiveTypers())

	f.svc.handleTyping(push.Typing{Room: dmID, Username: "bob", Active: false})
	require.Empty(t, f.svc.ActiveTypers())

	f.svc.mu.Lock()
	f.svc.typing["bob"] = time.Now().Add(-time.Second)
	f.svc.mu.Unlock()
	require.Empty(t, f.svc.ActiveTypers())
}

func TestCreateGroupSendsConfiguredFee(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.svc.CreateGroup(context.Background(), "", "", models.GroupTypePublic, nil)
	require.Error(t, err)
	require.Equal(t, 0, f.groups.WriteCalls)

	_, err = f.svc.CreateGroup(context.Background(), "book club", "monthly reads", models.GroupTypePublic, []string{"0:bbbb"})
	require.NoError(t, err)
	require.Equal(t, int64(100_000_000), f.groups.LastCreateFee)
	require.Equal(t, "book club", f.groups.LastCreateName)
}

func TestGroupMembershipPreconditions(t *testing.T) {
	f := newChatFixture(t)
	f.addGroup(t, 1, "alpha", false, "0:bbbb")

	// Not an admin of group 1.
	require.ErrorIs(t, f.svc.AddMember(context.Background(), 1, "0:cccc"), models.ErrNotAdmin)
	require.ErrorIs(t, f.svc.RemoveMember(context.Background(), 1, "0:bbbb"), models.ErrNotAdmin)

	f.addGroup(t, 2, "beta", true, "0:bbbb")
	require.ErrorIs(t, f.svc.AddMember(context.Background(), 2, "0:BBBB"), models.ErrAlreadyMember)
	require.ErrorIs(t, f.svc.RemoveMember(context.Background(), 2, "0:cccc"), models.ErrNotMember)

	// Unknown group.
	require.ErrorIs(t, f.svc.AddMember(context.Background(), 99, "0:cccc"), models.ErrNotFound)

	require.Equal(t, 0, f.groups.WriteCalls)
}

func TestAddMemberRejectsFullGroup(t *testing.T) {
	f := newChatFixture(t)
	f.groups.Groups[4] = &ledger.GroupInfo{
		ID:       4,
		Name:     "tiny",
		Members:  []string{testSelf, "0:bbbb"},
		Admins:   []string{testSelf},
		Settings: models.GroupSettings{MaxMembers: 2},
	}
	f.groups.Memberships[testSelf] = []uint64{4}
	require.NoError(t, f.svc.LoadConversations(context.Background()))

	require.ErrorIs(t, f.svc.AddMember(context.Background(), 4, "0:cccc"), models.ErrGroupFull)
	require.Equal(t, 0, f.groups.WriteCalls)
}

func TestJoinGroupPreconditions(t *testing.T) {
	f := newChatFixture(t)
	f.addGroup(t, 1, "alpha", false)

	require.ErrorIs(t, f.svc.JoinGroup(context.Background(), 1), models.ErrAlreadyMember)
	require.ErrorIs(t, f.svc.JoinGroup(context.Background(), 99), models.ErrNotFound)

	f.groups.Groups[6] = &ledger.GroupInfo{
		ID:       6,
		Name:     "packed",
		Members:  []string{"0:bbbb", "0:cccc"},
		Settings: models.GroupSettings{MaxMembers: 2},
	}
	require.ErrorIs(t, f.svc.JoinGroup(context.Background(), 6), models.ErrGroupFull)
	require.Equal(t, 0, f.groups.WriteCalls)
}

func TestLeaveGroupClearsActiveConversation(t *testing.T) {
	f := newChatFixture(t)
	groupID := f.addGroup(t, 8, "zeta", false)
	require.NoError(t, f.svc.SetActive(context.Background(), groupID))

	require.ErrorIs(t, f.svc.LeaveGroup(context.Background(), 99), models.ErrNotMember)

	require.NoError(t, f.svc.LeaveGroup(context.Background(), 8))
	require.Nil(t, f.svc.ActiveConversation())
	require.Empty(t, f.svc.Conversations())
	require.Contains(t, f.channel.Left, groupID)
}

func TestLeaveGroupRevertsOnFailedTx(t *testing.T) {
	f := newChatFixture(t)
	f.addGroup(t, 8, "zeta", false)

	require.NoError(t, f.svc.LeaveGroup(context.Background(), 8))
	require.Empty(t, f.svc.Conversations())

	var mutationID string
	f.svc.mutations.mu.Lock()
	for id := range f.svc.mutations.entries {
		mutationID = id
	}
	f.svc.mutations.mu.Unlock()

	f.svc.OnTxResult(mutationID, false)
	require.Len(t, f.svc.Conversations(), 1)
}
