package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chainchat/syncd/internal/config"
	"github.com/chainchat/syncd/internal/events"
	"github.com/chainchat/syncd/internal/mocks"
	"github.com/chainchat/syncd/internal/models"
)

const testSelf = "0:aaaa"

func testConfig() *config.Config {
	return &config.Config{
		SettleDelay:         time.Hour, // keep delayed refreshes out of tests
		FriendMessageMaxLen: 200,
		MaxUploadSizeMB:     10,
		GroupCreationFee:    100_000_000,
		GroupMaxMembers:     100,
	}
}

func newTestSocial(t *testing.T, friends *mocks.FakeFriendLedger) (*SocialService, *mocks.FakeIdentityLedger) {
	t.Helper()
	idl := mocks.NewFakeIdentityLedger()
	idl.AddProfile(&models.Profile{Address: testSelf, Username: "me", IsRegistered: true})
	identity := NewIdentityService(idl, mocks.NewFakeStore(), nil, testConfig(), zap.NewNop(), testSelf)
	return NewSocialService(friends, identity, nil, testConfig(), zap.NewNop(), testSelf), idl
}

func TestSendRequestPreconditions(t *testing.T) {
	friends := mocks.NewFakeFriendLedger()
	friends.Friends = []string{"0:bbbb"}
	friends.Outgoing = []models.FriendRequest{{FromAddress: testSelf, ToAddress: "0:cccc", Status: models.RequestStatusPending}}

	svc, _ := newTestSocial(t, friends)
	require.NoError(t, svc.Load(context.Background()))

	tests := []struct {
		name    string
		to      string
		message string
		wantErr error
	}{
		{"self", testSelf, "hi", models.ErrSelfRequest},
		{"self case-insensitive", "0:AAAA", "hi", models.ErrSelfRequest},
		{"message too long", "0:dddd", string(make([]byte, 201)), models.ErrMessageTooLong},
		{"already friends", "0:BBBB", "hi", models.ErrAlreadyFriends},
		{"duplicate request", "0:cccc", "hi", models.ErrDuplicateRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.SendRequest(context.Background(), tt.to, tt.message)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	// None of the rejected requests may have reached the ledger.
	require.Equal(t, 0, friends.WriteCalls)
}

func TestSendRequestOptimistic(t *testing.T) {
	friends := mocks.NewFakeFriendLedger()
	svc, _ := newTestSocial(t, friends)
	require.NoError(t, svc.Load(context.Background()))

	require.NoError(t, svc.SendRequest(context.Background(), "0:eeee", "hello"))
	require.Equal(t, 1, friends.WriteCalls)

	_, outgoing := svc.ListPendingRequests()
	require.Len(t, outgoing, 1)
	require.Equal(t, "0:eeee", outgoing[0].ToAddress)
	require.Equal(t, models.RequestStatusPending, outgoing[0].Status)
	require.Equal(t, 1, svc.mutations.pendingCount())
}

func TestAcceptUnknownRequest(t *testing.T) {
	friends := mocks.NewFakeFriendLedger()
	svc, _ := newTestSocial(t, friends)
	require.NoError(t, svc.Load(context.Background()))

	require.ErrorIs(t, svc.Accept(context.Background(), "0:ffff"), models.ErrNotFound)
	require.ErrorIs(t, svc.Decline(context.Background(), "0:ffff"), models.ErrNotFound)
	require.Equal(t, 0, friends.WriteCalls)
}

func TestAcceptMovesRequestToFriends(t *testing.T) {
	friends := mocks.NewFakeFriendLedger()
	friends.Incoming = []models.FriendRequest{{FromAddress: "0:bbbb", ToAddress: testSelf, Status: models.RequestStatusPending}}

	svc, idl := newTestSocial(t, friends)
	idl.AddProfile(&models.Profile{Address: "0:bbbb", Username: "bob", IsRegistered: true})
	require.NoError(t, svc.Load(context.Background()))

	require.NoError(t, svc.Accept(context.Background(), "0:bbbb"))

	incoming, _ := svc.ListPendingRequests()
	require.Empty(t, incoming)
	got := svc.ListFriends()
	require.Len(t, got, 1)
	require.Equal(t, "bob", got[0].Username)
}

func TestAcceptRevertsOnFailedTx(t *testing.T) {
	friends := mocks.NewFakeFriendLedger()
	friends.Incoming = []models.FriendRequest{{FromAddress: "0:bbbb", ToAddress: testSelf, Status: models.RequestStatusPending}}

	svc, _ := newTestSocial(t, friends)
	require.NoError(t, svc.Load(context.Background()))
	require.NoError(t, svc.Accept(context.Background(), "0:bbbb"))
	require.Len(t, svc.ListFriends(), 1)

	var mutationID string
	svc.mutations.mu.Lock()
	for id := range svc.mutations.entries {
		mutationID = id
	}
	svc.mutations.mu.Unlock()

	svc.OnTxResult(mutationID, false)

	require.Empty(t, svc.ListFriends())
	incoming, _ := svc.ListPendingRequests()
	require.Len(t, incoming, 1)
}

func TestRemoveUnknownFriend(t *testing.T) {
	friends := mocks.NewFakeFriendLedger()
	svc, _ := newTestSocial(t, friends)
	require.NoError(t, svc.Load(context.Background()))

	require.ErrorIs(t, svc.Remove(context.Background(), "0:bbbb"), models.ErrNotFound)
	require.Equal(t, 0, friends.WriteCalls)
}

func TestRemoveRestoresOnWriteError(t *testing.T) {
	friends := mocks.NewFakeFriendLedger()
	friends.Friends = []string{"0:bbbb"}
	svc, _ := newTestSocial(t, friends)
	require.NoError(t, svc.Load(context.Background()))

	friends.WriteErr = context.DeadlineExceeded
	require.Error(t, svc.Remove(context.Background(), "0:bbbb"))
	require.Len(t, svc.ListFriends(), 1)
	require.Error(t, svc.LastError())
}

func TestIncomingRequestEventRefreshesCache(t *testing.T) {
	friends := mocks.NewFakeFriendLedger()
	cfg := testConfig()
	cfg.SettleDelay = 10 * time.Millisecond

	bus := events.NewMemoryBus()
	bridge, err := events.NewBridge(context.Background(), bus, zap.NewNop())
	require.NoError(t, err)

	idl := mocks.NewFakeIdentityLedger()
	idl.AddProfile(&models.Profile{Address: testSelf, Username: "me", IsRegistered: true})
	identity := NewIdentityService(idl, mocks.NewFakeStore(), nil, cfg, zap.NewNop(), testSelf)
	svc := NewSocialService(friends, identity, bridge, cfg, zap.NewNop(), testSelf)
	require.NoError(t, svc.Load(context.Background()))

	incoming, _ := svc.ListPendingRequests()
	require.Empty(t, incoming)

	// A peer sends us a request. The watcher publishes the change addressed
	// to each affected party, so the recipient gets an event for itself even
	// though the peer signed the write.
	friends.Incoming = append(friends.Incoming, models.FriendRequest{
		FromAddress: "0:bbbb", ToAddress: testSelf, Status: models.RequestStatusPending,
	})
	require.NoError(t, bus.Publish(context.Background(), events.StreamLedger, events.Event{
		Kind:    events.EventFriendRequestSent,
		Address: testSelf,
		Payload: map[string]any{"sender": "0:bbbb"},
	}))

	require.Eventually(t, func() bool {
		incoming, _ := svc.ListPendingRequests()
		return len(incoming) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSuggestionsExcludeKnownAddresses(t *testing.T) {
	friends := mocks.NewFakeFriendLedger()
	friends.Friends = []string{"0:bbbb"}
	friends.Outgoing = []models.FriendRequest{{FromAddress: testSelf, ToAddress: "0:cccc", Status: models.RequestStatusPending}}

	svc, idl := newTestSocial(t, friends)
	idl.AddProfile(&models.Profile{Address: "0:bbbb", Username: "bob", IsRegistered: true})
	idl.AddProfile(&models.Profile{Address: "0:cccc", Username: "carol", IsRegistered: true})
	idl.AddProfile(&models.Profile{Address: "0:dddd", Username: "dave", IsRegistered: true})
	require.NoError(t, svc.Load(context.Background()))

	got, err := svc.Suggestions(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "dave", got[0].Username)
}
