package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chainchat/syncd/internal/mocks"
	"github.com/chainchat/syncd/internal/models"
)

func newTestIdentity(t *testing.T, idl *mocks.FakeIdentityLedger) *IdentityService {
	t.Helper()
	return NewIdentityService(idl, mocks.NewFakeStore(), nil, testConfig(), zap.NewNop(), testSelf)
}

func TestResolveReadsThroughCache(t *testing.T) {
	idl := mocks.NewFakeIdentityLedger()
	idl.AddProfile(&models.Profile{Address: "0:bbbb", Username: "bob", IsRegistered: true})
	svc := newTestIdentity(t, idl)

	got := svc.Resolve(context.Background(), "0:bbbb")
	require.Equal(t, "bob", got.Username)

	// The cached copy survives even if the ledger entry changes underneath.
	idl.Profiles["0:bbbb"].Username = "robert"
	require.Equal(t, "bob", svc.Resolve(context.Background(), "0:BBBB").Username)

	// Refresh bypasses the cache.
	require.Equal(t, "robert", svc.Refresh(context.Background(), "0:bbbb").Username)
}

func TestResolveLedgerErrorFallsBackToSentinel(t *testing.T) {
	idl := mocks.NewFakeIdentityLedger()
	idl.ReadErr = context.DeadlineExceeded
	svc := newTestIdentity(t, idl)

	got := svc.Resolve(context.Background(), "0:bbbb")
	require.NotNil(t, got)
	require.False(t, got.IsRegistered)
	require.NotEmpty(t, got.AvatarURL)
	require.Error(t, svc.LastError())

	// The sentinel is not cached; a later successful read replaces it.
	idl.ReadErr = nil
	idl.AddProfile(&models.Profile{Address: "0:bbbb", Username: "bob", IsRegistered: true})
	require.Equal(t, "bob", svc.Resolve(context.Background(), "0:bbbb").Username)
}

func TestUnregisteredProfileGetsPlaceholderAvatar(t *testing.T) {
	idl := mocks.NewFakeIdentityLedger()
	svc := newTestIdentity(t, idl)

	got := svc.Resolve(context.Background(), "0:cccc")
	require.False(t, got.IsRegistered)
	require.NotEmpty(t, got.AvatarURL)

	again := svc.Resolve(context.Background(), "0:cccc")
	require.Equal(t, got.AvatarURL, again.AvatarURL)
}

func TestResolveByUsername(t *testing.T) {
	idl := mocks.NewFakeIdentityLedger()
	idl.AddProfile(&models.Profile{Address: "0:bbbb", Username: "bob", IsRegistered: true})
	svc := newTestIdentity(t, idl)

	addr, err := svc.ResolveByUsername(context.Background(), "bob")
	require.NoError(t, err)
	require.Equal(t, "0:bbbb", addr)

	_, err = svc.ResolveByUsername(context.Background(), "nobody")
	require.Error(t, err)
}
