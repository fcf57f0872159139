package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/chainchat/syncd/internal/ledger"
	"github.com/chainchat/syncd/internal/models"
)

// FakeIdentityLedger is an in-memory IdentityLedger. Profiles are keyed by
// lowercase address.
type FakeIdentityLedger struct {
	mu       sync.Mutex
	Profiles map[string]*models.Profile
	Byname   map[string]string

	ReadErr    error
	WriteCalls int
}

func NewFakeIdentityLedger() *FakeIdentityLedger {
	return &FakeIdentityLedger{
		Profiles: make(map[string]*models.Profile),
		Byname:   make(map[string]string),
	}
}

func (f *FakeIdentityLedger) AddProfile(p *models.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Profiles[strings.ToLower(p.Address)] = p
	if p.Username != "" {
		f.Byname[strings.ToLower(p.Username)] = p.Address
	}
}

func (f *FakeIdentityLedger) GetProfile(ctx context.Context, address string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadErr != nil {
		return nil, f.ReadErr
	}
	p, ok := f.Profiles[strings.ToLower(address)]
	if !ok {
		return models.UnregisteredProfile(address), nil
	}
	cp := *p
	return &cp, nil
}

func (f *FakeIdentityLedger) ResolveUsername(ctx context.Context, username string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadErr != nil {
		return "", f.ReadErr
	}
	addr, ok := f.Byname[strings.ToLower(username)]
	if !ok {
		return "", ledger.NewError(ledger.CodeNotFound, "username "+username, nil)
	}
	return addr, nil
}

func (f *FakeIdentityLedger) ListRegistered(ctx context.Context, offset, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, p := range f.Profiles {
		out = append(out, p.Address)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeIdentityLedger) Register(ctx context.Context, username string) (ledger.TxHandle, error) {
	return f.write()
}

func (f *FakeIdentityLedger) UpdateBio(ctx context.Context, bio string) (ledger.TxHandle, error) {
	return f.write()
}

func (f *FakeIdentityLedger) UpdateAvatar(ctx context.Context, avatarRef string) (ledger.TxHandle, error) {
	return f.write()
}

func (f *FakeIdentityLedger) write() (ledger.TxHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WriteCalls++
	return ledger.TxHandle{Hash: "fake"}, nil
}

// FakeFriendLedger is an in-memory FriendLedger scoped to one viewer.
type FakeFriendLedger struct {
	mu       sync.Mutex
	Friends  []string
	Incoming []models.FriendRequest
	Outgoing []models.FriendRequest

	WriteErr   error
	WriteCalls int
}

func NewFakeFriendLedger() *FakeFriendLedger { return &FakeFriendLedger{} }

func (f *FakeFriendLedger) ListFriends(ctx context.Context, address string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Friends...), nil
}

func (f *FakeFriendLedger) ListIncomingRequests(ctx context.Context, address string) ([]models.FriendRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.FriendRequest(nil), f.Incoming...), nil
}

func (f *FakeFriendLedger) ListOutgoingRequests(ctx context.Context, address string) ([]models.FriendRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.FriendRequest(nil), f.Outgoing...), nil
}

func (f *FakeFriendLedger) SendRequest(ctx context.Context, to, message string) (ledger.TxHandle, error) {
	return f.write()
}

func (f *FakeFriendLedger) AcceptRequest(ctx context.Context, from string) (ledger.TxHandle, error) {
	return f.write()
}

func (f *FakeFriendLedger) DeclineRequest(ctx context.Context, from string) (ledger.TxHandle, error) {
	return f.write()
}

func (f *FakeFriendLedger) RemoveFriend(ctx context.Context, friend string) (ledger.TxHandle, error) {
	return f.write()
}

func (f *FakeFriendLedger) write() (ledger.TxHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WriteCalls++
	if f.WriteErr != nil {
		return ledger.TxHandle{}, f.WriteErr
	}
	return ledger.TxHandle{Hash: "fake"}, nil
}

// FakeGroupLedger is an in-memory GroupLedger.
type FakeGroupLedger struct {
	mu          sync.Mutex
	Memberships map[string][]uint64
	Groups      map[uint64]*ledger.GroupInfo

	// GroupErrs makes GetGroup fail for specific ids (partial-batch tests).
	GroupErrs map[uint64]error

	WriteErr       error
	WriteCalls     int
	LastCreateFee  int64
	LastCreateName string
}

func NewFakeGroupLedger() *FakeGroupLedger {
	return &FakeGroupLedger{
		Memberships: make(map[string][]uint64),
		Groups:      make(map[uint64]*ledger.GroupInfo),
		GroupErrs:   make(map[uint64]error),
	}
}

func (f *FakeGroupLedger) ListMemberships(ctx context.Context, address string) ([]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint64(nil), f.Memberships[strings.ToLower(address)]...), nil
}

func (f *FakeGroupLedger) GetGroup(ctx context.Context, id uint64) (*ledger.GroupInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.GroupErrs[id]; ok {
		return nil, err
	}
	g, ok := f.Groups[id]
	if !ok {
		return nil, ledger.NewError(ledger.CodeNotFound, "group", nil)
	}
	cp := *g
	return &cp, nil
}

func (f *FakeGroupLedger) ListPublic(ctx context.Context, offset, limit int) ([]*ledger.GroupInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*ledger.GroupInfo
	for _, g := range f.Groups {
		if g.Settings.IsPublic {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *FakeGroupLedger) Search(ctx context.Context, query string, limit int) ([]*ledger.GroupInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	query = strings.ToLower(query)
	var out []*ledger.GroupInfo
	for _, g := range f.Groups {
		if strings.Contains(strings.ToLower(g.Name), query) {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *FakeGroupLedger) CreateGroup(ctx context.Context, name, description, groupType string, isPublic bool, members []string, feeNano int64) (ledger.TxHandle, error) {
	f.mu.Lock()
	f.LastCreateFee = feeNano
	f.LastCreateName = name
	f.mu.Unlock()
	return f.write()
}

func (f *FakeGroupLedger) JoinGroup(ctx context.Context, id uint64) (ledger.TxHandle, error) {
	return f.write()
}

func (f *FakeGroupLedger) LeaveGroup(ctx context.Context, id uint64) (ledger.TxHandle, error) {
	return f.write()
}

func (f *FakeGroupLedger) AddMember(ctx context.Context, id uint64, address string) (ledger.TxHandle, error) {
	return f.write()
}

func (f *FakeGroupLedger) RemoveMember(ctx context.Context, id uint64, address string) (ledger.TxHandle, error) {
	return f.write()
}

func (f *FakeGroupLedger) UpdateInfo(ctx context.Context, id uint64, name, description, avatarRef string) (ledger.TxHandle, error) {
	return f.write()
}

func (f *FakeGroupLedger) UpdateSettings(ctx context.Context, id uint64, settings models.GroupSettings) (ledger.TxHandle, error) {
	return f.write()
}

func (f *FakeGroupLedger) write() (ledger.TxHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WriteCalls++
	if f.WriteErr != nil {
		return ledger.TxHandle{}, f.WriteErr
	}
	return ledger.TxHandle{Hash: "fake"}, nil
}

// FakeTokenLedger is an in-memory TokenLedger.
type FakeTokenLedger struct {
	mu      sync.Mutex
	Stats   models.TokenStats
	Rewards map[string]int64

	WriteErr   error
	WriteCalls int
}

func NewFakeTokenLedger() *FakeTokenLedger {
	return &FakeTokenLedger{Rewards: make(map[string]int64)}
}

func (f *FakeTokenLedger) SetStats(s models.TokenStats) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Stats = s
}

func (f *FakeTokenLedger) GetStats(ctx context.Context, address string) (*models.TokenStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := f.Stats
	return &cp, nil
}

func (f *FakeTokenLedger) RewardAmount(ctx context.Context, activityKind string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Rewards[activityKind], nil
}

func (f *FakeTokenLedger) ClaimDaily(ctx context.Context) (ledger.TxHandle, error) {
	return f.write()
}

func (f *FakeTokenLedger) ClaimPending(ctx context.Context) (ledger.TxHandle, error) {
	return f.write()
}

func (f *FakeTokenLedger) Burn(ctx context.Context, amountNano int64) (ledger.TxHandle, error) {
	return f.write()
}

func (f *FakeTokenLedger) write() (ledger.TxHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WriteCalls++
	if f.WriteErr != nil {
		return ledger.TxHandle{}, f.WriteErr
	}
	return ledger.TxHandle{Hash: "fake"}, nil
}
