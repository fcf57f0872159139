package ledger

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
	"github.com/xssnick/tonutils-go/tvm/cell"
	"go.uber.org/zap"

	"github.com/chainchat/syncd/internal/config"
	"github.com/chainchat/syncd/internal/models"
)

// Contract op codes. Must match the deployed contracts.
const (
	opRegister     = 0x52454731
	opUpdateBio    = 0x55504249
	opUpdateAvatar = 0x55504156

	opSendRequest    = 0x46525154
	opAcceptRequest  = 0x46414343
	opDeclineRequest = 0x46444543
	opRemoveFriend   = 0x4652454d

	opCreateGroup    = 0x47435254
	opJoinGroup      = 0x474a4f49
	opLeaveGroup     = 0x474c4556
	opAddMember      = 0x47414444
	opRemoveMember   = 0x4752454d
	opUpdateInfo     = 0x47494e46
	opUpdateSettings = 0x47534554

	opClaimDaily   = 0x54434c44
	opClaimPending = 0x54434c50
	opBurn         = 0x5442524e
)

// TONClient implements the four ledger interfaces against the deployed
// contracts. Reads are get-method calls; writes are signed external messages.
// A write returning a TxHandle means submitted, not confirmed.
type TONClient struct {
	api ton.APIClientWrapped
	log *zap.Logger

	identityAddr *address.Address
	friendsAddr  *address.Address
	groupsAddr   *address.Address
	tokenAddr    *address.Address

	ownAddr *address.Address
	signKey ed25519.PrivateKey
}

// Connect establishes a connection to the TON network. If LITE_SERVER_HOST +
// LITE_SERVER_KEY are set, connects to that lite server; otherwise
// auto-discovers from the global config for the configured network.
func Connect(ctx context.Context, cfg *config.Config, log *zap.Logger) (*TONClient, error) {
	client := liteclient.NewConnectionPool()

	if cfg.LiteServerHost != "" && cfg.LiteServerKey != "" {
		addr := fmt.Sprintf("%s:%d", cfg.LiteServerHost, cfg.LiteServerPort)
		log.Info("connecting to lite server", zap.String("addr", addr))
		if err := client.AddConnection(ctx, addr, cfg.LiteServerKey); err != nil {
			return nil, fmt.Errorf("connect to lite server %s: %w", addr, err)
		}
	} else {
		var configURL string
		switch strings.ToLower(cfg.TONNetwork) {
		case "mainnet":
			configURL = "https://ton.org/global.config.json"
		default:
			configURL = "https://ton.org/testnet-global.config.json"
		}
		log.Info("connecting via global config", zap.String("url", configURL), zap.String("network", cfg.TONNetwork))
		if err := client.AddConnectionsFromConfigUrl(ctx, configURL); err != nil {
			return nil, fmt.Errorf("connect via config %s: %w", configURL, err)
		}
	}

	proofPolicy := ton.ProofCheckPolicyFast
	if strings.ToLower(cfg.TONNetwork) == "mainnet" {
		proofPolicy = ton.ProofCheckPolicySecure
	}
	api := ton.NewAPIClient(client, proofPolicy).WithRetry()

	c := &TONClient{api: api, log: log}

	var err error
	if c.identityAddr, err = address.ParseAddr(cfg.IdentityContractAddress); err != nil {
		return nil, fmt.Errorf("invalid IDENTITY_CONTRACT_ADDRESS: %w", err)
	}
	if c.friendsAddr, err = address.ParseAddr(cfg.FriendsContractAddress); err != nil {
		return nil, fmt.Errorf("invalid FRIENDS_CONTRACT_ADDRESS: %w", err)
	}
	if c.groupsAddr, err = address.ParseAddr(cfg.GroupsContractAddress); err != nil {
		return nil, fmt.Errorf("invalid GROUPS_CONTRACT_ADDRESS: %w", err)
	}
	if c.tokenAddr, err = address.ParseAddr(cfg.TokenContractAddress); err != nil {
		return nil, fmt.Errorf("invalid TOKEN_CONTRACT_ADDRESS: %w", err)
	}

	if cfg.WalletAddress != "" {
		if c.ownAddr, err = address.ParseAddr(cfg.WalletAddress); err != nil {
			return nil, fmt.Errorf("invalid WALLET_ADDRESS: %w", err)
		}
	}
	if cfg.WalletSecretKey != "" {
		seed, err := hex.DecodeString(cfg.WalletSecretKey)
		if err != nil || len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("invalid WALLET_SECRET_KEY")
		}
		c.signKey = ed25519.NewKeyFromSeed(seed)
	}

	return c, nil
}

// API exposes the underlying TON api for the confirmation watcher.
func (c *TONClient) API() ton.APIClientWrapped { return c.api }

// ContractAddresses returns the ledger contract addresses in a fixed order:
// identity, friends, groups, token.
func (c *TONClient) ContractAddresses() []*address.Address {
	return []*address.Address{c.identityAddr, c.friendsAddr, c.groupsAddr, c.tokenAddr}
}

func (c *TONClient) runGet(ctx context.Context, addr *address.Address, method string, params ...any) (*ton.ExecutionResult, error) {
	block, err := c.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return nil, NewError(CodeUnavailable, "get master block", err)
	}
	res, err := c.api.RunGetMethod(ctx, block, addr, method, params...)
	if err != nil {
		return nil, NewError(CodeUnavailable, fmt.Sprintf("run %s", method), err)
	}
	return res, nil
}

// submit signs the payload with the wallet key and sends it as an external
// message to the contract. The handle hash is the payload hash, which is how
// the Confirmer later matches the on-chain transaction.
func (c *TONClient) submit(ctx context.Context, dst *address.Address, payload *cell.Cell) (TxHandle, error) {
	if c.signKey == nil || c.ownAddr == nil {
		return TxHandle{}, NewError(CodeRejected, "no signing wallet configured", nil)
	}

	sig := ed25519.Sign(c.signKey, payload.Hash())
	body := cell.BeginCell().
		MustStoreSlice(sig, 512).
		MustStoreRef(payload).
		EndCell()

	ext := &tlb.ExternalMessage{
		DstAddr: dst,
		Body:    body,
	}
	if err := c.api.SendExternalMessage(ctx, ext); err != nil {
		return TxHandle{}, NewError(CodeUnavailable, "send external message", err)
	}

	return TxHandle{Hash: hex.EncodeToString(payload.Hash())}, nil
}

// payload builds the common op envelope: op(32) + sender address + valid-until.
func (c *TONClient) payload(op uint64) *cell.Builder {
	b := cell.BeginCell().
		MustStoreUInt(op, 32).
		MustStoreAddr(c.ownAddr).
		MustStoreUInt(uint64(time.Now().Add(time.Minute).Unix()), 64)
	return b
}

func storeText(b *cell.Builder, s string) *cell.Builder {
	b.MustStoreRef(cell.BeginCell().MustStoreStringSnake(s).EndCell())
	return b
}

func loadText(res *ton.ExecutionResult, idx uint) (string, error) {
	cl, err := res.Cell(idx)
	if err != nil {
		return "", err
	}
	return cl.BeginParse().LoadStringSnake()
}

// --- IdentityLedger ---

func (c *TONClient) GetProfile(ctx context.Context, addr string) (*models.Profile, error) {
	target, err := address.ParseAddr(addr)
	if err != nil {
		return nil, NewError(CodeRejected, "invalid address", err)
	}

	res, err := c.runGet(ctx, c.identityAddr, "get_profile",
		cell.BeginCell().MustStoreAddr(target).EndCell().BeginParse())
	if err != nil {
		return nil, err
	}

	found, err := res.Int(0)
	if err != nil {
		return nil, NewError(CodeUnavailable, "parse get_profile result", err)
	}
	if found.Sign() == 0 {
		// Registration never happened; the address still has a profile slot.
		return models.UnregisteredProfile(addr), nil
	}

	username, err := loadText(res, 1)
	if err != nil {
		return nil, NewError(CodeUnavailable, "parse username", err)
	}
	bio, _ := loadText(res, 2)
	avatarRef, _ := loadText(res, 3)
	registeredAt, err := res.Int(4)
	if err != nil {
		return nil, NewError(CodeUnavailable, "parse registered_at", err)
	}

	return &models.Profile{
		Address:      addr,
		Username:     username,
		Bio:          bio,
		AvatarRef:    avatarRef,
		RegisteredAt: time.Unix(registeredAt.Int64(), 0),
		IsRegistered: true,
	}, nil
}

func (c *TONClient) ResolveUsername(ctx context.Context, username string) (string, error) {
	res, err := c.runGet(ctx, c.identityAddr, "resolve_username",
		cell.BeginCell().MustStoreStringSnake(strings.ToLower(username)).EndCell().BeginParse())
	if err != nil {
		return "", err
	}

	found, err := res.Int(0)
	if err != nil {
		return "", NewError(CodeUnavailable, "parse resolve result", err)
	}
	if found.Sign() == 0 {
		return "", NewError(CodeNotFound, fmt.Sprintf("username %q", username), nil)
	}

	sl, err := res.Slice(1)
	if err != nil {
		return "", NewError(CodeUnavailable, "parse resolved address", err)
	}
	owner, err := sl.LoadAddr()
	if err != nil {
		return "", NewError(CodeUnavailable, "load resolved address", err)
	}
	return owner.String(), nil
}

func (c *TONClient) ListRegistered(ctx context.Context, offset, limit int) ([]string, error) {
	res, err := c.runGet(ctx, c.identityAddr, "list_registered",
		big.NewInt(int64(offset)), big.NewInt(int64(limit)))
	if err != nil {
		return nil, err
	}
	return loadAddressList(res, 0)
}

func (c *TONClient) Register(ctx context.Context, username string) (TxHandle, error) {
	b := c.payload(opRegister)
	storeText(b, strings.ToLower(username))
	return c.submit(ctx, c.identityAddr, b.EndCell())
}

func (c *TONClient) UpdateBio(ctx context.Context, bio string) (TxHandle, error) {
	b := c.payload(opUpdateBio)
	storeText(b, bio)
	return c.submit(ctx, c.identityAddr, b.EndCell())
}

func (c *TONClient) UpdateAvatar(ctx context.Context, avatarRef string) (TxHandle, error) {
	b := c.payload(opUpdateAvatar)
	storeText(b, avatarRef)
	return c.submit(ctx, c.identityAddr, b.EndCell())
}

// --- FriendLedger ---

func (c *TONClient) ListFriends(ctx context.Context, addr string) ([]string, error) {
	target, err := address.ParseAddr(addr)
	if err != nil {
		return nil, NewError(CodeRejected, "invalid address", err)
	}
	res, err := c.runGet(ctx, c.friendsAddr, "get_friends",
		cell.BeginCell().MustStoreAddr(target).EndCell().BeginParse())
	if err != nil {
		return nil, err
	}
	return loadAddressList(res, 0)
}

func (c *TONClient) ListIncomingRequests(ctx context.Context, addr string) ([]models.FriendRequest, error) {
	return c.listRequests(ctx, addr, "get_incoming_requests", true)
}

func (c *TONClient) ListOutgoingRequests(ctx context.Context, addr string) ([]models.FriendRequest, error) {
	return c.listRequests(ctx, addr, "get_outgoing_requests", false)
}

func (c *TONClient) listRequests(ctx context.Context, addr, method string, incoming bool) ([]models.FriendRequest, error) {
	target, err := address.ParseAddr(addr)
	if err != nil {
		return nil, NewError(CodeRejected, "invalid address", err)
	}
	res, err := c.runGet(ctx, c.friendsAddr, method,
		cell.BeginCell().MustStoreAddr(target).EndCell().BeginParse())
	if err != nil {
		return nil, err
	}

	listCell, err := res.Cell(0)
	if err != nil {
		return nil, NewError(CodeUnavailable, "parse request list", err)
	}

	var out []models.FriendRequest
	// Requests are chained through the first ref; each node holds one entry.
	for node := listCell; node != nil; {
		sl := node.BeginParse()
		peer, err := sl.LoadAddr()
		if err != nil {
			break
		}
		sentAt, err := sl.LoadUInt(64)
		if err != nil {
			break
		}
		var message string
		if msgRef, err := sl.LoadRefCell(); err == nil {
			message, _ = msgRef.BeginParse().LoadStringSnake()
		}

		req := models.FriendRequest{
			Message: message,
			Status:  models.RequestStatusPending,
			SentAt:  time.Unix(int64(sentAt), 0),
		}
		if incoming {
			req.FromAddress = peer.String()
			req.ToAddress = addr
		} else {
			req.FromAddress = addr
			req.ToAddress = peer.String()
		}
		out = append(out, req)

		next, err := sl.LoadRefCell()
		if err != nil {
			break
		}
		node = next
	}
	return out, nil
}

func (c *TONClient) SendRequest(ctx context.Context, to, message string) (TxHandle, error) {
	target, err := address.ParseAddr(to)
	if err != nil {
		return TxHandle{}, NewError(CodeRejected, "invalid address", err)
	}
	b := c.payload(opSendRequest)
	b.MustStoreAddr(target)
	storeText(b, message)
	return c.submit(ctx, c.friendsAddr, b.EndCell())
}

func (c *TONClient) AcceptRequest(ctx context.Context, from string) (TxHandle, error) {
	return c.friendOp(ctx, opAcceptRequest, from)
}

func (c *TONClient) DeclineRequest(ctx context.Context, from string) (TxHandle, error) {
	return c.friendOp(ctx, opDeclineRequest, from)
}

func (c *TONClient) RemoveFriend(ctx context.Context, friend string) (TxHandle, error) {
	return c.friendOp(ctx, opRemoveFriend, friend)
}

func (c *TONClient) friendOp(ctx context.Context, op uint64, peer string) (TxHandle, error) {
	target, err := address.ParseAddr(peer)
	if err != nil {
		return TxHandle{}, NewError(CodeRejected, "invalid address", err)
	}
	b := c.payload(op)
	b.MustStoreAddr(target)
	return c.submit(ctx, c.friendsAddr, b.EndCell())
}

// --- GroupLedger ---

func (c *TONClient) ListMemberships(ctx context.Context, addr string) ([]uint64, error) {
	target, err := address.ParseAddr(addr)
	if err != nil {
		return nil, NewError(CodeRejected, "invalid address", err)
	}
	res, err := c.runGet(ctx, c.groupsAddr, "get_memberships",
		cell.BeginCell().MustStoreAddr(target).EndCell().BeginParse())
	if err != nil {
		return nil, err
	}

	listCell, err := res.Cell(0)
	if err != nil {
		return nil, NewError(CodeUnavailable, "parse membership list", err)
	}

	var ids []uint64
	for node := listCell; node != nil; {
		sl := node.BeginParse()
		id, err := sl.LoadUInt(64)
		if err != nil {
			break
		}
		ids = append(ids, id)
		next, err := sl.LoadRefCell()
		if err != nil {
			break
		}
		node = next
	}
	return ids, nil
}

func (c *TONClient) GetGroup(ctx context.Context, id uint64) (*GroupInfo, error) {
	res, err := c.runGet(ctx, c.groupsAddr, "get_group", new(big.Int).SetUint64(id))
	if err != nil {
		return nil, err
	}

	found, err := res.Int(0)
	if err != nil {
		return nil, NewError(CodeUnavailable, "parse get_group result", err)
	}
	if found.Sign() == 0 {
		return nil, NewError(CodeNotFound, fmt.Sprintf("group %d", id), nil)
	}

	name, err := loadText(res, 1)
	if err != nil {
		return nil, NewError(CodeUnavailable, "parse group name", err)
	}
	description, _ := loadText(res, 2)
	avatarRef, _ := loadText(res, 3)

	members, err := loadAddressList(res, 4)
	if err != nil {
		return nil, NewError(CodeUnavailable, "parse member list", err)
	}
	admins, err := loadAddressList(res, 5)
	if err != nil {
		return nil, NewError(CodeUnavailable, "parse admin list", err)
	}

	settingsBits, err := res.Int(6)
	if err != nil {
		return nil, NewError(CodeUnavailable, "parse settings", err)
	}
	maxMembers, err := res.Int(7)
	if err != nil {
		return nil, NewError(CodeUnavailable, "parse max members", err)
	}

	bits := settingsBits.Int64()
	info := &GroupInfo{
		ID:          id,
		Name:        name,
		Description: description,
		AvatarRef:   avatarRef,
		Members:     members,
		Admins:      admins,
		Settings: models.GroupSettings{
			IsPublic:        bits&1 != 0,
			RequireApproval: bits&2 != 0,
			AllowInvites:    bits&4 != 0,
			MaxMembers:      int(maxMembers.Int64()),
		},
	}
	if info.Settings.IsPublic {
		info.GroupType = models.GroupTypePublic
	} else {
		info.GroupType = models.GroupTypePrivate
	}
	return info, nil
}

func (c *TONClient) ListPublic(ctx context.Context, offset, limit int) ([]*GroupInfo, error) {
	res, err := c.runGet(ctx, c.groupsAddr, "list_public",
		big.NewInt(int64(offset)), big.NewInt(int64(limit)))
	if err != nil {
		return nil, err
	}
	return c.loadGroupHeaders(ctx, res)
}

func (c *TONClient) Search(ctx context.Context, query string, limit int) ([]*GroupInfo, error) {
	res, err := c.runGet(ctx, c.groupsAddr, "search_groups",
		cell.BeginCell().MustStoreStringSnake(strings.ToLower(query)).EndCell().BeginParse(),
		big.NewInt(int64(limit)))
	if err != nil {
		return nil, err
	}
	return c.loadGroupHeaders(ctx, res)
}

// loadGroupHeaders expands an id list into GroupInfo records. Listing get
// methods return ids only; the full record needs one get_group each.
func (c *TONClient) loadGroupHeaders(ctx context.Context, res *ton.ExecutionResult) ([]*GroupInfo, error) {
	listCell, err := res.Cell(0)
	if err != nil {
		return nil, NewError(CodeUnavailable, "parse group id list", err)
	}

	var out []*GroupInfo
	for node := listCell; node != nil; {
		sl := node.BeginParse()
		id, err := sl.LoadUInt(64)
		if err != nil {
			break
		}
		info, err := c.GetGroup(ctx, id)
		if err == nil {
			out = append(out, info)
		}
		next, err := sl.LoadRefCell()
		if err != nil {
			break
		}
		node = next
	}
	return out, nil
}

func (c *TONClient) CreateGroup(ctx context.Context, name, description, groupType string, isPublic bool, members []string, feeNano int64) (TxHandle, error) {
	b := c.payload(opCreateGroup)
	storeText(b, name)
	storeText(b, description)

	var bits uint64
	if isPublic {
		bits |= 1
	}
	b.MustStoreUInt(bits, 8)
	b.MustStoreUInt(uint64(feeNano), 64)

	memberList := cell.BeginCell()
	for _, m := range members {
		ma, err := address.ParseAddr(m)
		if err != nil {
			return TxHandle{}, NewError(CodeRejected, fmt.Sprintf("invalid member address %s", m), err)
		}
		next := cell.BeginCell().MustStoreAddr(ma).MustStoreRef(memberList.EndCell()).EndCell()
		memberList = next.ToBuilder()
	}
	b.MustStoreRef(memberList.EndCell())

	return c.submit(ctx, c.groupsAddr, b.EndCell())
}

func (c *TONClient) JoinGroup(ctx context.Context, id uint64) (TxHandle, error) {
	return c.groupOp(ctx, opJoinGroup, id)
}

func (c *TONClient) LeaveGroup(ctx context.Context, id uint64) (TxHandle, error) {
	return c.groupOp(ctx, opLeaveGroup, id)
}

func (c *TONClient) groupOp(ctx context.Context, op, id uint64) (TxHandle, error) {
	b := c.payload(op)
	b.MustStoreUInt(id, 64)
	return c.submit(ctx, c.groupsAddr, b.EndCell())
}

func (c *TONClient) AddMember(ctx context.Context, id uint64, addr string) (TxHandle, error) {
	return c.groupMemberOp(ctx, opAddMember, id, addr)
}

func (c *TONClient) RemoveMember(ctx context.Context, id uint64, addr string) (TxHandle, error) {
	return c.groupMemberOp(ctx, opRemoveMember, id, addr)
}

func (c *TONClient) groupMemberOp(ctx context.Context, op, id uint64, addr string) (TxHandle, error) {
	target, err := address.ParseAddr(addr)
	if err != nil {
		return TxHandle{}, NewError(CodeRejected, "invalid address", err)
	}
	b := c.payload(op)
	b.MustStoreUInt(id, 64)
	b.MustStoreAddr(target)
	return c.submit(ctx, c.groupsAddr, b.EndCell())
}

func (c *TONClient) UpdateInfo(ctx context.Context, id uint64, name, description, avatarRef string) (TxHandle, error) {
	b := c.payload(opUpdateInfo)
	b.MustStoreUInt(id, 64)
	storeText(b, name)
	storeText(b, description)
	storeText(b, avatarRef)
	return c.submit(ctx, c.groupsAddr, b.EndCell())
}

func (c *TONClient) UpdateSettings(ctx context.Context, id uint64, settings models.GroupSettings) (TxHandle, error) {
	var bits uint64
	if settings.IsPublic {
		bits |= 1
	}
	if settings.RequireApproval {
		bits |= 2
	}
	if settings.AllowInvites {
		bits |= 4
	}

	b := c.payload(opUpdateSettings)
	b.MustStoreUInt(id, 64)
	b.MustStoreUInt(bits, 8)
	b.MustStoreUInt(uint64(settings.MaxMembers), 32)
	return c.submit(ctx, c.groupsAddr, b.EndCell())
}

// --- TokenLedger ---

func (c *TONClient) GetStats(ctx context.Context, addr string) (*models.TokenStats, error) {
	target, err := address.ParseAddr(addr)
	if err != nil {
		return nil, NewError(CodeRejected, "invalid address", err)
	}
	res, err := c.runGet(ctx, c.tokenAddr, "get_stats",
		cell.BeginCell().MustStoreAddr(target).EndCell().BeginParse())
	if err != nil {
		return nil, err
	}

	vals := make([]*big.Int, 6)
	for i := range vals {
		v, err := res.Int(uint(i))
		if err != nil {
			return nil, NewError(CodeUnavailable, "parse token stats", err)
		}
		vals[i] = v
	}

	stats := &models.TokenStats{
		Balance:          vals[0].Int64(),
		PendingRewards:   vals[1].Int64(),
		TotalEarned:      vals[2].Int64(),
		RewardMultiplier: int(vals[5].Int64()),
	}
	if lastClaim := vals[3].Int64(); lastClaim > 0 {
		stats.LastClaimTime = time.Unix(lastClaim, 0)
	}
	if next := vals[4].Int64(); next > 0 {
		stats.TimeUntilNextClaim = time.Duration(next) * time.Second
	} else {
		stats.CanClaimDaily = true
	}
	return stats, nil
}

func (c *TONClient) RewardAmount(ctx context.Context, activityKind string) (int64, error) {
	res, err := c.runGet(ctx, c.tokenAddr, "get_reward_amount",
		cell.BeginCell().MustStoreStringSnake(activityKind).EndCell().BeginParse())
	if err != nil {
		return 0, err
	}
	amount, err := res.Int(0)
	if err != nil {
		return 0, NewError(CodeUnavailable, "parse reward amount", err)
	}
	return amount.Int64(), nil
}

func (c *TONClient) ClaimDaily(ctx context.Context) (TxHandle, error) {
	return c.submit(ctx, c.tokenAddr, c.payload(opClaimDaily).EndCell())
}

func (c *TONClient) ClaimPending(ctx context.Context) (TxHandle, error) {
	return c.submit(ctx, c.tokenAddr, c.payload(opClaimPending).EndCell())
}

func (c *TONClient) Burn(ctx context.Context, amountNano int64) (TxHandle, error) {
	b := c.payload(opBurn)
	b.MustStoreUInt(uint64(amountNano), 64)
	return c.submit(ctx, c.tokenAddr, b.EndCell())
}

// --- shared parsing helpers ---

func loadAddressList(res *ton.ExecutionResult, idx uint) ([]string, error) {
	listCell, err := res.Cell(idx)
	if err != nil {
		return nil, err
	}

	var out []string
	for node := listCell; node != nil; {
		sl := node.BeginParse()
		a, err := sl.LoadAddr()
		if err != nil {
			break
		}
		out = append(out, a.String())
		next, err := sl.LoadRefCell()
		if err != nil {
			break
		}
		node = next
	}
	return out, nil
}
