package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chainchat/syncd/internal/config"
	"github.com/chainchat/syncd/internal/events"
	"github.com/chainchat/syncd/internal/ledger"
	"github.com/chainchat/syncd/internal/models"
)

// SocialService is the friend-graph cache: the current user's friends and
// pending requests, reconciled against the friends ledger. Mutations are
// write-optimistic: preconditions are checked against the last snapshot
// before any ledger write, the local list is updated immediately, and a
// delayed refresh (or a confirmation event) reconciles with ledger truth.
type SocialService struct {
	friendLedger ledger.FriendLedger
	identity     *IdentityService
	cfg          *config.Config
	log          *zap.Logger
	self         string

	mu       sync.RWMutex
	friends  []*models.Profile
	incoming []models.FriendRequest
	outgoing []models.FriendRequest
	lastErr  error

	mutations *mutationLog
}

func NewSocialService(
	friendLedger ledger.FriendLedger,
	identity *IdentityService,
	bridge *events.Bridge,
	cfg *config.Config,
	log *zap.Logger,
	self string,
) *SocialService {
	s := &SocialService{
		friendLedger: friendLedger,
		identity:     identity,
		cfg:          cfg,
		log:          log,
		self:         strings.ToLower(self),
		mutations:    newMutationLog(log),
	}

	if bridge != nil {
		// Ledger notifications arrive before the write is necessarily
		// readable; refresh after the settle delay rather than synchronously.
		delayed := func(events.Event) { s.scheduleRefresh() }
		bridge.Subscribe(events.EventFriendRequestSent, self, delayed)
		bridge.Subscribe(events.EventFriendRequestAccepted, self, delayed)
		bridge.Subscribe(events.EventFriendRequestDeclined, self, delayed)
		bridge.Subscribe(events.EventFriendshipRemoved, self, delayed)
	}

	return s
}

func (s *SocialService) scheduleRefresh() {
	time.AfterFunc(s.cfg.SettleDelay, func() {
		if err := s.Load(context.Background()); err != nil {
			s.log.Warn("friend refresh failed", zap.Error(err))
		}
	})
}

// Load replaces the cached friend list and pending requests with ledger truth.
func (s *SocialService) Load(ctx context.Context) error {
	addrs, err := s.friendLedger.ListFriends(ctx, s.self)
	if err != nil {
		s.setError(err)
		return fmt.Errorf("list friends: %w", err)
	}
	incoming, err := s.friendLedger.ListIncomingRequests(ctx, s.self)
	if err != nil {
		s.setError(err)
		return fmt.Errorf("list incoming requests: %w", err)
	}
	outgoing, err := s.friendLedger.ListOutgoingRequests(ctx, s.self)
	if err != nil {
		s.setError(err)
		return fmt.Errorf("list outgoing requests: %w", err)
	}

	friends := make([]*models.Profile, 0, len(addrs))
	for _, addr := range addrs {
		friends = append(friends, s.identity.Resolve(ctx, addr))
	}

	s.mu.Lock()
	s.friends = friends
	s.incoming = incoming
	s.outgoing = outgoing
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// ListFriends returns a snapshot of the friend list.
func (s *SocialService) ListFriends() []*models.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.Profile(nil), s.friends...)
}

// ListPendingRequests returns snapshots of incoming and outgoing pending
// requests.
func (s *SocialService) ListPendingRequests() (incoming, outgoing []models.FriendRequest) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.FriendRequest(nil), s.incoming...),
		append([]models.FriendRequest(nil), s.outgoing...)
}

func (s *SocialService) isFriend(address string) bool {
	address = strings.ToLower(address)
	for _, f := range s.friends {
		if strings.ToLower(f.Address) == address {
			return true
		}
	}
	return false
}

func (s *SocialService) hasOutgoing(to string) bool {
	to = strings.ToLower(to)
	for _, r := range s.outgoing {
		if strings.ToLower(r.ToAddress) == to {
			return true
		}
	}
	return false
}

// SendRequest sends a friend request. All preconditions are checked before
// the ledger write so a doomed request never consumes a transaction.
func (s *SocialService) SendRequest(ctx context.Context, to, message string) error {
	if strings.EqualFold(to, s.self) {
		return models.ErrSelfRequest
	}
	if len(message) > s.cfg.FriendMessageMaxLen {
		return models.ErrMessageTooLong
	}

	s.mu.RLock()
	alreadyFriends := s.isFriend(to)
	duplicate := s.hasOutgoing(to)
	s.mu.RUnlock()

	if alreadyFriends {
		return models.ErrAlreadyFriends
	}
	if duplicate {
		return models.ErrDuplicateRequest
	}

	handle, err := s.friendLedger.SendRequest(ctx, to, message)
	if err != nil {
		s.setError(err)
		return fmt.Errorf("send friend request: %w", err)
	}

	req := models.FriendRequest{
		FromAddress: s.self,
		ToAddress:   strings.ToLower(to),
		Message:     message,
		Status:      models.RequestStatusPending,
		SentAt:      time.Now(),
	}
	s.mu.Lock()
	s.outgoing = append(s.outgoing, req)
	s.mu.Unlock()

	s.mutations.add("friend_request_send", handle.Hash, func() {
		s.dropOutgoing(to)
	})
	s.scheduleRefresh()

	s.log.Info("friend request sent", zap.String("to", to))
	return nil
}

// Accept accepts a pending incoming request. The request leaves the pending
// view immediately; ledger truth is reconciled after the settle delay.
func (s *SocialService) Accept(ctx context.Context, from string) error {
	removed, ok := s.takeIncoming(from)
	if !ok {
		return models.ErrNotFound
	}

	handle, err := s.friendLedger.AcceptRequest(ctx, from)
	if err != nil {
		s.restoreIncoming(removed)
		s.setError(err)
		return fmt.Errorf("accept friend request: %w", err)
	}

	// Optimistically surface the new friend; the refresh corrects drift.
	profile := s.identity.Resolve(ctx, from)
	s.mu.Lock()
	s.friends = append(s.friends, profile)
	s.mu.Unlock()

	s.mutations.add("friend_accept", handle.Hash, func() {
		s.dropFriend(from)
		s.restoreIncoming(removed)
	})
	s.scheduleRefresh()

	s.log.Info("friend request accepted", zap.String("from", from))
	return nil
}

// Decline declines a pending incoming request.
func (s *SocialService) Decline(ctx context.Context, from string) error {
	removed, ok := s.takeIncoming(from)
	if !ok {
		return models.ErrNotFound
	}

	handle, err := s.friendLedger.DeclineRequest(ctx, from)
	if err != nil {
		s.restoreIncoming(removed)
		s.setError(err)
		return fmt.Errorf("decline friend request: %w", err)
	}

	s.mutations.add("friend_decline", handle.Hash, func() {
		s.restoreIncoming(removed)
	})
	s.scheduleRefresh()
	return nil
}

// Remove removes a friend. Fails with NotFound when the edge does not exist
// in the current snapshot, without issuing a write.
func (s *SocialService) Remove(ctx context.Context, friend string) error {
	s.mu.Lock()
	idx := -1
	for i, f := range s.friends {
		if strings.EqualFold(f.Address, friend) {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return models.ErrNotFound
	}
	removed := s.friends[idx]
	s.friends = append(s.friends[:idx], s.friends[idx+1:]...)
	s.mu.Unlock()

	handle, err := s.friendLedger.RemoveFriend(ctx, friend)
	if err != nil {
		s.mu.Lock()
		s.friends = append(s.friends, removed)
		s.mu.Unlock()
		s.setError(err)
		return fmt.Errorf("remove friend: %w", err)
	}

	s.mutations.add("friend_remove", handle.Hash, func() {
		s.mu.Lock()
		s.friends = append(s.friends, removed)
		s.mu.Unlock()
	})
	s.scheduleRefresh()

	s.log.Info("friend removed", zap.String("friend", friend))
	return nil
}

// Suggestions returns up to limit registered profiles that are not the
// current user, not friends, and not already in a pending request.
func (s *SocialService) Suggestions(ctx context.Context, limit int) ([]*models.Profile, error) {
	if limit <= 0 {
		return nil, nil
	}

	// Over-fetch to survive filtering.
	addrs, err := s.identity.identityLedger.ListRegistered(ctx, 0, limit*4)
	if err != nil {
		return nil, fmt.Errorf("list registered: %w", err)
	}

	s.mu.RLock()
	excluded := map[string]bool{s.self: true}
	for _, f := range s.friends {
		excluded[strings.ToLower(f.Address)] = true
	}
	for _, r := range s.incoming {
		excluded[strings.ToLower(r.FromAddress)] = true
	}
	for _, r := range s.outgoing {
		excluded[strings.ToLower(r.ToAddress)] = true
	}
	s.mu.RUnlock()

	var out []*models.Profile
	for _, addr := range addrs {
		if excluded[strings.ToLower(addr)] {
			continue
		}
		p := s.identity.Resolve(ctx, addr)
		if !p.IsRegistered {
			continue
		}
		out = append(out, p)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// SetTxTracker wires confirmation watching for submitted writes.
func (s *SocialService) SetTxTracker(t TxTracker) {
	s.mutations.setTracker(t)
}

// OnTxResult resolves a tracked mutation from the confirmation watcher.
func (s *SocialService) OnTxResult(mutationID string, confirmed bool) {
	s.mutations.resolve(mutationID, confirmed)
	if confirmed {
		s.scheduleRefresh()
	}
}

// LastError reports the most recent ledger failure, or nil.
func (s *SocialService) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *SocialService) setError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// --- snapshot mutation helpers ---

func (s *SocialService) takeIncoming(from string) (models.FriendRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.incoming {
		if strings.EqualFold(r.FromAddress, from) {
			removed := r
			s.incoming = append(s.incoming[:i], s.incoming[i+1:]...)
			return removed, true
		}
	}
	return models.FriendRequest{}, false
}

func (s *SocialService) restoreIncoming(req models.FriendRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.incoming {
		if strings.EqualFold(r.FromAddress, req.FromAddress) {
			return
		}
	}
	s.incoming = append(s.incoming, req)
}

func (s *SocialService) dropOutgoing(to string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.outgoing {
		if strings.EqualFold(r.ToAddress, to) {
			s.outgoing = append(s.outgoing[:i], s.outgoing[i+1:]...)
			return
		}
	}
}

func (s *SocialService) dropFriend(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.friends {
		if strings.EqualFold(f.Address, address) {
			s.friends = append(s.friends[:i], s.friends[i+1:]...)
			return
		}
	}
}
