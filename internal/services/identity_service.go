package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/chainchat/syncd/internal/config"
	"github.com/chainchat/syncd/internal/content"
	"github.com/chainchat/syncd/internal/events"
	"github.com/chainchat/syncd/internal/ledger"
	"github.com/chainchat/syncd/internal/models"
)

const profileCacheSize = 1024

// IdentityService resolves addresses to profiles with a read-through LRU
// cache. A ledger read failure never fails the caller: the service falls
// back to the unregistered sentinel and surfaces the error on LastError.
type IdentityService struct {
	identityLedger ledger.IdentityLedger
	store          content.Store
	cfg            *config.Config
	log            *zap.Logger
	self           string

	cache *lru.Cache[string, *models.Profile]

	mu      sync.RWMutex
	lastErr error
}

func NewIdentityService(
	identityLedger ledger.IdentityLedger,
	store content.Store,
	bridge *events.Bridge,
	cfg *config.Config,
	log *zap.Logger,
	self string,
) *IdentityService {
	cache, _ := lru.New[string, *models.Profile](profileCacheSize)
	s := &IdentityService{
		identityLedger: identityLedger,
		store:          store,
		cfg:            cfg,
		log:            log,
		self:           strings.ToLower(self),
		cache:          cache,
	}

	// A change to our own identity triggers one delayed refresh per event,
	// giving the underlying write time to finalize. Not a poll loop.
	if bridge != nil {
		refreshSelf := func(events.Event) {
			time.AfterFunc(cfg.SettleDelay, func() {
				s.Refresh(context.Background(), self)
			})
		}
		bridge.Subscribe(events.EventRegistration, self, refreshSelf)
		bridge.Subscribe(events.EventProfileUpdated, self, refreshSelf)
		bridge.Subscribe(events.EventAvatarUpdated, self, refreshSelf)
	}

	return s
}

// Resolve returns the profile for an address, reading through the cache.
// Unregistered addresses resolve to a sentinel profile with an empty
// username, not an error.
func (s *IdentityService) Resolve(ctx context.Context, address string) *models.Profile {
	key := strings.ToLower(address)
	if p, ok := s.cache.Get(key); ok {
		return p
	}
	return s.fetch(ctx, address)
}

// Refresh bypasses the cache and re-reads the profile from the ledger.
func (s *IdentityService) Refresh(ctx context.Context, address string) *models.Profile {
	return s.fetch(ctx, address)
}

func (s *IdentityService) fetch(ctx context.Context, address string) *models.Profile {
	key := strings.ToLower(address)

	p, err := s.identityLedger.GetProfile(ctx, address)
	if err != nil {
		s.log.Warn("profile read failed", zap.String("address", address), zap.Error(err))
		s.setError(err)
		// Transient read failure must not crash callers; serve the sentinel
		// without caching it so the next resolve retries.
		sentinel := models.UnregisteredProfile(address)
		sentinel.AvatarURL = content.PlaceholderAvatarURL(key)
		return sentinel
	}
	s.setError(nil)

	p.AvatarURL = s.avatarURL(p)
	s.cache.Add(key, p)
	return p
}

// avatarURL resolves the profile's avatar reference through the content
// store, or derives a stable placeholder when there is none.
func (s *IdentityService) avatarURL(p *models.Profile) string {
	if p.AvatarRef != "" && s.store != nil {
		return s.store.ResolveURL(p.AvatarRef)
	}
	seed := p.Username
	if seed == "" {
		seed = strings.ToLower(p.Address)
	}
	return content.PlaceholderAvatarURL(seed)
}

// ResolveByUsername maps a registered username to its address.
func (s *IdentityService) ResolveByUsername(ctx context.Context, username string) (string, error) {
	return s.identityLedger.ResolveUsername(ctx, username)
}

// Invalidate drops a cached profile so the next resolve re-reads it.
func (s *IdentityService) Invalidate(address string) {
	s.cache.Remove(strings.ToLower(address))
}

// LastError reports the most recent ledger read failure, or nil.
func (s *IdentityService) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *IdentityService) setError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// Self returns the current user's address (lowercase).
func (s *IdentityService) Self() string { return s.self }

// Register submits the current user's registration with the given username.
// The cached profile is updated optimistically and reconciled by the delayed
// self-refresh.
func (s *IdentityService) Register(ctx context.Context, username string) error {
	if username == "" {
		return fmt.Errorf("username required")
	}
	if _, err := s.identityLedger.Register(ctx, username); err != nil {
		s.setError(err)
		return fmt.Errorf("register: %w", err)
	}

	p := &models.Profile{
		Address:      s.self,
		Username:     username,
		RegisteredAt: time.Now(),
		IsRegistered: true,
	}
	p.AvatarURL = s.avatarURL(p)
	s.cache.Add(s.self, p)

	s.scheduleSelfRefresh()
	s.log.Info("registration submitted", zap.String("username", username))
	return nil
}

// UpdateBio submits a bio change for the current user.
func (s *IdentityService) UpdateBio(ctx context.Context, bio string) error {
	if _, err := s.identityLedger.UpdateBio(ctx, bio); err != nil {
		s.setError(err)
		return fmt.Errorf("update bio: %w", err)
	}
	if p, ok := s.cache.Get(s.self); ok {
		cp := *p
		cp.Bio = bio
		s.cache.Add(s.self, &cp)
	}
	s.scheduleSelfRefresh()
	return nil
}

// UpdateAvatar submits an avatar change for the current user. avatarRef is a
// content-store reference, or empty to fall back to the placeholder.
func (s *IdentityService) UpdateAvatar(ctx context.Context, avatarRef string) error {
	if _, err := s.identityLedger.UpdateAvatar(ctx, avatarRef); err != nil {
		s.setError(err)
		return fmt.Errorf("update avatar: %w", err)
	}
	if p, ok := s.cache.Get(s.self); ok {
		cp := *p
		cp.AvatarRef = avatarRef
		cp.AvatarURL = s.avatarURL(&cp)
		s.cache.Add(s.self, &cp)
	}
	s.scheduleSelfRefresh()
	return nil
}

func (s *IdentityService) scheduleSelfRefresh() {
	time.AfterFunc(s.cfg.SettleDelay, func() {
		s.Refresh(context.Background(), s.self)
	})
}
