package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/chainchat/syncd/internal/config"
	"github.com/chainchat/syncd/internal/events"
	"github.com/chainchat/syncd/internal/ledger"
	"github.com/chainchat/syncd/internal/models"
)

// activityFeedMax caps the in-memory activity feed.
const activityFeedMax = 100

// RewardService is a read-mostly projection of the token ledger: balance,
// pending rewards, and daily-claim state. Claims and burns are the only
// writes; each applies an optimistic adjustment that the next refresh
// overwrites with ledger truth. A periodic job keeps the projection fresh.
type RewardService struct {
	tokenLedger ledger.TokenLedger
	cfg         *config.Config
	log         *zap.Logger
	self        string

	mu       sync.RWMutex
	stats    models.TokenStats
	activity []models.ActivityRecord
	lastErr  error

	mutations *mutationLog
	sched     gocron.Scheduler
}

func NewRewardService(
	tokenLedger ledger.TokenLedger,
	bridge *events.Bridge,
	cfg *config.Config,
	log *zap.Logger,
	self string,
) *RewardService {
	s := &RewardService{
		tokenLedger: tokenLedger,
		cfg:         cfg,
		log:         log,
		self:        self,
		mutations:   newMutationLog(log),
	}

	if bridge != nil {
		delayed := func(events.Event) {
			time.AfterFunc(cfg.SettleDelay, func() {
				if err := s.Refresh(context.Background()); err != nil {
					s.log.Warn("token refresh failed", zap.Error(err))
				}
			})
		}
		bridge.Subscribe(events.EventTokenRewarded, self, delayed)
		bridge.Subscribe(events.EventTokenDailyClaimed, self, delayed)
	}

	return s
}

// StartRefreshJob schedules a periodic refresh of the token projection.
func (s *RewardService) StartRefreshJob() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(s.cfg.RewardRefreshInterval),
		gocron.NewTask(func() {
			if err := s.Refresh(context.Background()); err != nil {
				s.log.Warn("periodic token refresh failed", zap.Error(err))
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("schedule token refresh: %w", err)
	}
	sched.Start()
	s.sched = sched
	return nil
}

// StopRefreshJob shuts the periodic refresh down.
func (s *RewardService) StopRefreshJob() {
	if s.sched != nil {
		if err := s.sched.Shutdown(); err != nil {
			s.log.Warn("scheduler shutdown failed", zap.Error(err))
		}
	}
}

// Refresh replaces the cached stats with ledger truth.
func (s *RewardService) Refresh(ctx context.Context) error {
	stats, err := s.tokenLedger.GetStats(ctx, s.self)
	if err != nil {
		s.setError(err)
		return fmt.Errorf("get token stats: %w", err)
	}
	s.mu.Lock()
	s.stats = *stats
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// Stats returns the current projection.
func (s *RewardService) Stats() models.TokenStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// RewardFor returns the configured reward amount for an activity kind.
func (s *RewardService) RewardFor(ctx context.Context, activityKind string) (int64, error) {
	amount, err := s.tokenLedger.RewardAmount(ctx, activityKind)
	if err != nil {
		return 0, fmt.Errorf("reward amount: %w", err)
	}
	return amount, nil
}

// ClaimDaily claims the daily login reward. Claimability is re-read from the
// ledger right before the write so a stale projection cannot waste a
// transaction.
func (s *RewardService) ClaimDaily(ctx context.Context) error {
	fresh, err := s.tokenLedger.GetStats(ctx, s.self)
	if err != nil {
		s.setError(err)
		return fmt.Errorf("get token stats: %w", err)
	}
	if !fresh.CanClaimDaily {
		return models.ErrAlreadyClaimedToday
	}

	handle, err := s.tokenLedger.ClaimDaily(ctx)
	if err != nil {
		s.setError(err)
		return fmt.Errorf("claim daily reward: %w", err)
	}

	s.mu.Lock()
	prev := s.stats
	s.stats.CanClaimDaily = false
	s.stats.LastClaimTime = time.Now()
	s.stats.TimeUntilNextClaim = 24 * time.Hour
	s.mu.Unlock()

	s.recordActivity(models.ActivityDailyLogin, 0)
	s.mutations.add("token_claim_daily", handle.Hash, func() {
		s.mu.Lock()
		s.stats.CanClaimDaily = prev.CanClaimDaily
		s.stats.LastClaimTime = prev.LastClaimTime
		s.stats.TimeUntilNextClaim = prev.TimeUntilNextClaim
		s.mu.Unlock()
	})
	s.scheduleRefresh()

	s.log.Info("daily reward claimed")
	return nil
}

// ClaimPending moves accrued pending rewards into the balance.
func (s *RewardService) ClaimPending(ctx context.Context) error {
	s.mu.RLock()
	pending := s.stats.PendingRewards
	s.mu.RUnlock()
	if pending <= 0 {
		return models.ErrNotFound
	}

	handle, err := s.tokenLedger.ClaimPending(ctx)
	if err != nil {
		s.setError(err)
		return fmt.Errorf("claim pending rewards: %w", err)
	}

	s.mu.Lock()
	s.stats.Balance += pending
	s.stats.PendingRewards = 0
	s.mu.Unlock()

	s.mutations.add("token_claim_pending", handle.Hash, func() {
		s.mu.Lock()
		s.stats.Balance -= pending
		s.stats.PendingRewards += pending
		s.mu.Unlock()
	})
	s.scheduleRefresh()
	return nil
}

// Burn destroys amountNano tokens from the balance. The cached balance is
// checked before the write; an over-burn fails locally without a transaction.
func (s *RewardService) Burn(ctx context.Context, amountNano int64) error {
	if amountNano <= 0 {
		return fmt.Errorf("burn amount must be positive")
	}
	s.mu.RLock()
	balance := s.stats.Balance
	s.mu.RUnlock()
	if amountNano > balance {
		return models.ErrInsufficientBalance
	}

	handle, err := s.tokenLedger.Burn(ctx, amountNano)
	if err != nil {
		s.setError(err)
		return fmt.Errorf("burn tokens: %w", err)
	}

	s.mu.Lock()
	s.stats.Balance -= amountNano
	s.mu.Unlock()

	s.mutations.add("token_burn", handle.Hash, func() {
		s.mu.Lock()
		s.stats.Balance += amountNano
		s.mu.Unlock()
	})
	s.scheduleRefresh()

	s.log.Info("tokens burned", zap.Int64("amount_nano", amountNano))
	return nil
}

// RecordActivity appends a locally synthesized feed entry for a
// reward-earning action. amountNano may be zero when the reward size is not
// known client-side.
func (s *RewardService) RecordActivity(kind string, amountNano int64) {
	s.recordActivity(kind, amountNano)
}

func (s *RewardService) recordActivity(kind string, amountNano int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = append(s.activity, models.ActivityRecord{
		Kind:      kind,
		Amount:    amountNano,
		Timestamp: time.Now(),
	})
	if len(s.activity) > activityFeedMax {
		s.activity = s.activity[len(s.activity)-activityFeedMax:]
	}
}

// Activity returns the feed, newest last.
func (s *RewardService) Activity() []models.ActivityRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ActivityRecord(nil), s.activity...)
}

// SetTxTracker wires confirmation watching for submitted writes.
func (s *RewardService) SetTxTracker(t TxTracker) {
	s.mutations.setTracker(t)
}

// OnTxResult resolves a tracked token mutation from the confirmation watcher.
func (s *RewardService) OnTxResult(mutationID string, confirmed bool) {
	s.mutations.resolve(mutationID, confirmed)
	if confirmed {
		s.scheduleRefresh()
	}
}

// LastError reports the most recent ledger failure, or nil.
func (s *RewardService) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *RewardService) setError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *RewardService) scheduleRefresh() {
	time.AfterFunc(s.cfg.SettleDelay, func() {
		if err := s.Refresh(context.Background()); err != nil {
			s.log.Warn("token refresh failed", zap.Error(err))
		}
	})
}
