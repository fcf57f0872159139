package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chainchat/syncd/internal/ledger"
	"github.com/chainchat/syncd/internal/models"
)

// TxTracker watches a submitted write for on-chain confirmation. The
// Confirmer implements it; tests leave it unset.
type TxTracker interface {
	Track(handle ledger.TxHandle, mutationID string)
}

// mutationLog tracks optimistic mutations from submission to resolution.
// Every optimistic local change records a revert closure; when the write
// fails (or never confirms), the revert runs instead of waiting for the next
// authoritative refresh to paper over the drift.
type mutationLog struct {
	mu      sync.Mutex
	entries map[string]*models.PendingMutation
	tracker TxTracker
	log     *zap.Logger
}

func newMutationLog(log *zap.Logger) *mutationLog {
	return &mutationLog{entries: make(map[string]*models.PendingMutation), log: log}
}

// add registers a submitted mutation and returns its id.
func (m *mutationLog) add(kind, txHash string, revert func()) string {
	id := uuid.NewString()
	m.mu.Lock()
	m.entries[id] = &models.PendingMutation{
		ID:          id,
		Kind:        kind,
		TxHash:      txHash,
		Status:      models.MutationPending,
		SubmittedAt: time.Now(),
		Revert:      revert,
	}
	tracker := m.tracker
	m.mu.Unlock()

	if tracker != nil && txHash != "" {
		tracker.Track(ledger.TxHandle{Hash: txHash}, id)
	}
	return id
}

// setTracker wires confirmation watching for subsequent mutations.
func (m *mutationLog) setTracker(t TxTracker) {
	m.mu.Lock()
	m.tracker = t
	m.mu.Unlock()
}

// resolve moves a pending mutation to confirmed/failed. On failure the
// recorded revert runs. Unknown ids are ignored (the mutation may belong to
// another cache).
func (m *mutationLog) resolve(id string, confirmed bool) {
	to := models.MutationConfirmed
	if !confirmed {
		to = models.MutationFailed
	}

	m.mu.Lock()
	entry, ok := m.entries[id]
	if ok {
		delete(m.entries, id)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	if !models.IsValidMutationTransition(entry.Status, to) {
		m.log.Warn("invalid mutation transition",
			zap.String("mutation_id", id),
			zap.String("from", entry.Status),
			zap.String("to", to),
		)
		return
	}

	if !confirmed && entry.Revert != nil {
		m.log.Info("reverting optimistic mutation",
			zap.String("mutation_id", id),
			zap.String("kind", entry.Kind),
		)
		entry.Revert()
	}
}

// pendingCount reports how many mutations are still awaiting resolution.
func (m *mutationLog) pendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
