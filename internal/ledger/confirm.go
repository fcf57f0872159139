package ledger

import (
	"context"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
	"go.uber.org/zap"
)

const (
	confirmBatchSize = 100
	trackTimeout     = 2 * time.Minute
)

// ConfirmResult reports the outcome of one tracked submission.
type ConfirmResult struct {
	MutationID string
	TxHash     string
	Confirmed  bool
	LT         uint64
}

// Confirmer resolves submitted writes to confirmed/failed by polling the
// ledger contracts' transaction history. A tracked handle is confirmed when a
// transaction whose in-message body embeds the submitted payload hash appears,
// and failed when the track timeout passes without one.
type Confirmer struct {
	api      ton.APIClientWrapped
	accounts []*address.Address
	interval time.Duration
	log      *zap.Logger

	mu      sync.Mutex
	tracked map[string]trackedTx // payload hash (hex) -> tracking info
	cursors map[string]uint64    // account -> last seen LT
	onTx    func(*tlb.Transaction)

	results chan ConfirmResult
}

type trackedTx struct {
	mutationID  string
	submittedAt time.Time
}

func NewConfirmer(api ton.APIClientWrapped, accounts []*address.Address, interval time.Duration, log *zap.Logger) *Confirmer {
	return &Confirmer{
		api:      api,
		accounts: accounts,
		interval: interval,
		log:      log,
		tracked:  make(map[string]trackedTx),
		cursors:  make(map[string]uint64),
		results:  make(chan ConfirmResult, 64),
	}
}

// OnTransaction registers a callback invoked for every new transaction seen
// on the watched accounts, tracked or not. Set before Run.
func (c *Confirmer) OnTransaction(cb func(*tlb.Transaction)) {
	c.onTx = cb
}

// Track registers a submitted write for confirmation watching.
func (c *Confirmer) Track(handle TxHandle, mutationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracked[handle.Hash] = trackedTx{mutationID: mutationID, submittedAt: time.Now()}
}

// Results delivers one ConfirmResult per tracked submission.
func (c *Confirmer) Results() <-chan ConfirmResult { return c.results }

// Run polls until the context is cancelled.
func (c *Confirmer) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, acc := range c.accounts {
				if err := c.pollAccount(ctx, acc); err != nil {
					c.log.Warn("confirm poll failed", zap.String("account", acc.String()), zap.Error(err))
				}
			}
			c.expireStale()
		}
	}
}

func (c *Confirmer) pollAccount(ctx context.Context, addr *address.Address) error {
	block, err := c.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return err
	}
	account, err := c.api.GetAccount(ctx, block, addr)
	if err != nil {
		return err
	}
	if account == nil || !account.IsActive || account.LastTxLT == 0 {
		return nil
	}

	key := addr.String()
	c.mu.Lock()
	cursor, seen := c.cursors[key]
	c.mu.Unlock()

	if !seen {
		// First poll: start at the account head, only future txs matter.
		c.mu.Lock()
		c.cursors[key] = account.LastTxLT
		c.mu.Unlock()
		return nil
	}
	if account.LastTxLT <= cursor {
		return nil
	}

	txs, err := c.fetchNewTransactions(ctx, addr, account, cursor)
	if err != nil {
		return err
	}

	for _, tx := range txs {
		if c.onTx != nil {
			c.onTx(tx)
		}
		c.matchTx(tx)
	}

	c.mu.Lock()
	c.cursors[key] = account.LastTxLT
	c.mu.Unlock()
	return nil
}

// fetchNewTransactions retrieves all transactions with LT > cursorLT,
// paginating backwards until the cursor and returning chronological order.
func (c *Confirmer) fetchNewTransactions(ctx context.Context, addr *address.Address, account *tlb.Account, cursorLT uint64) ([]*tlb.Transaction, error) {
	var allTxs []*tlb.Transaction

	lt := account.LastTxLT
	hash := account.LastTxHash

	for {
		txs, err := c.api.ListTransactions(ctx, addr, uint32(confirmBatchSize), lt, hash)
		if err != nil {
			return nil, err
		}
		if len(txs) == 0 {
			break
		}

		reachedCursor := false
		for _, tx := range txs {
			if tx.LT <= cursorLT {
				reachedCursor = true
				continue
			}
			allTxs = append(allTxs, tx)
		}

		if reachedCursor || len(txs) < confirmBatchSize {
			break
		}

		oldest := txs[0]
		if oldest.PrevTxLT == 0 {
			break
		}
		lt = oldest.PrevTxLT
		hash = oldest.PrevTxHash
	}

	sort.Slice(allTxs, func(i, j int) bool {
		return allTxs[i].LT < allTxs[j].LT
	})

	return allTxs, nil
}

// matchTx checks whether the transaction's in-message carries a payload we
// are tracking. External message bodies are signature(512 bits) + payload ref.
func (c *Confirmer) matchTx(tx *tlb.Transaction) {
	if tx.IO.In == nil {
		return
	}

	extMsg, ok := tx.IO.In.Msg.(*tlb.ExternalMessage)
	if !ok || extMsg == nil || extMsg.Body == nil {
		return
	}

	sl := extMsg.Body.BeginParse()
	if _, err := sl.LoadSlice(512); err != nil {
		return
	}
	payload, err := sl.LoadRefCell()
	if err != nil {
		return
	}

	hash := hex.EncodeToString(payload.Hash())

	c.mu.Lock()
	tracked, ok := c.tracked[hash]
	if ok {
		delete(c.tracked, hash)
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	c.log.Info("ledger write confirmed",
		zap.String("mutation_id", tracked.mutationID),
		zap.Uint64("lt", tx.LT),
	)
	c.results <- ConfirmResult{
		MutationID: tracked.mutationID,
		TxHash:     hash,
		Confirmed:  true,
		LT:         tx.LT,
	}
}

// expireStale fails tracked submissions that never appeared on chain.
func (c *Confirmer) expireStale() {
	now := time.Now()

	c.mu.Lock()
	var expired []ConfirmResult
	for hash, tr := range c.tracked {
		if now.Sub(tr.submittedAt) > trackTimeout {
			delete(c.tracked, hash)
			expired = append(expired, ConfirmResult{MutationID: tr.mutationID, TxHash: hash, Confirmed: false})
		}
	}
	c.mu.Unlock()

	for _, r := range expired {
		c.log.Warn("ledger write not confirmed within timeout", zap.String("mutation_id", r.MutationID))
		c.results <- r
	}
}
