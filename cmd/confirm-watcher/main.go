package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/xssnick/tonutils-go/tlb"
	"go.uber.org/zap"

	"github.com/chainchat/syncd/internal/config"
	"github.com/chainchat/syncd/internal/db"
	"github.com/chainchat/syncd/internal/events"
	"github.com/chainchat/syncd/internal/ledger"
)

// confirm-watcher tails the ledger contracts' transaction history and
// publishes change notifications to the event bus. Sync daemons subscribe
// and refresh their caches; none of them polls the chain for changes itself.
func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.RedisURL == "" {
		log.Fatal("REDIS_URL is required")
	}
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()
	publisher := events.NewRedisPublisher(rdb, log)

	tonClient, err := ledger.Connect(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to connect to ton", zap.Error(err))
	}

	watcher := ledger.NewConfirmer(tonClient.API(), tonClient.ContractAddresses(), cfg.ConfirmPollInterval, log)
	watcher.OnTransaction(func(tx *tlb.Transaction) {
		p, ok := ledger.ParseExternalPayload(tx)
		if !ok {
			return
		}
		kind := ledger.ChangeKind(p.Op)
		if kind == "" {
			return
		}

		// Both sides of a friend or member op get their own notification;
		// caches subscribe filtered on their own address.
		for _, addr := range p.Affected() {
			event := events.Event{
				Kind:    kind,
				Address: addr,
				Payload: map[string]any{"tx_hash": p.Hash, "sender": p.Sender, "lt": tx.LT},
			}
			if err := publisher.Publish(ctx, events.StreamLedger, event); err != nil {
				log.Warn("failed to publish ledger event", zap.String("kind", kind), zap.Error(err))
				continue
			}
			log.Info("ledger change published",
				zap.String("kind", kind),
				zap.String("address", addr),
				zap.Uint64("lt", tx.LT),
			)
		}
	})

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
	}()

	log.Info("confirm watcher started",
		zap.String("network", cfg.TONNetwork),
		zap.Int("accounts", len(tonClient.ContractAddresses())),
	)
	watcher.Run(ctx)
}
