package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chainchat/syncd/internal/config"
	"github.com/chainchat/syncd/internal/content"
	"github.com/chainchat/syncd/internal/db"
	"github.com/chainchat/syncd/internal/events"
	apphttp "github.com/chainchat/syncd/internal/http"
	"github.com/chainchat/syncd/internal/http/handlers"
	"github.com/chainchat/syncd/internal/ledger"
	"github.com/chainchat/syncd/internal/preview"
	"github.com/chainchat/syncd/internal/push"
	"github.com/chainchat/syncd/internal/services"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ledger
	tonClient, err := ledger.Connect(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to connect to ton", zap.Error(err))
	}

	// Redis (optional; events fall back to the in-process bus without it)
	var rdb *redis.Client
	var publisher events.Publisher
	var subscriber events.Subscriber
	if cfg.RedisURL != "" {
		rdb, err = db.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		publisher = events.NewRedisPublisher(rdb, log)
		subscriber = events.NewRedisSubscriber(rdb, log)
	} else {
		bus := events.NewMemoryBus()
		publisher = bus
		subscriber = bus
		log.Warn("no redis url, using in-process event bus")
	}
	_ = publisher // writes come from the confirm watcher, not this process

	bridge, err := events.NewBridge(ctx, subscriber, log)
	if err != nil {
		log.Fatal("failed to start event bridge", zap.Error(err))
	}

	// Relay push channel
	channel, err := push.NewWSChannel(ctx, cfg.RelayURL, cfg.RelayReconnectMax, log)
	if err != nil {
		log.Fatal("failed to connect to relay", zap.Error(err))
	}
	defer channel.Close()

	// Content store
	var store content.Store
	if cfg.PinataJWT != "" {
		store = content.NewPinataStore(cfg.PinataJWT, cfg.PinataGatewayURL, log)
	} else {
		baseURL := fmt.Sprintf("%s/%s", cfg.S3Endpoint, cfg.S3Bucket)
		store, err = content.NewS3Store(ctx, cfg.S3Endpoint, cfg.S3Bucket, cfg.S3AccessKeyID, cfg.S3SecretKey, baseURL, log)
		if err != nil {
			log.Fatal("failed to create content store", zap.Error(err))
		}
	}

	previews := preview.NewFetcher(0, 0, log)

	// Services
	self := cfg.WalletAddress
	identity := services.NewIdentityService(tonClient, store, bridge, cfg, log, self)
	social := services.NewSocialService(tonClient, identity, bridge, cfg, log, self)
	chat := services.NewChatService(tonClient, identity, social, channel, store, previews, bridge, cfg, log, self)
	rewards := services.NewRewardService(tonClient, bridge, cfg, log, self)

	// Confirmation watcher
	confirmer := ledger.NewConfirmer(tonClient.API(), tonClient.ContractAddresses(), cfg.ConfirmPollInterval, log)
	social.SetTxTracker(confirmer)
	chat.SetTxTracker(confirmer)
	rewards.SetTxTracker(confirmer)
	go confirmer.Run(ctx)
	go func() {
		for res := range confirmer.Results() {
			social.OnTxResult(res.MutationID, res.Confirmed)
			chat.OnTxResult(res.MutationID, res.Confirmed)
			rewards.OnTxResult(res.MutationID, res.Confirmed)
		}
	}()

	// Initial sync
	if err := social.Load(ctx); err != nil {
		log.Warn("initial friend load failed", zap.Error(err))
	}
	if err := chat.LoadConversations(ctx); err != nil {
		log.Warn("initial conversation load failed", zap.Error(err))
	}
	if err := rewards.Refresh(ctx); err != nil {
		log.Warn("initial token refresh failed", zap.Error(err))
	}
	if err := rewards.StartRefreshJob(); err != nil {
		log.Fatal("failed to start reward refresh job", zap.Error(err))
	}
	defer rewards.StopRefreshJob()

	// Handlers
	authHandler := handlers.NewAuthHandler(cfg, rdb, log)
	profileHandler := handlers.NewProfileHandler(identity, log)
	friendHandler := handlers.NewFriendHandler(social, log)
	chatHandler := handlers.NewChatHandler(chat, log)
	groupHandler := handlers.NewGroupHandler(chat, log)
	rewardHandler := handlers.NewRewardHandler(rewards, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	if err := wsHub.Start(ctx); err != nil {
		log.Fatal("failed to start ws hub", zap.Error(err))
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, profileHandler, friendHandler, chatHandler, groupHandler, rewardHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting sync daemon", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
