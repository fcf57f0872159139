package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chainchat/syncd/internal/config"
	"github.com/chainchat/syncd/internal/http/handlers"
	"github.com/chainchat/syncd/internal/middleware"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	profileHandler *handlers.ProfileHandler,
	friendHandler *handlers.FriendHandler,
	chatHandler *handlers.ChatHandler,
	groupHandler *handlers.GroupHandler,
	rewardHandler *handlers.RewardHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Auth (public)
	api.Post("/auth/proof-payload", authHandler.GeneratePayload)
	api.Post("/auth/login", authHandler.Login)

	if rdb != nil {
		api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))
	}

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// Profile
	protected.Get("/me", profileHandler.GetMe)
	protected.Post("/me/register", profileHandler.Register)
	protected.Put("/me/bio", profileHandler.UpdateBio)
	protected.Put("/me/avatar", profileHandler.UpdateAvatar)
	protected.Get("/profiles/by-username/:username", profileHandler.ResolveUsername)
	protected.Get("/profiles/:address", profileHandler.GetProfile)

	// Friends
	protected.Get("/friends", friendHandler.ListFriends)
	protected.Get("/friends/requests", friendHandler.ListRequests)
	protected.Post("/friends/requests", friendHandler.SendRequest)
	protected.Post("/friends/requests/:address/accept", friendHandler.Accept)
	protected.Post("/friends/requests/:address/decline", friendHandler.Decline)
	protected.Get("/friends/suggestions", friendHandler.Suggestions)
	protected.Delete("/friends/:address", friendHandler.Remove)

	// Conversations
	protected.Get("/conversations", chatHandler.ListConversations)
	protected.Post("/conversations/reload", chatHandler.Reload)
	protected.Post("/conversations/active", chatHandler.SetActive)
	protected.Get("/conversations/active/messages", chatHandler.Timeline)
	protected.Post("/conversations/active/messages", chatHandler.SendMessage)
	protected.Post("/conversations/active/files", chatHandler.SendFile)
	protected.Post("/conversations/active/typing", chatHandler.Typing)
	protected.Get("/conversations/active/typing", chatHandler.Typers)

	// Groups
	protected.Post("/groups", groupHandler.Create)
	protected.Get("/groups/public", groupHandler.ListPublic)
	protected.Get("/groups/search", groupHandler.Search)
	protected.Post("/groups/:id/join", groupHandler.Join)
	protected.Post("/groups/:id/leave", groupHandler.Leave)
	protected.Post("/groups/:id/members", groupHandler.AddMember)
	protected.Delete("/groups/:id/members/:address", groupHandler.RemoveMember)
	protected.Put("/groups/:id/info", groupHandler.UpdateInfo)
	protected.Put("/groups/:id/settings", groupHandler.UpdateSettings)

	// Rewards
	protected.Get("/rewards", rewardHandler.GetStats)
	protected.Post("/rewards/refresh", rewardHandler.Refresh)
	protected.Post("/rewards/claim-daily", rewardHandler.ClaimDaily)
	protected.Post("/rewards/claim-pending", rewardHandler.ClaimPending)
	protected.Post("/rewards/burn", rewardHandler.Burn)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
