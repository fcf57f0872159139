package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/chainchat/syncd/internal/http/dto"
	"github.com/chainchat/syncd/internal/ledger"
	"github.com/chainchat/syncd/internal/services"
)

type RewardHandler struct {
	rewards *services.RewardService
	log     *zap.Logger
}

func NewRewardHandler(rewards *services.RewardService, log *zap.Logger) *RewardHandler {
	return &RewardHandler{rewards: rewards, log: log}
}

// GetStats returns the token projection and activity feed.
// GET /rewards
func (h *RewardHandler) GetStats(c *fiber.Ctx) error {
	stats := h.rewards.Stats()
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.StatsResponse{
		Stats:          stats,
		BalanceDisplay: ledger.FormatTokenAmount(stats.Balance),
		PendingDisplay: ledger.FormatTokenAmount(stats.PendingRewards),
		Activity:       h.rewards.Activity(),
	}})
}

// Refresh re-reads the projection from the ledger.
// POST /rewards/refresh
func (h *RewardHandler) Refresh(c *fiber.Ctx) error {
	if err := h.rewards.Refresh(c.Context()); err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: h.rewards.Stats()})
}

// ClaimDaily claims the daily login reward.
// POST /rewards/claim-daily
func (h *RewardHandler) ClaimDaily(c *fiber.Ctx) error {
	if err := h.rewards.ClaimDaily(c.Context()); err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// ClaimPending claims accrued pending rewards.
// POST /rewards/claim-pending
func (h *RewardHandler) ClaimPending(c *fiber.Ctx) error {
	if err := h.rewards.ClaimPending(c.Context()); err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// Burn burns tokens from the balance.
// POST /rewards/burn
func (h *RewardHandler) Burn(c *fiber.Ctx) error {
	var req dto.BurnRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	amount, err := ledger.ParseTokenAmount(req.Amount)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	if err := h.rewards.Burn(c.Context(), amount); err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
