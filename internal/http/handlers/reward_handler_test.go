package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chainchat/syncd/internal/config"
	"github.com/chainchat/syncd/internal/mocks"
	"github.com/chainchat/syncd/internal/models"
	"github.com/chainchat/syncd/internal/services"
)

func TestGetStatsRendersDisplayAmounts(t *testing.T) {
	tokens := mocks.NewFakeTokenLedger()
	tokens.SetStats(models.TokenStats{
		Balance:        1_500_000_000,
		PendingRewards: 250_000_000,
	})
	cfg := &config.Config{SettleDelay: time.Hour}
	rewards := services.NewRewardService(tokens, nil, cfg, zap.NewNop(), "0:aaaa")
	require.NoError(t, rewards.Refresh(context.Background()))

	app := fiber.New()
	h := NewRewardHandler(rewards, zap.NewNop())
	app.Get("/rewards", h.GetStats)

	resp, err := app.Test(httptest.NewRequest("GET", "/rewards", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		OK   bool `json:"ok"`
		Data struct {
			BalanceDisplay string `json:"balance_display"`
			PendingDisplay string `json:"pending_display"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.True(t, body.OK)
	require.Equal(t, "1.5", body.Data.BalanceDisplay)
	require.Equal(t, "0.25", body.Data.PendingDisplay)
}
