package handlers

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chainchat/syncd/internal/auth"
	"github.com/chainchat/syncd/internal/config"
	"github.com/chainchat/syncd/internal/http/dto"
)

const nonceTTL = 5 * time.Minute

// AuthHandler issues proof nonces and exchanges a verified TON Connect proof
// for a session JWT. Nonces live in redis when available, otherwise in
// process memory; either way a restart invalidates them.
type AuthHandler struct {
	cfg *config.Config
	rdb *redis.Client
	log *zap.Logger

	mu     sync.Mutex
	nonces map[string]time.Time // in-memory fallback: payload -> expiry
}

func NewAuthHandler(cfg *config.Config, rdb *redis.Client, log *zap.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, rdb: rdb, log: log, nonces: make(map[string]time.Time)}
}

// GeneratePayload creates a one-time nonce for the wallet to sign.
// POST /auth/proof-payload
func (h *AuthHandler) GeneratePayload(c *fiber.Ctx) error {
	payload := uuid.NewString()
	if h.rdb != nil {
		if err := h.rdb.Set(c.Context(), nonceKey(payload), "1", nonceTTL).Err(); err != nil {
			h.log.Error("failed to store proof nonce", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
		}
	} else {
		h.mu.Lock()
		h.nonces[payload] = time.Now().Add(nonceTTL)
		h.mu.Unlock()
	}
	return c.JSON(fiber.Map{"payload": payload})
}

// consumeNonce burns a nonce; a nonce is valid exactly once.
func (h *AuthHandler) consumeNonce(c *fiber.Ctx, payload string) (bool, error) {
	if h.rdb != nil {
		deleted, err := h.rdb.Del(c.Context(), nonceKey(payload)).Result()
		if err != nil {
			return false, err
		}
		return deleted > 0, nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	expiry, ok := h.nonces[payload]
	if ok {
		delete(h.nonces, payload)
	}
	return ok && time.Now().Before(expiry), nil
}

// Login verifies a TON Connect proof and returns a JWT bound to the wallet
// address.
// POST /auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.WalletLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Address == "" || req.PublicKey == "" || req.Proof.Signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "address, public_key, and proof.signature are required"})
	}

	// The nonce must be one we issued, and it burns on use.
	ok, err := h.consumeNonce(c, req.Proof.Payload)
	if err != nil {
		h.log.Error("nonce lookup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "unknown or expired proof payload"})
	}

	workchain, addrHash, err := auth.ParseRawAddress(req.Address)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	if err := auth.VerifyProof(req.PublicKey, addrHash, workchain, req.Proof, h.cfg.TONProofAllowedDomains); err != nil {
		h.log.Debug("wallet proof rejected", zap.String("address", req.Address), zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	address := strings.ToLower(req.Address)
	token, err := auth.GenerateJWT(h.cfg.JWTSecret, address, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("failed to generate jwt", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.AuthResponse{Token: token, Address: address})
}

func nonceKey(payload string) string {
	return fmt.Sprintf("syncd:nonce:%s", payload)
}
