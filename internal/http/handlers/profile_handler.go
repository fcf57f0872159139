package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/chainchat/syncd/internal/http/dto"
	"github.com/chainchat/syncd/internal/middleware"
	"github.com/chainchat/syncd/internal/services"
)

type ProfileHandler struct {
	identity *services.IdentityService
	log      *zap.Logger
}

func NewProfileHandler(identity *services.IdentityService, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{identity: identity, log: log}
}

// GetMe returns the current user's profile.
// GET /me
func (h *ProfileHandler) GetMe(c *fiber.Ctx) error {
	p := h.identity.Resolve(c.Context(), middleware.GetAddress(c))
	return c.JSON(dto.SuccessResponse{OK: true, Data: p})
}

// Register submits registration with a username.
// POST /me/register
func (h *ProfileHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if err := h.identity.Register(c.Context(), req.Username); err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// UpdateBio submits a bio change.
// PUT /me/bio
func (h *ProfileHandler) UpdateBio(c *fiber.Ctx) error {
	var req dto.UpdateBioRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if err := h.identity.UpdateBio(c.Context(), req.Bio); err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// UpdateAvatar submits an avatar reference change.
// PUT /me/avatar
func (h *ProfileHandler) UpdateAvatar(c *fiber.Ctx) error {
	var req dto.UpdateAvatarRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if err := h.identity.UpdateAvatar(c.Context(), req.AvatarRef); err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// GetProfile resolves another user's profile by address.
// GET /profiles/:address
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	p := h.identity.Resolve(c.Context(), c.Params("address"))
	return c.JSON(dto.SuccessResponse{OK: true, Data: p})
}

// ResolveUsername maps a username to a wallet address.
// GET /profiles/by-username/:username
func (h *ProfileHandler) ResolveUsername(c *fiber.Ctx) error {
	addr, err := h.identity.ResolveByUsername(c.Context(), c.Params("username"))
	if err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{"address": addr}})
}
