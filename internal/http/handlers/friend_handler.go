package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/chainchat/syncd/internal/http/dto"
	"github.com/chainchat/syncd/internal/services"
)

type FriendHandler struct {
	social *services.SocialService
	log    *zap.Logger
}

func NewFriendHandler(social *services.SocialService, log *zap.Logger) *FriendHandler {
	return &FriendHandler{social: social, log: log}
}

// ListFriends returns the cached friend list.
// GET /friends
func (h *FriendHandler) ListFriends(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: h.social.ListFriends()})
}

// ListRequests returns pending incoming and outgoing requests.
// GET /friends/requests
func (h *FriendHandler) ListRequests(c *fiber.Ctx) error {
	incoming, outgoing := h.social.ListPendingRequests()
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.PendingRequestsResponse{
		Incoming: incoming,
		Outgoing: outgoing,
	}})
}

// SendRequest sends a friend request.
// POST /friends/requests
func (h *FriendHandler) SendRequest(c *fiber.Ctx) error {
	var req dto.FriendRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.To == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "to is required"})
	}
	if err := h.social.SendRequest(c.Context(), req.To, req.Message); err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// Accept accepts a pending request from the given address.
// POST /friends/requests/:address/accept
func (h *FriendHandler) Accept(c *fiber.Ctx) error {
	if err := h.social.Accept(c.Context(), c.Params("address")); err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// Decline declines a pending request from the given address.
// POST /friends/requests/:address/decline
func (h *FriendHandler) Decline(c *fiber.Ctx) error {
	if err := h.social.Decline(c.Context(), c.Params("address")); err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// Remove removes an existing friend.
// DELETE /friends/:address
func (h *FriendHandler) Remove(c *fiber.Ctx) error {
	if err := h.social.Remove(c.Context(), c.Params("address")); err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// Suggestions returns friend suggestions.
// GET /friends/suggestions?limit=10
func (h *FriendHandler) Suggestions(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "10"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	suggestions, err := h.social.Suggestions(c.Context(), limit)
	if err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: suggestions})
}
