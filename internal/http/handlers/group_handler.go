package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/chainchat/syncd/internal/http/dto"
	"github.com/chainchat/syncd/internal/services"
)

type GroupHandler struct {
	chat *services.ChatService
	log  *zap.Logger
}

func NewGroupHandler(chat *services.ChatService, log *zap.Logger) *GroupHandler {
	return &GroupHandler{chat: chat, log: log}
}

func groupID(c *fiber.Ctx) (uint64, error) {
	return strconv.ParseUint(c.Params("id"), 10, 64)
}

// Create creates a new group.
// POST /groups
func (h *GroupHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	txHash, err := h.chat.CreateGroup(c.Context(), req.Name, req.Description, req.GroupType, req.Members)
	if err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{"tx_hash": txHash}})
}

// Join joins an existing group.
// POST /groups/:id/join
func (h *GroupHandler) Join(c *fiber.Ctx) error {
	id, err := groupID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid group id"})
	}
	if err := h.chat.JoinGroup(c.Context(), id); err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// Leave leaves a group.
// POST /groups/:id/leave
func (h *GroupHandler) Leave(c *fiber.Ctx) error {
	id, err := groupID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid group id"})
	}
	if err := h.chat.LeaveGroup(c.Context(), id); err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// AddMember adds a member. Admin-only.
// POST /groups/:id/members
func (h *GroupHandler) AddMember(c *fiber.Ctx) error {
	id, err := groupID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid group id"})
	}
	var req dto.AddMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if err := h.chat.AddMember(c.Context(), id, req.Address); err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// RemoveMember removes a member. Admin-only.
// DELETE /groups/:id/members/:address
func (h *GroupHandler) RemoveMember(c *fiber.Ctx) error {
	id, err := groupID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid group id"})
	}
	if err := h.chat.RemoveMember(c.Context(), id, c.Params("address")); err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// UpdateInfo updates the group's name, description, and avatar. Admin-only.
// PUT /groups/:id/info
func (h *GroupHandler) UpdateInfo(c *fiber.Ctx) error {
	id, err := groupID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid group id"})
	}
	var req dto.UpdateGroupInfoRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if err := h.chat.UpdateGroupInfo(c.Context(), id, req.Name, req.Description, req.AvatarRef); err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// UpdateSettings updates the group's settings. Admin-only.
// PUT /groups/:id/settings
func (h *GroupHandler) UpdateSettings(c *fiber.Ctx) error {
	id, err := groupID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid group id"})
	}
	var req dto.UpdateGroupSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if err := h.chat.UpdateGroupSettings(c.Context(), id, req.Settings); err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// ListPublic pages through the public group directory.
// GET /groups/public?offset=0&limit=20
func (h *GroupHandler) ListPublic(c *fiber.Ctx) error {
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	groups, err := h.chat.ListPublicGroups(c.Context(), offset, limit)
	if err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: groups})
}

// Search searches public groups by name.
// GET /groups/search?q=chess&limit=20
func (h *GroupHandler) Search(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "q is required"})
	}
	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	groups, err := h.chat.SearchGroups(c.Context(), q, limit)
	if err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: groups})
}
