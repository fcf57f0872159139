package handlers

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/chainchat/syncd/internal/http/dto"
	"github.com/chainchat/syncd/internal/services"
)

type ChatHandler struct {
	chat *services.ChatService
	log  *zap.Logger
}

func NewChatHandler(chat *services.ChatService, log *zap.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, log: log}
}

// ListConversations returns the cached conversation list.
// GET /conversations
func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: h.chat.Conversations()})
}

// Reload rebuilds the conversation list from the ledger and friend graph.
// POST /conversations/reload
func (h *ChatHandler) Reload(c *fiber.Ctx) error {
	if err := h.chat.LoadConversations(c.Context()); err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: h.chat.Conversations()})
}

// SetActive switches the active conversation. An empty or null
// conversation_id deactivates and leaves the current room.
// POST /conversations/active
func (h *ChatHandler) SetActive(c *fiber.Ctx) error {
	var req dto.SetActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if err := h.chat.SetActive(c.Context(), req.ConversationID); err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// Timeline returns the active conversation's messages.
// GET /conversations/active/messages
func (h *ChatHandler) Timeline(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: h.chat.Timeline()})
}

// SendMessage posts a text message to the active conversation.
// POST /conversations/active/messages
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "text is required"})
	}
	msg, err := h.chat.SendText(c.Context(), req.Text)
	if err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: msg})
}

// SendFile uploads a file and posts it to the active conversation.
// POST /conversations/active/files (multipart, field "file")
func (h *ChatHandler) SendFile(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "file is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "cannot read file"})
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "cannot read file"})
	}

	msg, err := h.chat.SendFile(c.Context(), fh.Filename, data)
	if err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: msg})
}

// Typing broadcasts a typing indicator.
// POST /conversations/active/typing
func (h *ChatHandler) Typing(c *fiber.Ctx) error {
	var req dto.TypingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if err := h.chat.SendTyping(c.Context(), req.Active); err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// Typers returns who is currently typing in the active conversation.
// GET /conversations/active/typing
func (h *ChatHandler) Typers(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: h.chat.ActiveTypers()})
}
