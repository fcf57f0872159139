package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/chainchat/syncd/internal/ledger"
	"github.com/chainchat/syncd/internal/models"
)

// statusForError maps cache and ledger errors to HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrNotAdmin):
		return fiber.StatusForbidden
	case errors.Is(err, models.ErrAlreadyFriends),
		errors.Is(err, models.ErrDuplicateRequest),
		errors.Is(err, models.ErrAlreadyMember),
		errors.Is(err, models.ErrNotMember),
		errors.Is(err, models.ErrGroupFull),
		errors.Is(err, models.ErrAlreadyClaimedToday):
		return fiber.StatusConflict
	case errors.Is(err, models.ErrSelfRequest),
		errors.Is(err, models.ErrMessageTooLong),
		errors.Is(err, models.ErrInsufficientBalance),
		errors.Is(err, models.ErrNoActiveConversation),
		errors.Is(err, models.ErrProfileNotLoaded),
		errors.Is(err, models.ErrUnsupportedFileType):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrFileTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case ledger.IsNotFound(err):
		return fiber.StatusNotFound
	case ledger.IsUnavailable(err):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
