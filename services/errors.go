package services

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

// Error kinds surfaced by match operations. Call sites wrap them with
// eris.Wrap so the message carries detail and errors.Is still matches.
var (
	ErrInvalidInput     = eris.New("invalid input")
	ErrNotFound         = eris.New("not found")
	ErrTableUnavailable = eris.New("table is not available")
	ErrForbidden        = eris.New("forbidden")
	ErrBrandMismatch    = eris.New("membership belongs to another brand")
	ErrConflict         = eris.New("conflict")
	ErrInvalidState     = eris.New("invalid match state")
	ErrAlreadyCompleted = eris.New("match already completed")
	ErrEmptyRoster      = eris.New("match has no members")
	ErrRosterTooLarge   = eris.New("team exceeds member limit")
)

var statusByKind = []struct {
	kind   error
	status int
}{
	{ErrInvalidInput, fiber.StatusBadRequest},
	{ErrNotFound, fiber.StatusNotFound},
	{ErrTableUnavailable, fiber.StatusBadRequest},
	{ErrForbidden, fiber.StatusForbidden},
	{ErrBrandMismatch, fiber.StatusForbidden},
	{ErrConflict, fiber.StatusConflict},
	{ErrInvalidState, fiber.StatusBadRequest},
	{ErrAlreadyCompleted, fiber.StatusBadRequest},
	{ErrEmptyRoster, fiber.StatusBadRequest},
	{ErrRosterTooLarge, fiber.StatusBadRequest},
}

// StatusCode maps an error to its HTTP status. Unknown errors are 500.
func StatusCode(err error) int {
	for _, k := range statusByKind {
		if errors.Is(err, k.kind) {
			return k.status
		}
	}
	return fiber.StatusInternalServerError
}

// RespondError writes {"error": msg}. Internal errors are logged with their
// stack and answered with a generic message.
func RespondError(c *fiber.Ctx, err error) error {
	status := StatusCode(err)
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg(eris.ToString(err, true))
		return c.Status(status).JSON(fiber.Map{"error": "internal server error"})
	}
	log.Debug().Err(err).Str("path", c.Path()).Int("status", status).Msg("request rejected")
	return c.Status(status).JSON(fiber.Map{"error": eris.ToString(err, false)})
}
