package handlers

import (
	"errors"

	"beertracker/internal/apperrors"
	"beertracker/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// sessionMaxAge is the cookie max-age hint, 30 days in seconds. Sessions do
// not expire server-side; the cookie hint is advisory only.
const sessionMaxAge = 30 * 24 * 60 * 60

// errorResponse maps a service error onto a status code and a JSON body
// carrying the machine-readable reason string.
func errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	reason := apperrors.ErrStoreFailure.Error()

	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		status, reason = fiber.StatusBadRequest, apperrors.ErrInvalidInput.Error()
	case errors.Is(err, apperrors.ErrUnauthenticated):
		status, reason = fiber.StatusUnauthorized, apperrors.ErrUnauthenticated.Error()
	case errors.Is(err, apperrors.ErrForbidden):
		status, reason = fiber.StatusForbidden, apperrors.ErrForbidden.Error()
	case errors.Is(err, apperrors.ErrConflict):
		status, reason = fiber.StatusBadRequest, apperrors.ErrConflict.Error()
	case errors.Is(err, apperrors.ErrNotFound):
		status, reason = fiber.StatusNotFound, apperrors.ErrNotFound.Error()
	case errors.Is(err, apperrors.ErrAlreadyUsed):
		status, reason = fiber.StatusBadRequest, apperrors.ErrAlreadyUsed.Error()
	}

	return c.Status(status).JSON(fiber.Map{
		"error":   reason,
		"message": err.Error(),
	})
}

// setSessionCookie attaches the HTTP-only session cookie to the response.
func setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		MaxAge:   sessionMaxAge,
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

// clearSessionCookie expires the session cookie.
func clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		MaxAge:   -1,
		HTTPOnly: true,
		SameSite: "Lax",
	})
}
