package middleware

import (
	"log"

	"beertracker/internal/models"
	"beertracker/internal/services"

	"github.com/gofiber/fiber/v2"
)

// SessionCookie is the name of the HTTP-only cookie carrying the session token.
const SessionCookie = "session"

// SessionAuth is a Fiber middleware resolving the session cookie to a full
// user record. The chain is token -> session -> user; any miss short-circuits
// with 401. The resolved user lands in c.Locals("user").
func SessionAuth(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(SessionCookie)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthenticated",
			})
		}

		user, err := authService.ResolveSession(token)
		if err != nil {
			log.Printf("Session resolution failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthenticated",
			})
		}

		c.Locals("user", user)
		return c.Next()
	}
}

// AdminRequired guards privileged routes. Must run behind SessionAuth.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := UserFromContext(c)
		if user == nil || !user.IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "forbidden",
			})
		}
		return c.Next()
	}
}

// UserFromContext returns the authenticated user attached by SessionAuth,
// or nil when the request is unauthenticated.
func UserFromContext(c *fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}
