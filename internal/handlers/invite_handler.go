package handlers

import (
	"log"

	"beertracker/internal/middleware"
	"beertracker/internal/services"

	"github.com/gofiber/fiber/v2"
)

// InviteHandler handles HTTP requests for invite codes.
type InviteHandler struct {
	inviteService *services.InviteService
}

// NewInviteHandler creates a new InviteHandler.
func NewInviteHandler(inviteService *services.InviteService) *InviteHandler {
	return &InviteHandler{
		inviteService: inviteService,
	}
}

// RegisterPublicRoutes registers the unauthenticated invite routes.
func (h *InviteHandler) RegisterPublicRoutes(router fiber.Router) {
	router.Get("/invite/:code", h.HandleCheckInvite)
}

// RegisterProtectedRoutes registers the routes behind session auth.
func (h *InviteHandler) RegisterProtectedRoutes(router fiber.Router) {
	router.Post("/invite", h.HandleCreateInvite)
}

// HandleCheckInvite reports whether an invite code is still usable.
func (h *InviteHandler) HandleCheckInvite(c *fiber.Ctx) error {
	if !h.inviteService.IsValid(c.Params("code")) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "invalid_invite",
			"message": "Invalid or used invite code",
		})
	}
	return c.JSON(fiber.Map{
		"valid": true,
	})
}

// HandleCreateInvite mints a new invite for the authenticated user.
func (h *InviteHandler) HandleCreateInvite(c *fiber.Ctx) error {
	user := middleware.UserFromContext(c)

	invite, link, err := h.inviteService.CreateInvite(user.ID)
	if err != nil {
		log.Printf("Error creating invite for user %s: %v", user.ID, err)
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"code": invite.Code,
		"link": link,
	})
}
