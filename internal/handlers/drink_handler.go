package handlers

import (
	"log"

	"beertracker/internal/middleware"
	"beertracker/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// DrinkHandler handles HTTP requests for drink recording and the admin reset.
type DrinkHandler struct {
	drinkService *services.DrinkService
	validate     *validator.Validate
}

// NewDrinkHandler creates a new DrinkHandler.
func NewDrinkHandler(drinkService *services.DrinkService) *DrinkHandler {
	return &DrinkHandler{
		drinkService: drinkService,
		validate:     validator.New(),
	}
}

// RegisterProtectedRoutes registers the drink routes behind session auth.
func (h *DrinkHandler) RegisterProtectedRoutes(router fiber.Router) {
	router.Post("/drink", h.HandleDrink)
}

// RegisterAdminRoutes registers the privileged routes. The caller must wrap
// the group with middleware.AdminRequired.
func (h *DrinkHandler) RegisterAdminRoutes(router fiber.Router) {
	router.Post("/reset", h.HandleReset)
}

// DrinkRequest represents the request body for logging a drink.
type DrinkRequest struct {
	BeerType string `json:"beerType" validate:"required"`
	Photo    string `json:"photo" validate:"omitempty"`
}

// HandleDrink runs one submission through the drink recorder. A rejected
// verification is a 200 with verified=false, not an error.
func (h *DrinkHandler) HandleDrink(c *fiber.Ctx) error {
	var req DrinkRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing drink request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_input",
			"message": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_input",
			"message": "Beer type is required",
		})
	}

	user := middleware.UserFromContext(c)

	result, err := h.drinkService.RecordDrink(user, req.BeerType, req.Photo)
	if err != nil {
		log.Printf("Error recording drink for user %s: %v", user.ID, err)
		return errorResponse(c, err)
	}

	if !result.Verified {
		return c.JSON(fiber.Map{
			"success":             false,
			"verified":            false,
			"verificationMessage": result.VerificationMessage,
		})
	}

	resp := fiber.Map{
		"success":    true,
		"verified":   true,
		"beer_count": result.BeerCount,
	}
	if result.VerificationMessage != "" {
		resp["verificationMessage"] = result.VerificationMessage
	}
	if result.AIRoast != "" {
		resp["aiRoast"] = result.AIRoast
	}
	return c.JSON(resp)
}

// HandleReset zeroes every count and clears the drink log. Admin only.
func (h *DrinkHandler) HandleReset(c *fiber.Ctx) error {
	user := middleware.UserFromContext(c)

	if err := h.drinkService.ResetAll(user); err != nil {
		log.Printf("Error resetting ledger (requested by %s): %v", user.ID, err)
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}
