package handlers

import (
	"errors"
	"fmt"
	"log"

	"beertracker/internal/apperrors"
	"beertracker/internal/middleware"
	"beertracker/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for registration, login and sessions.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterPublicRoutes registers the unauthenticated auth routes.
func (h *AuthHandler) RegisterPublicRoutes(router fiber.Router) {
	router.Post("/register", h.HandleRegister)
	router.Post("/login", h.HandleLogin)
}

// RegisterProtectedRoutes registers the routes behind session auth.
func (h *AuthHandler) RegisterProtectedRoutes(router fiber.Router) {
	router.Post("/logout", h.HandleLogout)
	router.Get("/me", h.HandleMe)
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=100"`
	DisplayName string `json:"displayName" validate:"omitempty,max=100"`
	Password    string `json:"password" validate:"required,min=6"`
	InviteCode  string `json:"inviteCode" validate:"required"`
}

// HandleRegister handles invite-gated registration and opens a session.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing register request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_input",
			"message": "Invalid request body",
		})
	}

	if err := h.validate.Struct(req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "invalid_input",
			"errors": errorMessages,
		})
	}

	user, token, err := h.authService.Register(req.Username, req.DisplayName, req.Password, req.InviteCode)
	if err != nil {
		log.Printf("Error registering user %q: %v", req.Username, err)
		// Unknown and spent invites are both a plain 400 here; the invite
		// probe endpoint is the one that distinguishes them.
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrAlreadyUsed) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "invalid_invite",
				"message": "Invalid or used invite code",
			})
		}
		return errorResponse(c, err)
	}

	setSessionCookie(c, token)
	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and opens a session.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing login request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_input",
			"message": "Invalid request body",
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_input",
			"message": "Username and password are required",
		})
	}

	user, token, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		log.Printf("Error during login for user %q: %v", req.Username, err)
		return errorResponse(c, err)
	}

	setSessionCookie(c, token)
	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

// HandleLogout revokes the current session. Idempotent.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	token := c.Cookies(middleware.SessionCookie)
	if token != "" {
		if err := h.authService.Logout(token); err != nil {
			log.Printf("Error revoking session: %v", err)
		}
	}
	clearSessionCookie(c)
	return c.JSON(fiber.Map{
		"success": true,
	})
}

// HandleMe returns the authenticated user.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"user": middleware.UserFromContext(c),
	})
}
