package handlers

import (
	"log"

	"beertracker/internal/services"

	"github.com/gofiber/fiber/v2"
)

// StatsHandler serves the public progress snapshot.
type StatsHandler struct {
	statsService *services.StatsService
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(statsService *services.StatsService) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
	}
}

// RegisterPublicRoutes registers the stats routes.
func (h *StatsHandler) RegisterPublicRoutes(router fiber.Router) {
	router.Get("/stats", h.HandleStats)
}

// HandleStats returns the leaderboard, recent drinks and goal progress.
func (h *StatsHandler) HandleStats(c *fiber.Ctx) error {
	stats, err := h.statsService.GetStats()
	if err != nil {
		log.Printf("Error assembling stats: %v", err)
		return errorResponse(c, err)
	}
	return c.JSON(stats)
}
