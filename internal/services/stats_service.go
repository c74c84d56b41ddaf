package services

import (
	"sort"

	"beertracker/internal/models"
	"beertracker/internal/repositories"
)

// recentDrinksLimit caps the activity feed in the stats payload.
const recentDrinksLimit = 10

// Stats is the aggregate progress snapshot served by GET /api/stats.
type Stats struct {
	Leaderboard  []models.LeaderboardEntry `json:"leaderboard"`
	RecentDrinks []models.Drink            `json:"recentDrinks"`
	Remaining    int                       `json:"remaining"`
	Progress     int                       `json:"progress"`
	Goal         int                       `json:"goal"`
}

// StatsService is a read-only projection over the ledger: leaderboard,
// total progress and recent events.
type StatsService struct {
	ledger repositories.Ledger
	goal   int
}

// NewStatsService creates a new StatsService.
func NewStatsService(ledger repositories.Ledger, goal int) *StatsService {
	return &StatsService{
		ledger: ledger,
		goal:   goal,
	}
}

// Leaderboard returns every user sorted by count descending. The sort is
// stable over creation order, so ties keep a deterministic ordering.
func (s *StatsService) Leaderboard() ([]models.LeaderboardEntry, error) {
	users, err := s.ledger.AllUsers()
	if err != nil {
		return nil, err
	}
	entries := make([]models.LeaderboardEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, models.LeaderboardEntry{
			Username:  u.DisplayName,
			BeerCount: u.BeerCount,
			IsAdmin:   u.IsAdmin,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].BeerCount > entries[j].BeerCount
	})
	return entries, nil
}

// TotalProgress returns the sum of all counts.
func (s *StatsService) TotalProgress() (int, error) {
	return s.ledger.TotalBeers()
}

// RecentEvents returns the most recent limit drink events, newest first.
func (s *StatsService) RecentEvents(limit int) ([]models.Drink, error) {
	return s.ledger.RecentDrinks(limit)
}

// GetStats assembles the full stats payload.
func (s *StatsService) GetStats() (*Stats, error) {
	leaderboard, err := s.Leaderboard()
	if err != nil {
		return nil, err
	}
	total, err := s.TotalProgress()
	if err != nil {
		return nil, err
	}
	recent, err := s.RecentEvents(recentDrinksLimit)
	if err != nil {
		return nil, err
	}

	remaining := s.goal - total
	if remaining < 0 {
		remaining = 0
	}
	if recent == nil {
		recent = []models.Drink{}
	}

	return &Stats{
		Leaderboard:  leaderboard,
		RecentDrinks: recent,
		Remaining:    remaining,
		Progress:     total,
		Goal:         s.goal,
	}, nil
}
