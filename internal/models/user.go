package models

import "time"

// User represents a registered drinker.
type User struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Username    string    `json:"username" gorm:"uniqueIndex;type:varchar(100)" validate:"required,min=3,max=100"`
	DisplayName string    `json:"display_name" gorm:"type:varchar(100)" validate:"omitempty,max=100"`
	Password    string    `json:"-" gorm:"type:varchar(255)" validate:"required,min=6"` // bcrypt hash, never serialized
	BeerCount   int       `json:"beer_count" gorm:"not null;default:0"`
	IsAdmin     bool      `json:"is_admin" gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"created_at"`
}

// LeaderboardEntry is the public projection of a user for the leaderboard.
type LeaderboardEntry struct {
	Username  string `json:"username"`
	BeerCount int    `json:"beer_count"`
	IsAdmin   bool   `json:"is_admin"`
}
