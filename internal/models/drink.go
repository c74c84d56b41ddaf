package models

import "time"

// Drink is one append-only logged beverage. Username is a snapshot of the
// drinker's display name at logging time so the feed survives renames.
// Rows are never mutated; the only delete path is the admin reset, which
// clears the whole table together with every user's count.
type Drink struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    string    `json:"user_id" gorm:"index;type:varchar(36)"`
	Username  string    `json:"username" gorm:"type:varchar(100)"`
	BeerType  string    `json:"beer_type" gorm:"type:varchar(100)"`
	CreatedAt time.Time `json:"created_at"`
}
