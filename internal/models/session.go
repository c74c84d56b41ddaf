package models

import "time"

// Session binds an opaque token to a user. A session is valid for as long
// as it exists in the store and its user still exists; there is no
// server-side expiry (the cookie carries a max-age hint only).
type Session struct {
	Token     string    `json:"-" gorm:"primaryKey;type:varchar(64)"`
	UserID    string    `json:"user_id" gorm:"index;type:varchar(36)"`
	CreatedAt time.Time `json:"created_at"`
}
