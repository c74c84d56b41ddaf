package models

import "time"

// Invite is a single-use registration code. CreatedBy is nil for seed
// invites created at startup. UsedBy transitions nil -> user id exactly
// once; an invite with a non-nil UsedBy is permanently spent.
type Invite struct {
	Code      string     `json:"code" gorm:"primaryKey;type:varchar(50)"`
	CreatedBy *string    `json:"created_by" gorm:"type:varchar(36)"`
	UsedBy    *string    `json:"used_by" gorm:"type:varchar(36)"`
	IsAdmin   bool       `json:"is_admin" gorm:"not null;default:false"`
	CreatedAt time.Time  `json:"created_at"`
	UsedAt    *time.Time `json:"used_at"`
}
