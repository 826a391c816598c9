package models

import "time"

// ChatPresence records whether a user currently has a chat open in their
// client. IsActive is the authoritative deletion inhibitor; LastActivityAt
// is advisory and only used by retention cleanup to purge stale rows.
type ChatPresence struct {
	ChatID         string    `gorm:"primaryKey;type:uuid" json:"chat_id"`
	UserID         string    `gorm:"primaryKey;type:text" json:"user_id"`
	IsActive       bool      `gorm:"not null;default:false" json:"is_active"`
	LastActivityAt time.Time `gorm:"not null" json:"last_activity_at"`
}
