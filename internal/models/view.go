package models

import "time"

// MessageView is the fact that one user has seen one message. The composite
// primary key makes recording the same view twice a no-op at the database
// level, which is what keeps RecordView idempotent under concurrency.
type MessageView struct {
	MessageID string    `gorm:"primaryKey;type:uuid" json:"message_id"`
	ViewerID  string    `gorm:"primaryKey;type:text" json:"viewer_id"`
	ViewedAt  time.Time `gorm:"not null" json:"viewed_at"`
}
