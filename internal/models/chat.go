package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Chat types as stored in the directory table.
const (
	ChatTypeDirect = "direct"
	ChatTypeGroup  = "group"
)

// Chat mirrors the participant directory's view of a conversation.
// The lifecycle engine reads it to obtain the chat type and the live
// roster; it never mutates membership.
type Chat struct {
	// ID is the unique identifier for the chat (UUID).
	ID string `gorm:"primaryKey" json:"id"`
	// ChatType is "direct" for 1:1 conversations, "group" otherwise.
	ChatType string `gorm:"type:text;not null;default:direct" json:"chat_type"`
	// MemberIDs is the current roster of participant user IDs.
	MemberIDs pq.StringArray `gorm:"type:text[]" json:"member_ids"`
	// CreatedAt is the timestamp when the chat was created.
	CreatedAt time.Time `json:"created_at"`
}

// IsDirect reports whether the chat is a two-party conversation.
func (c *Chat) IsDirect() bool {
	return c.ChatType == ChatTypeDirect
}

// HasMember reports whether userID is in the current roster.
func (c *Chat) HasMember(userID string) bool {
	for _, id := range c.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// BeforeCreate generates a UUID for the chat if the ID is not set.
func (c *Chat) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}
