package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LifecycleState is the disappearance state of an ephemeral message.
// Transitions are monotonic: Active -> PendingDeletion -> Deleted.
// Deleted is never stored; reaching it removes the row.
type LifecycleState string

const (
	StateActive          LifecycleState = "active"
	StatePendingDeletion LifecycleState = "pending_deletion"
	StateDeleted         LifecycleState = "deleted"
)

// Message represents a chat message together with its lifecycle metadata.
// Content, media and delivery belong to the message store proper; this
// engine owns only the fields that feed the disappearance policy.
type Message struct {
	// ID is the unique identifier for the message (UUID).
	ID string `gorm:"primaryKey" json:"id"`
	// ChatID is the conversation this message belongs to.
	ChatID string `gorm:"type:uuid;not null;index:idx_chat_state" json:"chat_id"`
	// SenderID is the user who sent the message.
	SenderID string `gorm:"type:text;not null" json:"sender_id"`
	// IsEphemeral marks the message as subject to the disappearance policy.
	IsEphemeral bool `gorm:"not null;default:true" json:"is_ephemeral"`
	// LifecycleState is written only by the reaper.
	LifecycleState LifecycleState `gorm:"type:text;not null;default:active;index:idx_chat_state" json:"lifecycle_state"`

	// ViewedByRecipient is a denormalized flag maintained for direct chats
	// only, so the policy can decide without joining the views table.
	// Group chats compare distinct viewers against the roster instead.
	ViewedByRecipient bool `gorm:"not null;default:false" json:"viewed_by_recipient"`
	// ViewedAt is set together with ViewedByRecipient.
	ViewedAt *time.Time `json:"viewed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate generates a UUID for the message if the ID is not set.
func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}
