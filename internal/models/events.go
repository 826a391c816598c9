package models

import "time"

// DeletionEvent is published on the realtime bus once per deleted message,
// immediately after the individual delete. Subscribers expect one event per
// vanished message, never an aggregate.
type DeletionEvent struct {
	MessageID string    `json:"message_id"`
	ChatID    string    `json:"chat_id"`
	MemberIDs []string  `json:"member_ids"`
	DeletedAt time.Time `json:"deleted_at"`
}

// CleanupReport summarizes one reaper pass.
type CleanupReport struct {
	// Marked is the number of messages transitioned Active -> PendingDeletion.
	Marked int `json:"marked"`
	// Deleted is the number of messages physically removed.
	Deleted int `json:"deleted"`
	// PresencePurged and ViewsPurged count retention housekeeping removals.
	PresencePurged int `json:"presence_purged"`
	ViewsPurged    int `json:"views_purged"`
	// Failures counts messages whose processing failed; the pass continues
	// past them.
	Failures int `json:"failures"`
}

// ChatLifecycleStats is a read-only aggregate for diagnostics and UI badges.
type ChatLifecycleStats struct {
	ChatID            string  `json:"chat_id"`
	TotalEphemeral    int     `json:"total_ephemeral"`
	PendingDeletion   int     `json:"pending_deletion"`
	AvgViewCompletion float64 `json:"avg_view_completion"`
}
