package lifecycle

import (
	"context"
	"log"
	"time"

	"vanishly/backend/internal/models"
	"vanishly/backend/internal/storage"
)

// Facade is the public surface of the lifecycle engine. The chat directory
// and client-facing API integrate against these five operations; everything
// behind them stays internal.
//
// RecordView and SetPresence are synchronous and idempotent, so clients may
// retry them freely on transient storage errors.
type Facade struct {
	Storage storage.Storage
	reaper  *Reaper
}

func NewFacade(s storage.Storage) *Facade {
	return &Facade{
		Storage: s,
		reaper:  NewReaper(s),
	}
}

// RecordView durably records that viewerID has seen messageID. Recording
// the same view twice is a no-op. For direct chats a view by the non-sender
// party also flips the message's viewed_by_recipient flag, which is what
// the disappearance policy reads.
//
// Returns storage.ErrMessageNotFound, storage.ErrChatNotFound or
// storage.ErrUserNotFound when a referenced entity does not exist.
func (f *Facade) RecordView(messageID, viewerID string) error {
	msg, err := f.Storage.GetMessageByID(messageID)
	if err != nil {
		return err
	}
	chat, err := f.Storage.GetChatByID(msg.ChatID)
	if err != nil {
		return err
	}
	if !chat.HasMember(viewerID) && viewerID != msg.SenderID {
		return storage.ErrUserNotFound
	}

	now := time.Now()
	view := &models.MessageView{
		MessageID: messageID,
		ViewerID:  viewerID,
		ViewedAt:  now,
	}
	if err := f.Storage.SaveView(view); err != nil {
		return err
	}

	// Group chats rely on view rows against the roster; only direct chats
	// carry the denormalized flag.
	if chat.IsDirect() && msg.IsEphemeral && viewerID != msg.SenderID {
		if err := f.Storage.MarkViewedByRecipient(messageID, now); err != nil {
			return err
		}
	}
	return nil
}

// SetPresence upserts the (chat, user) presence row. last_activity_at is
// refreshed on every call, even when isActive did not change. Presence only
// delays deletion; it never feeds view semantics.
func (f *Facade) SetPresence(chatID, userID string, isActive bool) error {
	chat, err := f.Storage.GetChatByID(chatID)
	if err != nil {
		return err
	}
	if !chat.HasMember(userID) {
		return storage.ErrUserNotFound
	}

	return f.Storage.UpsertPresence(&models.ChatPresence{
		ChatID:         chatID,
		UserID:         userID,
		IsActive:       isActive,
		LastActivityAt: time.Now(),
	})
}

// RunCleanup runs one reaper pass, optionally scoped to a single chat to
// bound latency. See Reaper.RunCleanup.
func (f *Facade) RunCleanup(ctx context.Context, chatID string) (models.CleanupReport, error) {
	return f.reaper.RunCleanup(ctx, chatID)
}

// GetPendingViewers returns the roster members whose view the message is
// still waiting on: current roster minus the sender minus recorded viewers,
// computed at call time against the live roster.
func (f *Facade) GetPendingViewers(messageID string) ([]string, error) {
	msg, err := f.Storage.GetMessageByID(messageID)
	if err != nil {
		return nil, err
	}
	chat, err := f.Storage.GetChatByID(msg.ChatID)
	if err != nil {
		return nil, err
	}
	viewerIDs, err := f.Storage.GetViewerIDs(messageID)
	if err != nil {
		return nil, err
	}

	viewed := make(map[string]bool, len(viewerIDs))
	for _, id := range viewerIDs {
		viewed[id] = true
	}

	pending := make([]string, 0)
	for _, id := range RequiredViewers(chat, msg.SenderID) {
		if !viewed[id] {
			pending = append(pending, id)
		}
	}
	return pending, nil
}

// GetChatLifecycleStats aggregates the chat's live ephemeral messages for
// diagnostics: totals per state and the mean view-completion ratio. A
// message with no required viewers counts as fully viewed.
func (f *Facade) GetChatLifecycleStats(chatID string) (*models.ChatLifecycleStats, error) {
	chat, err := f.Storage.GetChatByID(chatID)
	if err != nil {
		return nil, err
	}

	active, err := f.Storage.ListEphemeralByState(chatID, models.StateActive)
	if err != nil {
		return nil, err
	}
	pending, err := f.Storage.ListEphemeralByState(chatID, models.StatePendingDeletion)
	if err != nil {
		return nil, err
	}

	stats := &models.ChatLifecycleStats{
		ChatID:          chatID,
		TotalEphemeral:  len(active) + len(pending),
		PendingDeletion: len(pending),
	}
	if stats.TotalEphemeral == 0 {
		return stats, nil
	}

	var sum float64
	for _, msgs := range [][]models.Message{active, pending} {
		for i := range msgs {
			completion, err := f.viewCompletion(&msgs[i], chat)
			if err != nil {
				log.Printf("WARNING: Skipping message %s in stats: %v", msgs[i].ID, err)
				continue
			}
			sum += completion
		}
	}
	stats.AvgViewCompletion = sum / float64(stats.TotalEphemeral)
	return stats, nil
}

// viewCompletion is the fraction of required viewers that have viewed the
// message, against the current roster.
func (f *Facade) viewCompletion(msg *models.Message, chat *models.Chat) (float64, error) {
	required := RequiredViewers(chat, msg.SenderID)
	if len(required) == 0 {
		return 1, nil
	}
	if chat.IsDirect() {
		if msg.ViewedByRecipient {
			return 1, nil
		}
		return 0, nil
	}
	count, err := f.Storage.CountDistinctViewers(msg.ID, required)
	if err != nil {
		return 0, err
	}
	return float64(count) / float64(len(required)), nil
}
