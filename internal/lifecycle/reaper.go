package lifecycle

import (
	"context"
	"errors"
	"log"
	"time"

	"vanishly/backend/internal/config"
	"vanishly/backend/internal/metrics"
	"vanishly/backend/internal/models"
	"vanishly/backend/internal/storage"
)

// Reaper drives the lifecycle state machine. It is the only writer of
// lifecycle_state and the only deleter of message rows. Safe to run
// concurrently and redundantly: every transition is a conditional single-row
// update, so overlapping passes converge instead of double-processing.
type Reaper struct {
	Storage storage.Storage
}

func NewReaper(s storage.Storage) *Reaper {
	return &Reaper{Storage: s}
}

// RunCleanup performs one full pass: mark view-complete active messages,
// delete marked messages in chats with no active presence, then purge
// expired presence and view rows. An empty chatID scans every chat.
//
// Each message is evaluated and committed individually. A failure on one
// message is logged, counted in the report, and never aborts the pass.
// Cancellation via ctx stops between messages, leaving no partial state.
func (r *Reaper) RunCleanup(ctx context.Context, chatID string) (models.CleanupReport, error) {
	var report models.CleanupReport

	if err := r.markEligible(ctx, chatID, &report); err != nil {
		return report, err
	}
	if err := r.deleteMarked(ctx, chatID, &report); err != nil {
		return report, err
	}
	if err := r.purgeExpired(ctx, &report); err != nil {
		return report, err
	}

	if report.Marked > 0 || report.Deleted > 0 || report.Failures > 0 {
		log.Printf("INFO: Cleanup pass done: marked=%d deleted=%d failures=%d",
			report.Marked, report.Deleted, report.Failures)
	}
	return report, nil
}

// markEligible is the Active -> PendingDeletion scan.
func (r *Reaper) markEligible(ctx context.Context, chatID string, report *models.CleanupReport) error {
	candidates, err := r.Storage.ListEphemeralByState(chatID, models.StateActive)
	if err != nil {
		return err
	}

	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := &candidates[i]

		// Roster is re-read per message; membership may have changed since
		// the scan started.
		chat, err := r.Storage.GetChatByID(msg.ChatID)
		if err != nil {
			r.recordFailure(msg.ID, "mark", err, report)
			continue
		}

		viewerCount := 0
		if !chat.IsDirect() {
			viewerCount, err = r.Storage.CountDistinctViewers(msg.ID, RequiredViewers(chat, msg.SenderID))
			if err != nil {
				r.recordFailure(msg.ID, "mark", err, report)
				continue
			}
		}

		if !EligibleForMarking(msg, chat, viewerCount) {
			continue
		}

		changed, err := r.Storage.TransitionMessageState(msg.ID, models.StateActive, models.StatePendingDeletion)
		if err != nil {
			r.recordFailure(msg.ID, "mark", err, report)
			continue
		}
		if changed {
			report.Marked++
			metrics.MessagesMarked.Inc()
		}
	}
	return nil
}

// deleteMarked is the PendingDeletion -> Deleted scan. Messages are deleted
// one at a time so that every deletion surfaces as a discrete event on the
// realtime bus; a bulk delete would collapse them into silence.
func (r *Reaper) deleteMarked(ctx context.Context, chatID string, report *models.CleanupReport) error {
	candidates, err := r.Storage.ListEphemeralByState(chatID, models.StatePendingDeletion)
	if err != nil {
		return err
	}

	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := &candidates[i]

		chat, err := r.Storage.GetChatByID(msg.ChatID)
		if err != nil && !errors.Is(err, storage.ErrChatNotFound) {
			r.recordFailure(msg.ID, "delete", err, report)
			continue
		}

		// A vanished chat cannot hold its messages back; otherwise presence
		// is checked fresh for every message.
		if chat != nil {
			active, err := r.Storage.HasActivePresence(chat.ID)
			if err != nil {
				r.recordFailure(msg.ID, "delete", err, report)
				continue
			}
			if !EligibleForDeletion(msg, active) {
				continue
			}
		}

		removed, err := r.Storage.DeleteMessage(msg.ID)
		if err != nil {
			r.recordFailure(msg.ID, "delete", err, report)
			continue
		}
		if !removed {
			// Another reaper run got here first.
			continue
		}
		report.Deleted++
		metrics.MessagesDeleted.Inc()

		event := models.DeletionEvent{
			MessageID: msg.ID,
			ChatID:    msg.ChatID,
			DeletedAt: time.Now(),
		}
		if chat != nil {
			event.MemberIDs = chat.MemberIDs
		}
		if err := r.Storage.PublishDeletionEvent(event); err != nil {
			// The delete already happened; losing the event is reported but
			// must not stop the scan.
			r.recordFailure(msg.ID, "notify", err, report)
		}
	}
	return nil
}

// purgeExpired is the retention housekeeping step: stale presence rows and
// old view rows go, independent of any message's state.
func (r *Reaper) purgeExpired(ctx context.Context, report *models.CleanupReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now()
	purged, err := r.Storage.PurgeStalePresence(now.Add(-config.PresenceTTL))
	if err != nil {
		log.Printf("ERROR: Failed to purge stale presence: %v", err)
		report.Failures++
		metrics.ReaperFailures.Inc()
	} else {
		report.PresencePurged = purged
		metrics.PresencePurged.Add(float64(purged))
	}

	views, err := r.Storage.PurgeOldViews(now.Add(-config.ViewTTL))
	if err != nil {
		log.Printf("ERROR: Failed to purge old views: %v", err)
		report.Failures++
		metrics.ReaperFailures.Inc()
	} else {
		report.ViewsPurged = views
		metrics.ViewsPurged.Add(float64(views))
	}
	return nil
}

func (r *Reaper) recordFailure(messageID, phase string, err error, report *models.CleanupReport) {
	log.Printf("ERROR: Cleanup %s failed for message %s: %v", phase, messageID, err)
	report.Failures++
	metrics.ReaperFailures.Inc()
}
