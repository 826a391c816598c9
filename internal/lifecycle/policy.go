package lifecycle

import "vanishly/backend/internal/models"

// Pure disappearance decisions. Both functions take the state they judge as
// plain values so the reaper can feed them freshly read rosters and counts,
// and tests can cover them without any storage.

// RequiredViewers returns the roster members whose views count toward
// completeness: everyone currently in the chat except the sender. A sender
// viewing their own message never advances the lifecycle.
func RequiredViewers(chat *models.Chat, senderID string) []string {
	required := make([]string, 0, len(chat.MemberIDs))
	for _, id := range chat.MemberIDs {
		if id != senderID {
			required = append(required, id)
		}
	}
	return required
}

// EligibleForMarking decides the Active -> PendingDeletion transition.
// Presence plays no part here; marking depends only on view completeness.
//
// Direct chats use the denormalized viewed_by_recipient flag. Group chats
// compare distinct viewers against the current roster, so a participant who
// left the chat no longer holds the message back, while a roster of just
// the sender is vacuously complete.
func EligibleForMarking(msg *models.Message, chat *models.Chat, rosterViewerCount int) bool {
	if !msg.IsEphemeral {
		return false
	}
	if msg.LifecycleState != models.StateActive {
		return false
	}
	if chat.IsDirect() {
		return msg.ViewedByRecipient
	}
	return rosterViewerCount >= len(RequiredViewers(chat, msg.SenderID))
}

// EligibleForDeletion decides the PendingDeletion -> Deleted transition:
// the message is marked and nobody currently has the chat open. Evaluated
// fresh on every reaper pass, so a message can sit in pending_deletion for
// as long as someone remains present.
func EligibleForDeletion(msg *models.Message, hasActivePresence bool) bool {
	return msg.LifecycleState == models.StatePendingDeletion && !hasActivePresence
}
