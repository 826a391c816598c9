package lifecycle_test

import (
	"context"
	"errors"
	"testing"

	"vanishly/backend/internal/lifecycle"
	"vanishly/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// expectPurges wires the retention step that runs at the end of every pass.
func expectPurges(m *MockStorage) {
	m.On("PurgeStalePresence", mock.AnythingOfType("time.Time")).Return(0, nil)
	m.On("PurgeOldViews", mock.AnythingOfType("time.Time")).Return(0, nil)
}

func noMessages(m *MockStorage, chatID string, states ...models.LifecycleState) {
	for _, state := range states {
		m.On("ListEphemeralByState", chatID, state).Return([]models.Message{}, nil)
	}
}

func TestRunCleanup_MarksViewedDirectMessage(t *testing.T) {
	storageMock := new(MockStorage)
	chat := directChat("alice", "bob")
	msg := models.Message{ID: "m1", ChatID: chat.ID, SenderID: "alice",
		IsEphemeral: true, LifecycleState: models.StateActive, ViewedByRecipient: true}

	storageMock.On("ListEphemeralByState", "", models.StateActive).Return([]models.Message{msg}, nil)
	storageMock.On("GetChatByID", chat.ID).Return(chat, nil)
	storageMock.On("TransitionMessageState", "m1", models.StateActive, models.StatePendingDeletion).
		Return(true, nil).Once()
	noMessages(storageMock, "", models.StatePendingDeletion)
	expectPurges(storageMock)

	reaper := lifecycle.NewReaper(storageMock)
	report, err := reaper.RunCleanup(context.Background(), "")

	assert.NoError(t, err)
	assert.Equal(t, 1, report.Marked)
	assert.Equal(t, 0, report.Deleted)
	storageMock.AssertExpectations(t)
}

func TestRunCleanup_DoesNotMarkIncompleteGroupMessage(t *testing.T) {
	storageMock := new(MockStorage)
	chat := groupChat("alice", "bob", "carol")
	msg := models.Message{ID: "m2", ChatID: chat.ID, SenderID: "alice",
		IsEphemeral: true, LifecycleState: models.StateActive}

	storageMock.On("ListEphemeralByState", "", models.StateActive).Return([]models.Message{msg}, nil)
	storageMock.On("GetChatByID", chat.ID).Return(chat, nil)
	storageMock.On("CountDistinctViewers", "m2", []string{"bob", "carol"}).Return(1, nil)
	noMessages(storageMock, "", models.StatePendingDeletion)
	expectPurges(storageMock)

	reaper := lifecycle.NewReaper(storageMock)
	report, err := reaper.RunCleanup(context.Background(), "")

	assert.NoError(t, err)
	assert.Equal(t, 0, report.Marked)
	storageMock.AssertNotCalled(t, "TransitionMessageState", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunCleanup_PresenceInhibitsDeletion(t *testing.T) {
	storageMock := new(MockStorage)
	chat := directChat("alice", "bob")
	msg := models.Message{ID: "m1", ChatID: chat.ID, SenderID: "alice",
		IsEphemeral: true, LifecycleState: models.StatePendingDeletion}

	noMessages(storageMock, "", models.StateActive)
	storageMock.On("ListEphemeralByState", "", models.StatePendingDeletion).Return([]models.Message{msg}, nil)
	storageMock.On("GetChatByID", chat.ID).Return(chat, nil)
	storageMock.On("HasActivePresence", chat.ID).Return(true, nil)
	expectPurges(storageMock)

	reaper := lifecycle.NewReaper(storageMock)
	report, err := reaper.RunCleanup(context.Background(), "")

	assert.NoError(t, err)
	assert.Equal(t, 0, report.Deleted)
	storageMock.AssertNotCalled(t, "DeleteMessage", mock.Anything)
	storageMock.AssertNotCalled(t, "PublishDeletionEvent", mock.Anything)
}

// Deleting N eligible messages must emit N discrete events, one per message.
func TestRunCleanup_EmitsOneEventPerDeletedMessage(t *testing.T) {
	storageMock := new(MockStorage)
	chat := groupChat("alice", "bob", "carol")
	msgs := []models.Message{
		{ID: "m1", ChatID: chat.ID, SenderID: "alice", IsEphemeral: true, LifecycleState: models.StatePendingDeletion},
		{ID: "m2", ChatID: chat.ID, SenderID: "bob", IsEphemeral: true, LifecycleState: models.StatePendingDeletion},
		{ID: "m3", ChatID: chat.ID, SenderID: "carol", IsEphemeral: true, LifecycleState: models.StatePendingDeletion},
	}

	noMessages(storageMock, "", models.StateActive)
	storageMock.On("ListEphemeralByState", "", models.StatePendingDeletion).Return(msgs, nil)
	storageMock.On("GetChatByID", chat.ID).Return(chat, nil)
	storageMock.On("HasActivePresence", chat.ID).Return(false, nil)
	for _, msg := range msgs {
		storageMock.On("DeleteMessage", msg.ID).Return(true, nil).Once()
	}
	storageMock.On("PublishDeletionEvent", mock.AnythingOfType("models.DeletionEvent")).Return(nil).Times(3)
	expectPurges(storageMock)

	reaper := lifecycle.NewReaper(storageMock)
	report, err := reaper.RunCleanup(context.Background(), "")

	assert.NoError(t, err)
	assert.Equal(t, 3, report.Deleted)
	storageMock.AssertExpectations(t)
}

// A failure on one message must not abort processing of the others.
func TestRunCleanup_IsolatesPerMessageFailures(t *testing.T) {
	storageMock := new(MockStorage)
	chat := directChat("alice", "bob")
	msgs := []models.Message{
		{ID: "m1", ChatID: chat.ID, SenderID: "alice", IsEphemeral: true, LifecycleState: models.StatePendingDeletion},
		{ID: "m2", ChatID: chat.ID, SenderID: "alice", IsEphemeral: true, LifecycleState: models.StatePendingDeletion},
	}

	noMessages(storageMock, "", models.StateActive)
	storageMock.On("ListEphemeralByState", "", models.StatePendingDeletion).Return(msgs, nil)
	storageMock.On("GetChatByID", chat.ID).Return(chat, nil)
	storageMock.On("HasActivePresence", chat.ID).Return(false, nil)
	storageMock.On("DeleteMessage", "m1").Return(false, errors.New("connection reset")).Once()
	storageMock.On("DeleteMessage", "m2").Return(true, nil).Once()
	storageMock.On("PublishDeletionEvent", mock.AnythingOfType("models.DeletionEvent")).Return(nil).Once()
	expectPurges(storageMock)

	reaper := lifecycle.NewReaper(storageMock)
	report, err := reaper.RunCleanup(context.Background(), "")

	assert.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	assert.Equal(t, 1, report.Failures)
	storageMock.AssertExpectations(t)
}

// A concurrent run that lost the CAS race sees no-ops, not double-processing.
func TestRunCleanup_ConcurrentRunConverges(t *testing.T) {
	storageMock := new(MockStorage)
	chat := directChat("alice", "bob")
	activeMsg := models.Message{ID: "m1", ChatID: chat.ID, SenderID: "alice",
		IsEphemeral: true, LifecycleState: models.StateActive, ViewedByRecipient: true}
	markedMsg := models.Message{ID: "m2", ChatID: chat.ID, SenderID: "alice",
		IsEphemeral: true, LifecycleState: models.StatePendingDeletion}

	storageMock.On("ListEphemeralByState", "", models.StateActive).Return([]models.Message{activeMsg}, nil)
	storageMock.On("ListEphemeralByState", "", models.StatePendingDeletion).Return([]models.Message{markedMsg}, nil)
	storageMock.On("GetChatByID", chat.ID).Return(chat, nil)
	// Another reaper already transitioned m1 and deleted m2.
	storageMock.On("TransitionMessageState", "m1", models.StateActive, models.StatePendingDeletion).
		Return(false, nil)
	storageMock.On("HasActivePresence", chat.ID).Return(false, nil)
	storageMock.On("DeleteMessage", "m2").Return(false, nil)
	expectPurges(storageMock)

	reaper := lifecycle.NewReaper(storageMock)
	report, err := reaper.RunCleanup(context.Background(), "")

	assert.NoError(t, err)
	assert.Equal(t, 0, report.Marked)
	assert.Equal(t, 0, report.Deleted)
	assert.Equal(t, 0, report.Failures)
	storageMock.AssertNotCalled(t, "PublishDeletionEvent", mock.Anything)
}

func TestRunCleanup_CancelledContextStopsScan(t *testing.T) {
	storageMock := new(MockStorage)
	msg := models.Message{ID: "m1", ChatID: "chat-1", SenderID: "alice",
		IsEphemeral: true, LifecycleState: models.StateActive, ViewedByRecipient: true}
	storageMock.On("ListEphemeralByState", "", models.StateActive).Return([]models.Message{msg}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reaper := lifecycle.NewReaper(storageMock)
	_, err := reaper.RunCleanup(ctx, "")

	assert.ErrorIs(t, err, context.Canceled)
	storageMock.AssertNotCalled(t, "TransitionMessageState", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunCleanup_ScopePassedToScans(t *testing.T) {
	storageMock := new(MockStorage)
	noMessages(storageMock, "chat-42", models.StateActive, models.StatePendingDeletion)
	expectPurges(storageMock)

	reaper := lifecycle.NewReaper(storageMock)
	_, err := reaper.RunCleanup(context.Background(), "chat-42")

	assert.NoError(t, err)
	storageMock.AssertCalled(t, "ListEphemeralByState", "chat-42", models.StateActive)
	storageMock.AssertCalled(t, "ListEphemeralByState", "chat-42", models.StatePendingDeletion)
}
