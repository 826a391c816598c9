package lifecycle_test

import (
	"time"

	"vanishly/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateChat(chat *models.Chat) error {
	args := m.Called(chat)
	return args.Error(0)
}

func (m *MockStorage) GetChatByID(chatID string) (*models.Chat, error) {
	args := m.Called(chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *MockStorage) RemoveChatMember(chatID, userID string) error {
	args := m.Called(chatID, userID)
	return args.Error(0)
}

func (m *MockStorage) CreateMessage(msg *models.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockStorage) GetMessageByID(messageID string) (*models.Message, error) {
	args := m.Called(messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockStorage) ListEphemeralByState(chatID string, state models.LifecycleState) ([]models.Message, error) {
	args := m.Called(chatID, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockStorage) TransitionMessageState(messageID string, from, to models.LifecycleState) (bool, error) {
	args := m.Called(messageID, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) DeleteMessage(messageID string) (bool, error) {
	args := m.Called(messageID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) SaveView(view *models.MessageView) error {
	args := m.Called(view)
	return args.Error(0)
}

func (m *MockStorage) MarkViewedByRecipient(messageID string, at time.Time) error {
	args := m.Called(messageID, at)
	return args.Error(0)
}

func (m *MockStorage) GetViewerIDs(messageID string) ([]string, error) {
	args := m.Called(messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) CountDistinctViewers(messageID string, viewerIDs []string) (int, error) {
	args := m.Called(messageID, viewerIDs)
	return args.Int(0), args.Error(1)
}

func (m *MockStorage) UpsertPresence(presence *models.ChatPresence) error {
	args := m.Called(presence)
	return args.Error(0)
}

func (m *MockStorage) HasActivePresence(chatID string) (bool, error) {
	args := m.Called(chatID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) PublishDeletionEvent(event models.DeletionEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockStorage) PurgeStalePresence(olderThan time.Time) (int, error) {
	args := m.Called(olderThan)
	return args.Int(0), args.Error(1)
}

func (m *MockStorage) PurgeOldViews(olderThan time.Time) (int, error) {
	args := m.Called(olderThan)
	return args.Int(0), args.Error(1)
}
