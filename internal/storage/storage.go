package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"vanishly/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sentinel errors returned when a referenced entity does not exist. All
// other storage errors are transient and safe to retry, since every write
// below is idempotent.
var (
	ErrChatNotFound    = errors.New("chat not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrUserNotFound    = errors.New("user is not a participant of the chat")
)

type Storage interface {
	CreateChat(chat *models.Chat) error
	GetChatByID(chatID string) (*models.Chat, error)
	RemoveChatMember(chatID, userID string) error

	CreateMessage(msg *models.Message) error
	GetMessageByID(messageID string) (*models.Message, error)
	ListEphemeralByState(chatID string, state models.LifecycleState) ([]models.Message, error)
	TransitionMessageState(messageID string, from, to models.LifecycleState) (bool, error)
	DeleteMessage(messageID string) (bool, error)

	SaveView(view *models.MessageView) error
	MarkViewedByRecipient(messageID string, at time.Time) error
	GetViewerIDs(messageID string) ([]string, error)
	CountDistinctViewers(messageID string, viewerIDs []string) (int, error)

	UpsertPresence(presence *models.ChatPresence) error
	HasActivePresence(chatID string) (bool, error)

	PublishDeletionEvent(event models.DeletionEvent) error

	PurgeStalePresence(olderThan time.Time) (int, error)
	PurgeOldViews(olderThan time.Time) (int, error)
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// CreateChat stores a chat record in PostgreSQL.
func (s *Service) CreateChat(chat *models.Chat) error {
	return s.DB.Create(chat).Error
}

// GetChatByID reads the chat and its roster. Callers must call this fresh
// on every policy evaluation; membership is never cached across calls.
func (s *Service) GetChatByID(chatID string) (*models.Chat, error) {
	var chat models.Chat
	err := s.DB.Where("id = ?", chatID).First(&chat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		log.Printf("ERROR: Failed to get chat %s: %v", chatID, err)
		return nil, err
	}
	return &chat, nil
}

// RemoveChatMember drops one user from the chat roster. Views already
// recorded by that user are kept; only the denominator of future
// completeness checks shrinks.
func (s *Service) RemoveChatMember(chatID, userID string) error {
	res := s.DB.Model(&models.Chat{}).
		Where("id = ?", chatID).
		Update("member_ids", gorm.Expr("array_remove(member_ids, ?)", userID))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrChatNotFound
	}
	return nil
}

// CreateMessage stores a message row. The message store proper owns content
// and media; rows created here carry only lifecycle metadata.
func (s *Service) CreateMessage(msg *models.Message) error {
	if msg.LifecycleState == "" {
		msg.LifecycleState = models.StateActive
	}
	return s.DB.Create(msg).Error
}

func (s *Service) GetMessageByID(messageID string) (*models.Message, error) {
	var msg models.Message
	err := s.DB.Where("id = ?", messageID).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListEphemeralByState returns ephemeral messages in the given lifecycle
// state, oldest first. An empty chatID scans all chats.
func (s *Service) ListEphemeralByState(chatID string, state models.LifecycleState) ([]models.Message, error) {
	var msgs []models.Message
	q := s.DB.Where("is_ephemeral = ?", true).
		Where("lifecycle_state = ?", state).
		Order("created_at asc")
	if chatID != "" {
		q = q.Where("chat_id = ?", chatID)
	}
	if err := q.Find(&msgs).Error; err != nil {
		log.Printf("ERROR: Failed to list %s messages: %v", state, err)
		return nil, err
	}
	return msgs, nil
}

// TransitionMessageState advances the lifecycle state only if the row is
// still in the expected prior state. Returns false when another reaper run
// already moved it, which callers treat as a no-op rather than an error.
func (s *Service) TransitionMessageState(messageID string, from, to models.LifecycleState) (bool, error) {
	res := s.DB.Model(&models.Message{}).
		Where("id = ?", messageID).
		Where("lifecycle_state = ?", from).
		Update("lifecycle_state", to)
	if res.Error != nil {
		return false, fmt.Errorf("transition message %s to %s: %w", messageID, to, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteMessage removes the row. Returns false if it was already gone, so
// concurrent reaper runs converge without double-publishing events.
func (s *Service) DeleteMessage(messageID string) (bool, error) {
	res := s.DB.Where("id = ?", messageID).Delete(&models.Message{})
	if res.Error != nil {
		return false, fmt.Errorf("delete message %s: %w", messageID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// SaveView records a view idempotently: the composite primary key plus
// ON CONFLICT DO NOTHING makes the second call for the same (message, user)
// pair a no-op instead of an error.
func (s *Service) SaveView(view *models.MessageView) error {
	err := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(view).Error
	if err != nil {
		return fmt.Errorf("save view: %w", err)
	}
	return nil
}

// MarkViewedByRecipient sets the denormalized direct-chat flag. Only the
// first call flips it; the timestamp of the first view wins.
func (s *Service) MarkViewedByRecipient(messageID string, at time.Time) error {
	return s.DB.Model(&models.Message{}).
		Where("id = ?", messageID).
		Where("viewed_by_recipient = ?", false).
		Updates(map[string]interface{}{
			"viewed_by_recipient": true,
			"viewed_at":           at,
		}).Error
}

// GetViewerIDs returns every user that has viewed the message.
func (s *Service) GetViewerIDs(messageID string) ([]string, error) {
	var viewers []string
	err := s.DB.Model(&models.MessageView{}).
		Where("message_id = ?", messageID).
		Pluck("viewer_id", &viewers).Error
	if err != nil {
		return nil, err
	}
	return viewers, nil
}

// CountDistinctViewers counts views of the message restricted to the given
// user IDs. Used with the current roster so that viewers who already left
// the chat are not counted toward completeness.
func (s *Service) CountDistinctViewers(messageID string, viewerIDs []string) (int, error) {
	if len(viewerIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := s.DB.Model(&models.MessageView{}).
		Where("message_id = ?", messageID).
		Where("viewer_id IN ?", viewerIDs).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// UpsertPresence writes the presence row keyed by (chat, user). The
// last_activity_at column is refreshed on every call, even when is_active
// did not change.
func (s *Service) UpsertPresence(presence *models.ChatPresence) error {
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_active", "last_activity_at"}),
	}).Create(presence).Error
	if err != nil {
		return fmt.Errorf("upsert presence: %w", err)
	}
	return nil
}

// HasActivePresence reports whether anyone currently has the chat open.
// Point-in-time check; stale rows from crashed clients keep answering true
// until the retention purge removes them.
func (s *Service) HasActivePresence(chatID string) (bool, error) {
	var count int64
	err := s.DB.Model(&models.ChatPresence{}).
		Where("chat_id = ?", chatID).
		Where("is_active = ?", true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// PublishDeletionEvent emits one deletion notification on the chat's Redis
// channel. Called once per deleted message, never batched.
func (s *Service) PublishDeletionEvent(event models.DeletionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := s.Redis.Publish(s.Ctx, DeletionChannel(event.ChatID), payload).Err(); err != nil {
		return fmt.Errorf("publish deletion event: %w", err)
	}
	return nil
}

// SubscribeDeletions subscribes to deletion events for one chat.
func (s *Service) SubscribeDeletions(chatID string) *redis.PubSub {
	return s.Redis.Subscribe(s.Ctx, DeletionChannel(chatID))
}

// DeletionChannel is the Redis channel carrying a chat's deletion events.
func DeletionChannel(chatID string) string {
	return "chat:deleted:" + chatID
}

// PurgeStalePresence removes presence rows with no activity since
// olderThan, including ones still flagged active. A client that crashed
// without clearing its flag blocks deletion for its chat only until this
// purge catches up with it.
func (s *Service) PurgeStalePresence(olderThan time.Time) (int, error) {
	res := s.DB.Where("last_activity_at < ?", olderThan).
		Delete(&models.ChatPresence{})
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

// PurgeOldViews removes view rows past the retention window. Independent of
// message lifecycle; it only bounds storage growth.
func (s *Service) PurgeOldViews(olderThan time.Time) (int, error) {
	res := s.DB.Where("viewed_at < ?", olderThan).
		Delete(&models.MessageView{})
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}
