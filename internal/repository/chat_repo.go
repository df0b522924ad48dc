package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/taskguru/taskguru-api/internal/models"
)

// ChatRepository persists chats and their messages.
type ChatRepository interface {
	EnsureChat(ctx context.Context, chat *models.Chat) (models.Chat, error)
	FindByID(ctx context.Context, id uint) (models.Chat, error)
	FindByKey(ctx context.Context, chatKey string) (models.Chat, error)
	ListByMember(ctx context.Context, uid string) ([]models.Chat, error)
	ListWithUnread(ctx context.Context, uid string) ([]models.Chat, error)
	SaveMessage(ctx context.Context, chat models.Chat, message *models.Message) error
	LatestMessage(ctx context.Context, chatID uint) (models.Message, error)
	ListMessages(ctx context.Context, chatID uint, before time.Time, limit int) ([]models.Message, error)
	UnreadCount(ctx context.Context, chatID uint, uid string) (int64, error)
	MarkRead(ctx context.Context, chat models.Chat, uid string) (int64, error)
	TotalUnread(ctx context.Context, uid string) (int64, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository constructs a chat repository backed by GORM.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// EnsureChat returns the chat for the pair, creating it on first contact.
// The unique index on chat_key arbitrates concurrent creation: when the
// insert loses the race, the winner's row is fetched instead.
func (r *chatRepository) EnsureChat(ctx context.Context, chat *models.Chat) (models.Chat, error) {
	existing, err := r.FindByKey(ctx, chat.ChatKey)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Chat{}, err
	}

	if createErr := r.db.WithContext(ctx).Create(chat).Error; createErr != nil {
		existing, err = r.FindByKey(ctx, chat.ChatKey)
		if err == nil {
			return existing, nil
		}
		return models.Chat{}, createErr
	}

	return *chat, nil
}

func (r *chatRepository) FindByID(ctx context.Context, id uint) (models.Chat, error) {
	var chat models.Chat
	if err := r.db.WithContext(ctx).First(&chat, id).Error; err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

func (r *chatRepository) FindByKey(ctx context.Context, chatKey string) (models.Chat, error) {
	var chat models.Chat
	if err := r.db.WithContext(ctx).Where("chat_key = ?", chatKey).First(&chat).Error; err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

func (r *chatRepository) ListByMember(ctx context.Context, uid string) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.WithContext(ctx).
		Where("member_a = ? OR member_b = ?", uid, uid).
		Order("last_message_at DESC NULLS LAST").
		Find(&chats).Error
	if err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *chatRepository) ListWithUnread(ctx context.Context, uid string) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.WithContext(ctx).
		Where("(member_a = ? AND unread_a > 0) OR (member_b = ? AND unread_b > 0)", uid, uid).
		Order("last_message_at DESC").
		Find(&chats).Error
	if err != nil {
		return nil, err
	}
	return chats, nil
}

// SaveMessage persists the message, refreshes the chat's denormalized
// last-message preview, and bumps the counterpart's unread counter with an
// atomic SQL increment.
func (r *chatRepository) SaveMessage(ctx context.Context, chat models.Chat, message *models.Message) error {
	unreadColumn := "unread_b"
	if message.SenderUID == chat.MemberB {
		unreadColumn = "unread_a"
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}

		preview := message.Text
		if preview == "" && message.ImageURL != "" {
			preview = "[image]"
		}

		return tx.Model(&models.Chat{}).Where("id = ?", chat.ID).Updates(map[string]interface{}{
			"last_message_text":   preview,
			"last_message_sender": message.SenderUID,
			"last_message_at":     message.CreatedAt,
			unreadColumn:          gorm.Expr(unreadColumn+" + ?", 1),
		}).Error
	})
}

func (r *chatRepository) LatestMessage(ctx context.Context, chatID uint) (models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		First(&message).Error
	if err != nil {
		return models.Message{}, err
	}
	return message, nil
}

func (r *chatRepository) ListMessages(ctx context.Context, chatID uint, before time.Time, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := r.db.WithContext(ctx).Where("chat_id = ?", chatID)
	if !before.IsZero() {
		query = query.Where("created_at < ?", before)
	}

	var messages []models.Message
	if err := query.Order("created_at DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}

	// Reverse to chronological order ascending for clients.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *chatRepository) UnreadCount(ctx context.Context, chatID uint, uid string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("chat_id = ? AND sender_uid <> ? AND read = ?", chatID, uid, false).
		Count(&total).Error
	return total, err
}

// MarkRead flips every unread counterpart message and zeroes the member's
// denormalized counter in one transaction. Returns how many messages flipped.
func (r *chatRepository) MarkRead(ctx context.Context, chat models.Chat, uid string) (int64, error) {
	unreadColumn := "unread_a"
	if chat.MemberB == uid {
		unreadColumn = "unread_b"
	}

	var flipped int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Message{}).
			Where("chat_id = ? AND sender_uid <> ? AND read = ?", chat.ID, uid, false).
			Update("read", true)
		if result.Error != nil {
			return result.Error
		}
		flipped = result.RowsAffected

		return tx.Model(&models.Chat{}).Where("id = ?", chat.ID).Update(unreadColumn, 0).Error
	})
	if err != nil {
		return 0, err
	}

	return flipped, nil
}

func (r *chatRepository) TotalUnread(ctx context.Context, uid string) (int64, error) {
	var chats []models.Chat
	err := r.db.WithContext(ctx).
		Where("member_a = ? OR member_b = ?", uid, uid).
		Find(&chats).Error
	if err != nil {
		return 0, err
	}

	var total int64
	for _, chat := range chats {
		total += chat.UnreadFor(uid)
	}
	return total, nil
}
