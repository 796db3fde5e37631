// File: internal/repository/message/message_repository.go
package message

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/iyunix/go-gemchat/internal/domain"
	"gorm.io/gorm"
)

// ErrContentTooLong is returned when a body exceeds domain.MaxContentRunes.
var ErrContentTooLong = errors.New("message content too long")

type gormMessageRepository struct {
	db     *gorm.DB
	logger Logger
}

func NewMessageRepository(db *gorm.DB, logger Logger) MessageRepository {
	return &gormMessageRepository{db: db, logger: logger}
}

func (r *gormMessageRepository) Create(ctx context.Context, message *domain.Message) (*domain.Message, error) {
	if err := r.validateMessageInput(message); err != nil {
		r.logger.Warn("[MessageRepository] validation failed", "error", err)
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		r.logger.Error("[MessageRepository] database error creating message", "conversation_id", message.ConversationID, "error", err)
		return nil, errors.New("database error creating message")
	}

	r.logger.Debug("[MessageRepository] message created",
		"message_id", message.ID,
		"conversation_id", message.ConversationID,
		"from_model", message.IsFromModel())
	return message, nil
}

// FindByConversationID returns the full history in creation order.
func (r *gormMessageRepository) FindByConversationID(ctx context.Context, conversationID string) ([]domain.Message, error) {
	if conversationID == "" {
		return nil, errors.New("invalid conversation ID")
	}

	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		r.logger.Error("[MessageRepository] database error fetching history", "conversation_id", conversationID, "error", err)
		return nil, errors.New("database error fetching messages")
	}
	return messages, nil
}

func (r *gormMessageRepository) validateMessageInput(message *domain.Message) error {
	if message == nil {
		return errors.New("message cannot be nil")
	}
	if message.ConversationID == "" {
		return errors.New("conversation ID is required")
	}
	if message.AuthorID == "" {
		return errors.New("author ID is required")
	}
	if strings.TrimSpace(message.Content) == "" && message.ImageURL == nil {
		return errors.New("message content cannot be empty")
	}
	if utf8.RuneCountInString(message.Content) > domain.MaxContentRunes {
		return fmt.Errorf("%w (max %d characters)", ErrContentTooLong, domain.MaxContentRunes)
	}
	switch message.Type {
	case "", domain.MessageTypeText, domain.MessageTypeImage:
	default:
		return errors.New("invalid message type")
	}
	return nil
}
