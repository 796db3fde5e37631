// File: internal/repository/conversation/conversation_repository.go
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iyunix/go-gemchat/internal/domain"
	"gorm.io/gorm"
)

var ErrConversationNotFound = errors.New("conversation not found")

const maxTitleLength = 100

type gormConversationRepository struct {
	db     *gorm.DB
	logger Logger
}

func NewConversationRepository(db *gorm.DB, logger Logger) ConversationRepository {
	return &gormConversationRepository{db: db, logger: logger}
}

// Create inserts a conversation. LastActive defaults to the creation instant.
func (r *gormConversationRepository) Create(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, error) {
	if err := r.validateConversationInput(conv); err != nil {
		r.logger.Warn("[ConversationRepository] validation failed", "error", err)
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if conv.LastActive.IsZero() {
		conv.LastActive = conv.CreatedAt
	}

	if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
		r.logger.Error("[ConversationRepository] database error creating conversation", "user_id", conv.UserID, "error", err)
		return nil, errors.New("database error creating conversation")
	}

	r.logger.Debug("[ConversationRepository] conversation created", "conversation_id", conv.ID, "user_id", conv.UserID)
	return conv, nil
}

func (r *gormConversationRepository) FindByIDAndUserID(ctx context.Context, id, userID string) (*domain.Conversation, error) {
	if id == "" || userID == "" {
		return nil, ErrConversationNotFound
	}

	var conv domain.Conversation
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&conv).Error
	return r.handleFindError(err, &conv, "FindByIDAndUserID")
}

// ListByUserID returns the owner's conversations, most recently updated
// first, each with its message count.
func (r *gormConversationRepository) ListByUserID(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	if userID == "" {
		return nil, errors.New("invalid user ID")
	}

	var summaries []domain.ConversationSummary
	err := r.db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Select("conversations.*, COUNT(messages.id) AS message_count").
		Joins("LEFT JOIN messages ON messages.conversation_id = conversations.id").
		Where("conversations.user_id = ?", userID).
		Group("conversations.id").
		Order("conversations.updated_at DESC, conversations.id DESC").
		Scan(&summaries).Error
	if err != nil {
		r.logger.Error("[ConversationRepository] database error listing conversations", "user_id", userID, "error", err)
		return nil, errors.New("database error fetching conversations")
	}
	return summaries, nil
}

func (r *gormConversationRepository) UpdateTitle(ctx context.Context, id, userID, title string, at time.Time) (*domain.Conversation, error) {
	if err := r.validateTitle(title); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return r.updateOwned(ctx, id, userID, map[string]interface{}{
		"title":       title,
		"updated_at":  at,
		"last_active": at,
	}, "UpdateTitle")
}

// SetArchived is idempotent: archiving an archived conversation succeeds and
// leaves archived=true.
func (r *gormConversationRepository) SetArchived(ctx context.Context, id, userID string, archived bool, at time.Time) (*domain.Conversation, error) {
	return r.updateOwned(ctx, id, userID, map[string]interface{}{
		"archived":    archived,
		"updated_at":  at,
		"last_active": at,
	}, "SetArchived")
}

// Touch bumps UpdatedAt and LastActive after a new exchange.
func (r *gormConversationRepository) Touch(ctx context.Context, id string, at time.Time) error {
	if id == "" {
		return errors.New("invalid conversation ID")
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"updated_at": at, "last_active": at})
	if result.Error != nil {
		r.logger.Error("[ConversationRepository] database error touching conversation", "conversation_id", id, "error", result.Error)
		return errors.New("database error updating conversation timestamp")
	}
	if result.RowsAffected == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// Delete removes the conversation and all of its messages in one transaction.
// A conversation owned by someone else is reported as not found and left
// untouched.
func (r *gormConversationRepository) Delete(ctx context.Context, id, userID string) error {
	if id == "" || userID == "" {
		return ErrConversationNotFound
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&domain.Conversation{}).
			Where("id = ? AND user_id = ?", id, userID).
			Count(&owned).Error; err != nil {
			return err
		}
		if owned == 0 {
			return ErrConversationNotFound
		}

		if err := tx.Where("conversation_id = ?", id).Delete(&domain.Message{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Conversation{}).Error
	})
	if errors.Is(err, ErrConversationNotFound) {
		return err
	}
	if err != nil {
		r.logger.Error("[ConversationRepository] database error deleting conversation", "conversation_id", id, "user_id", userID, "error", err)
		return errors.New("database error deleting conversation")
	}

	r.logger.Info("[ConversationRepository] conversation deleted", "conversation_id", id, "user_id", userID)
	return nil
}

func (r *gormConversationRepository) updateOwned(ctx context.Context, id, userID string, fields map[string]interface{}, operation string) (*domain.Conversation, error) {
	if id == "" || userID == "" {
		return nil, ErrConversationNotFound
	}

	var conv domain.Conversation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&conv).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Conversation{}).Where("id = ?", conv.ID).Updates(fields).Error; err != nil {
			return err
		}
		return tx.First(&conv, "id = ?", conv.ID).Error
	})
	return r.handleFindError(err, &conv, operation)
}

func (r *gormConversationRepository) validateConversationInput(conv *domain.Conversation) error {
	if conv == nil {
		return errors.New("conversation cannot be nil")
	}
	if conv.UserID == "" {
		return errors.New("user ID is required")
	}
	if len([]rune(conv.Title)) > maxTitleLength {
		return fmt.Errorf("title must be %d characters or less", maxTitleLength)
	}
	return nil
}

func (r *gormConversationRepository) validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return errors.New("title cannot be empty")
	}
	if len([]rune(title)) > maxTitleLength {
		return fmt.Errorf("title must be %d characters or less", maxTitleLength)
	}
	return nil
}

// handleFindError maps gorm's not-found to ErrConversationNotFound and hides
// driver details from callers.
func (r *gormConversationRepository) handleFindError(err error, conv *domain.Conversation, operation string) (*domain.Conversation, error) {
	if err == nil {
		return conv, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}

	r.logger.Error("[ConversationRepository] database error", "operation", operation, "error", err)
	return nil, errors.New("database query failed")
}
