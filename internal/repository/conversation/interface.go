// File: internal/repository/conversation/interface.go
package conversation

import (
	"context"
	"time"

	"github.com/iyunix/go-gemchat/internal/domain"
)

// ConversationRepository handles conversation data operations. Every read or
// write that takes a userID is scoped to that owner.
type ConversationRepository interface {
	Create(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, error)
	FindByIDAndUserID(ctx context.Context, id, userID string) (*domain.Conversation, error)
	ListByUserID(ctx context.Context, userID string) ([]domain.ConversationSummary, error)
	UpdateTitle(ctx context.Context, id, userID, title string, at time.Time) (*domain.Conversation, error)
	SetArchived(ctx context.Context, id, userID string, archived bool, at time.Time) (*domain.Conversation, error)
	Touch(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id, userID string) error
}

// Logger is the logging surface the repository needs.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}
