// File: internal/repository/message/interface.go
package message

import (
	"context"

	"github.com/iyunix/go-gemchat/internal/domain"
)

// MessageRepository handles message data operations. Messages are append-only:
// there is no update method.
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) (*domain.Message, error)
	FindByConversationID(ctx context.Context, conversationID string) ([]domain.Message, error)
}

type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}
