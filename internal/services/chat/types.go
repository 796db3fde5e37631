package chat

import (
	"time"

	"github.com/iyunix/go-gemchat/internal/domain"
)

// Logger defines the logging interface used across chat services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// SendRequest is one user message submitted to a conversation reference:
// "new", a conversation id, or a window ref "<id>_<millis>".
type SendRequest struct {
	Principal       domain.Principal
	ConversationRef string
	Message         string
}

// SendResult is what the caller gets back after a successful exchange.
// ConversationID differs from the requested ref when a new conversation was
// started or the old one was split.
type SendResult struct {
	ConversationID string
	ResponseText   string
	Created        bool
	Split          bool
	UserMessage    *domain.Message
	ModelMessage   *domain.Message
}

// State names the stages of the send pipeline. Transitions are debug-logged.
type State string

const (
	StateIdle                   State = "Idle"
	StateResolvingUser          State = "ResolvingUser"
	StateResolvingConversation  State = "ResolvingConversation"
	StatePersistingUserMessage  State = "PersistingUserMessage"
	StateCallingModel           State = "CallingModel"
	StatePersistingModelMessage State = "PersistingModelMessage"
	StateDone                   State = "Done"
	StateFailed                 State = "Failed"
)

// Clock returns the evaluation instant. Tests inject a fixed one.
type Clock func() time.Time
