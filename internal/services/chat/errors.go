// File: internal/services/chat/errors.go
package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/iyunix/go-gemchat/internal/repository/conversation"
	"github.com/iyunix/go-gemchat/internal/repository/message"
	"github.com/iyunix/go-gemchat/internal/repository/user"
	"github.com/iyunix/go-gemchat/internal/services/ai"
)

type ErrorKind string

const (
	KindUnauthorized      ErrorKind = "UNAUTHORIZED"
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindValidation        ErrorKind = "VALIDATION"
	KindUpstreamTransient ErrorKind = "UPSTREAM_TRANSIENT"
	KindUpstreamFatal     ErrorKind = "UPSTREAM_FATAL"
	KindInternal          ErrorKind = "INTERNAL"
)

// ErrRetriesExhausted is returned when the retry loop ends without ever
// capturing an error, e.g. a policy with zero attempts.
var ErrRetriesExhausted = errors.New("exhausted retries")

type ChatError struct {
	Kind      ErrorKind
	Operation string
	Message   string
	Cause     error
}

func (e *ChatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Chat %s error in %s: %s (caused by: %v)",
			e.Kind, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("Chat %s error in %s: %s", e.Kind, e.Operation, e.Message)
}

func (e *ChatError) Unwrap() error {
	return e.Cause
}

func NewValidationError(operation, msg string) *ChatError {
	return &ChatError{Kind: KindValidation, Operation: operation, Message: msg}
}

func NewNotFoundError(operation, msg string) *ChatError {
	return &ChatError{Kind: KindNotFound, Operation: operation, Message: msg}
}

func NewUnauthorizedError(operation string) *ChatError {
	return &ChatError{Kind: KindUnauthorized, Operation: operation, Message: "authentication required"}
}

func NewInternalError(operation, msg string, cause error) *ChatError {
	return &ChatError{Kind: KindInternal, Operation: operation, Message: msg, Cause: cause}
}

// NewUpstreamError classifies a model failure. Only typed rate-limit and
// quota errors count as transient.
func NewUpstreamError(operation string, cause error) *ChatError {
	if ai.IsTransient(cause) {
		return &ChatError{Kind: KindUpstreamTransient, Operation: operation, Message: "the model is busy, please try again shortly", Cause: cause}
	}
	return &ChatError{Kind: KindUpstreamFatal, Operation: operation, Message: "the model failed to respond", Cause: cause}
}

// FromStoreError maps repository sentinels onto kinds. Everything else is
// internal; the cause is kept for logging only.
func FromStoreError(operation string, err error) *ChatError {
	var chatErr *ChatError
	if errors.As(err, &chatErr) {
		return chatErr
	}
	switch {
	case errors.Is(err, conversation.ErrConversationNotFound):
		return &ChatError{Kind: KindNotFound, Operation: operation, Message: "conversation not found", Cause: err}
	case errors.Is(err, message.ErrContentTooLong):
		return &ChatError{Kind: KindValidation, Operation: operation, Message: "message is too long", Cause: err}
	case errors.Is(err, user.ErrUserNotFound):
		return &ChatError{Kind: KindNotFound, Operation: operation, Message: "user not found", Cause: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &ChatError{Kind: KindInternal, Operation: operation, Message: "request cancelled", Cause: err}
	}
	return NewInternalError(operation, "internal error", err)
}

// KindOf returns the kind carried by err, or KindInternal for untyped errors.
func KindOf(err error) ErrorKind {
	var chatErr *ChatError
	if errors.As(err, &chatErr) {
		return chatErr.Kind
	}
	return KindInternal
}
