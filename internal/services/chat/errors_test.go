package chat

import (
	"errors"
	"fmt"
	"testing"

	"github.com/iyunix/go-gemchat/internal/repository/conversation"
	"github.com/iyunix/go-gemchat/internal/repository/message"
	"github.com/iyunix/go-gemchat/internal/services/ai"
	"github.com/stretchr/testify/assert"
)

func TestFromStoreErrorKinds(t *testing.T) {
	tooLong := fmt.Errorf("validation failed: %w", message.ErrContentTooLong)
	assert.Equal(t, KindValidation, KindOf(FromStoreError("persist_user_message", tooLong)))
	assert.Equal(t, KindNotFound, KindOf(FromStoreError("get", conversation.ErrConversationNotFound)))
	assert.Equal(t, KindInternal, KindOf(FromStoreError("get", errors.New("database query failed"))))

	original := NewValidationError("op", "bad")
	assert.Same(t, original, FromStoreError("other", original))
}

func TestNewUpstreamErrorKinds(t *testing.T) {
	assert.Equal(t, KindUpstreamTransient, NewUpstreamError("call", ai.NewRateLimitError("chat", "m", nil)).Kind)
	assert.Equal(t, KindUpstreamFatal, NewUpstreamError("call", errors.New("boom")).Kind)
}
