package chat

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/iyunix/go-gemchat/internal/domain"
	"github.com/iyunix/go-gemchat/internal/repository/user"
	"github.com/iyunix/go-gemchat/internal/services/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendNewConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.pipeline.Send(ctx, SendRequest{Principal: alice, ConversationRef: NewConversationRef, Message: "Hello"})
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.False(t, result.Split)
	assert.Equal(t, "Hi! How can I help?", result.ResponseText)

	acting, err := f.users.FindByExternalID(ctx, alice.Subject)
	require.NoError(t, err, "user is created on first message")

	conv, err := f.convs.FindByIDAndUserID(ctx, result.ConversationID, acting.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", conv.Title)

	msgs, err := f.msgs.FindByConversationID(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, acting.ID, msgs[0].AuthorID)
	assert.Equal(t, "Hello", msgs[0].Content)
	assert.Nil(t, msgs[0].ModelUsed)

	assert.Equal(t, domain.ModelAuthorID, msgs[1].AuthorID)
	require.NotNil(t, msgs[1].ModelUsed)
	assert.Equal(t, "fake-model", *msgs[1].ModelUsed)
	assert.True(t, msgs[1].CreatedAt.After(msgs[0].CreatedAt), "reply is stamped after its prompt")

	assert.Equal(t, []string{"Hello"}, f.model.generated, "empty history uses single-turn generation")
	assert.Empty(t, f.model.chats)

	assert.Equal(t, []string{
		string(StateIdle),
		string(StateResolvingUser),
		string(StateResolvingConversation),
		string(StatePersistingUserMessage),
		string(StateCallingModel),
		string(StatePersistingModelMessage),
		string(StateDone),
	}, f.logger.states)
}

func TestSendRejectsBlankMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acting := f.mustUser(t, alice)

	// Whitespace-only content is rejected before anything is stored.
	_, err := f.pipeline.Send(ctx, SendRequest{Principal: alice, ConversationRef: "new", Message: "   "})
	assert.Equal(t, KindValidation, KindOf(err))

	convs, err := f.convs.ListByUserID(ctx, acting.ID)
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestSendContinuesWithinGap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acting := f.mustUser(t, alice)
	conv := f.seedConversation(t, acting,
		f.now.Add(-8*time.Minute),
		f.now.Add(-7*time.Minute),
		f.now.Add(-3*time.Minute),
		f.now.Add(-2*time.Minute),
	)

	result, err := f.pipeline.Send(ctx, SendRequest{Principal: alice, ConversationRef: conv.ID, Message: "And then?"})
	require.NoError(t, err)
	assert.Equal(t, conv.ID, result.ConversationID)
	assert.False(t, result.Created)

	require.Len(t, f.model.chats, 1)
	history := f.model.chats[0]
	require.Len(t, history, 2, "messages older than the window are not sent")
	assert.Equal(t, ai.RoleUser, history[0].Role)
	assert.Equal(t, ai.RoleAssistant, history[1].Role)

	msgs, err := f.msgs.FindByConversationID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 6)

	touched, err := f.convs.FindByIDAndUserID(ctx, conv.ID, acting.ID)
	require.NoError(t, err)
	assert.True(t, touched.UpdatedAt.After(f.now.Add(-time.Second)))
}

func TestSendSplitsAfterGap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acting := f.mustUser(t, alice)
	old := f.seedConversation(t, acting,
		f.now.Add(-12*time.Minute),
		f.now.Add(-10*time.Minute),
	)
	before, err := f.msgs.FindByConversationID(ctx, old.ID)
	require.NoError(t, err)

	result, err := f.pipeline.Send(ctx, SendRequest{Principal: alice, ConversationRef: old.ID, Message: "A fresh topic"})
	require.NoError(t, err)
	assert.NotEqual(t, old.ID, result.ConversationID)
	assert.True(t, result.Split)

	after, err := f.msgs.FindByConversationID(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after, "the old conversation is untouched")

	fresh, err := f.convs.FindByIDAndUserID(ctx, result.ConversationID, acting.ID)
	require.NoError(t, err)
	assert.Equal(t, "A fresh topic", fresh.Title)

	freshMsgs, err := f.msgs.FindByConversationID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Len(t, freshMsgs, 2)

	assert.Equal(t, []string{"A fresh topic"}, f.model.generated, "old history is dropped on split")
}

func TestSendEmptyConversationContinues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acting := f.mustUser(t, alice)

	conv, err := f.convs.Create(ctx, &domain.Conversation{UserID: acting.ID, Title: "Untouched", CreatedAt: f.now.Add(-time.Hour)})
	require.NoError(t, err)

	result, err := f.pipeline.Send(ctx, SendRequest{Principal: alice, ConversationRef: conv.ID, Message: "first"})
	require.NoError(t, err)
	assert.Equal(t, conv.ID, result.ConversationID)
	assert.False(t, result.Split)
}

func TestSendAcceptsWindowRef(t *testing.T) {
	f := newFixture(t)
	acting := f.mustUser(t, alice)
	start := f.now.Add(-2 * time.Minute)
	conv := f.seedConversation(t, acting, start, start.Add(time.Second))

	result, err := f.pipeline.Send(context.Background(), SendRequest{
		Principal:       alice,
		ConversationRef: FormatWindowRef(conv.ID, start),
		Message:         "continuing",
	})
	require.NoError(t, err)
	assert.Equal(t, conv.ID, result.ConversationID)
}

func TestSendRateLimitedExhaustsRetries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.model.always = ai.NewRateLimitError("chat", "fake-model", nil)

	_, err := f.pipeline.Send(ctx, SendRequest{Principal: alice, ConversationRef: "new", Message: "Hello"})
	require.Error(t, err)
	assert.Equal(t, KindUpstreamTransient, KindOf(err))

	assert.Equal(t, 3, f.model.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, f.sleeps)

	acting, err := f.users.FindByExternalID(ctx, alice.Subject)
	require.NoError(t, err)
	convs, err := f.convs.ListByUserID(ctx, acting.ID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, int64(1), convs[0].MessageCount, "the user message stays persisted")

	assert.Equal(t, string(StateFailed), f.logger.states[len(f.logger.states)-1])
}

func TestSendRecoversAfterRateLimit(t *testing.T) {
	f := newFixture(t)
	f.model.errs = []error{&ai.AIError{Type: ai.ErrTypeQuota}}

	result, err := f.pipeline.Send(context.Background(), SendRequest{Principal: alice, ConversationRef: "new", Message: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "Hi! How can I help?", result.ResponseText)
	assert.Equal(t, 2, f.model.calls)
	assert.Equal(t, []time.Duration{time.Second}, f.sleeps)
}

func TestSendFatalModelErrorNotRetried(t *testing.T) {
	f := newFixture(t)
	f.model.always = ai.NewProviderError("chat", "model request failed", nil)

	_, err := f.pipeline.Send(context.Background(), SendRequest{Principal: alice, ConversationRef: "new", Message: "Hello"})
	assert.Equal(t, KindUpstreamFatal, KindOf(err))
	assert.Equal(t, 1, f.model.calls)
	assert.Empty(t, f.sleeps)
}

func TestSendToForeignConversationIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.mustUser(t, bob)
	conv := f.seedConversation(t, owner, f.now.Add(-time.Minute), f.now.Add(-50*time.Second))

	_, err := f.pipeline.Send(ctx, SendRequest{Principal: alice, ConversationRef: conv.ID, Message: "let me in"})
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Zero(t, f.model.calls)

	msgs, err := f.msgs.FindByConversationID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestSendToMissingConversationIsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.pipeline.Send(context.Background(), SendRequest{Principal: alice, ConversationRef: "does-not-exist", Message: "hi"})
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.pipeline.Send(ctx, SendRequest{Principal: alice, ConversationRef: "new", Message: ""})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = f.pipeline.Send(ctx, SendRequest{Principal: alice, ConversationRef: "", Message: "hi"})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = f.users.FindByExternalID(ctx, alice.Subject)
	assert.ErrorIs(t, err, user.ErrUserNotFound, "nothing is stored for rejected input")

	_, err = f.pipeline.Send(ctx, SendRequest{ConversationRef: "new", Message: "hi"})
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func TestNewSendPipelineValidatesDependencies(t *testing.T) {
	f := newFixture(t)

	_, err := NewSendPipeline(DefaultConfig(), f.users, f.convs, f.msgs, nil, nopLogger{})
	assert.Equal(t, KindValidation, KindOf(err))

	bad := DefaultConfig()
	bad.MaxAttempts = 0
	_, err = NewSendPipeline(bad, f.users, f.convs, f.msgs, f.model, nopLogger{})
	assert.Error(t, err)
}

func TestSendAcceptsMultibyteMessageUpToLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	long := strings.Repeat("😀", 26000)
	result, err := f.pipeline.Send(ctx, SendRequest{Principal: alice, ConversationRef: "new", Message: long})
	require.NoError(t, err)
	assert.Equal(t, long, result.UserMessage.Content)
}

func TestSendRejectsMessageOverLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.pipeline.Send(ctx, SendRequest{
		Principal:       alice,
		ConversationRef: "new",
		Message:         strings.Repeat("é", domain.MaxContentRunes+1),
	})
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Zero(t, f.model.calls)
}

func TestSendTruncatesOverlongReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.model.reply = strings.Repeat("ß", domain.MaxContentRunes+1)

	result, err := f.pipeline.Send(ctx, SendRequest{Principal: alice, ConversationRef: "new", Message: "write a lot"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.model.calls)
	assert.Equal(t, domain.MaxContentRunes, utf8.RuneCountInString(result.ResponseText))

	msgs, err := f.msgs.FindByConversationID(ctx, result.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, result.ResponseText, msgs[1].Content)
}

func TestConfigRejectsMessageLimitAboveStoreLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxMessageLength = domain.MaxContentRunes + 1
	assert.Error(t, cfg.Validate())
}
