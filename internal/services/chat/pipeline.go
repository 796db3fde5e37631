// File: internal/services/chat/pipeline.go
package chat

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iyunix/go-gemchat/internal/domain"
	"github.com/iyunix/go-gemchat/internal/repository/conversation"
	"github.com/iyunix/go-gemchat/internal/repository/message"
	"github.com/iyunix/go-gemchat/internal/repository/user"
	"github.com/iyunix/go-gemchat/internal/services/ai"
)

// SendPipeline turns one user message into a persisted exchange:
// resolve the user, resolve (or split) the conversation, store the prompt,
// call the model with bounded retry, store the reply.
type SendPipeline struct {
	config        *Config
	users         user.UserRepository
	conversations conversation.ConversationRepository
	messages      message.MessageRepository
	model         ai.ModelClient
	retry         *RetryPolicy
	locks         *KeyLock
	splits        *splitTargets
	now           Clock
	logger        Logger
}

func NewSendPipeline(
	config *Config,
	users user.UserRepository,
	conversations conversation.ConversationRepository,
	messages message.MessageRepository,
	model ai.ModelClient,
	logger Logger,
) (*SendPipeline, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, NewValidationError("config", err.Error())
	}
	if users == nil || conversations == nil || messages == nil {
		return nil, NewValidationError("constructor", "repositories are required")
	}
	if model == nil {
		return nil, NewValidationError("constructor", "model client is required")
	}

	return &SendPipeline{
		config:        config,
		users:         users,
		conversations: conversations,
		messages:      messages,
		model:         model,
		retry:         NewRetryPolicy(config),
		locks:         NewKeyLock(),
		splits:        newSplitTargets(),
		now:           time.Now,
		logger:        logger,
	}, nil
}

// WithClock replaces the evaluation clock.
func (p *SendPipeline) WithClock(now Clock) *SendPipeline {
	p.now = now
	return p
}

// WithSleeper replaces the wait between model attempts.
func (p *SendPipeline) WithSleeper(sleep Sleeper) *SendPipeline {
	p.retry.Sleep = sleep
	return p
}

// RetryPolicy exposes the policy so callers can inspect the schedule.
func (p *SendPipeline) RetryPolicy() *RetryPolicy {
	return p.retry
}

func (p *SendPipeline) clock() time.Time {
	return p.now().UTC().Truncate(time.Millisecond)
}

func (p *SendPipeline) enter(state State, keysAndValues ...interface{}) {
	p.logger.Debug("send pipeline state", append([]interface{}{"state", string(state)}, keysAndValues...)...)
}

// resolution is the outcome of conversation resolution.
type resolution struct {
	conversationID string
	created        bool
	split          bool
	history        []domain.Message
}

// Send runs the pipeline. The user message stays persisted even when the
// model call ultimately fails.
func (p *SendPipeline) Send(ctx context.Context, req SendRequest) (result *SendResult, err error) {
	p.enter(StateIdle, "ref", req.ConversationRef)
	defer func() {
		if err != nil {
			p.enter(StateFailed, "kind", string(KindOf(err)), "error", err)
		}
	}()

	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, NewValidationError("send_message", "message cannot be empty")
	}
	if utf8.RuneCountInString(req.Message) > p.config.MaxMessageLength {
		return nil, NewValidationError("send_message", "message is too long")
	}
	ref, err := ParseRef(req.ConversationRef)
	if err != nil {
		return nil, err
	}

	p.enter(StateResolvingUser, "subject", req.Principal.Subject)
	acting, err := p.resolveUser(ctx, req.Principal)
	if err != nil {
		return nil, err
	}

	userMsg, res, err := p.openExchange(ctx, acting.ID, ref, req.Message)
	if err != nil {
		return nil, err
	}

	turns := BuildTurns(res.history, acting.ID)
	reply, err := p.callModel(ctx, turns, text)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(reply) > domain.MaxContentRunes {
		p.logger.Warn("truncating long model reply",
			"conversation_id", res.conversationID,
			"runes", utf8.RuneCountInString(reply),
			"max_runes", domain.MaxContentRunes,
		)
		reply = TruncateText(reply, domain.MaxContentRunes)
	}

	p.enter(StatePersistingModelMessage, "conversation_id", res.conversationID)
	replyAt := p.clock()
	if !replyAt.After(userMsg.CreatedAt) {
		replyAt = userMsg.CreatedAt.Add(time.Millisecond)
	}
	modelName := p.model.ModelName()
	modelMsg := &domain.Message{
		ConversationID: res.conversationID,
		AuthorID:       domain.ModelAuthorID,
		Content:        reply,
		Type:           domain.MessageTypeText,
		ModelUsed:      &modelName,
		CreatedAt:      replyAt,
	}
	if _, err := p.messages.Create(ctx, modelMsg); err != nil {
		return nil, FromStoreError("persist_model_message", err)
	}
	if err := p.conversations.Touch(ctx, res.conversationID, replyAt); err != nil {
		p.logger.Warn("failed to touch conversation", "conversation_id", res.conversationID, "error", err)
	}

	p.enter(StateDone, "conversation_id", res.conversationID, "split", res.split)
	return &SendResult{
		ConversationID: res.conversationID,
		ResponseText:   reply,
		Created:        res.created,
		Split:          res.split,
		UserMessage:    userMsg,
		ModelMessage:   modelMsg,
	}, nil
}

// resolveUser finds the acting user, creating it from the principal's
// claims on first contact.
func (p *SendPipeline) resolveUser(ctx context.Context, principal domain.Principal) (*domain.User, error) {
	if principal.Subject == "" {
		return nil, NewUnauthorizedError("resolve_user")
	}

	found, err := p.users.FindByExternalID(ctx, principal.Subject)
	if err == nil {
		return found, nil
	}
	if !errors.Is(err, user.ErrUserNotFound) {
		return nil, FromStoreError("resolve_user", err)
	}

	p.logger.Info("creating user on first message", "subject", principal.Subject)
	created, err := p.users.Upsert(ctx, principal.ToUser())
	if err != nil {
		return nil, FromStoreError("resolve_user", err)
	}
	return created, nil
}

// openExchange resolves the conversation and stores the user message while
// holding the per-conversation lock, so concurrent sends to the same
// conversation see each other's prompt before deciding whether to split.
// A split is recorded under the same lock so a second send to the stale
// base joins the new conversation instead of splitting again.
func (p *SendPipeline) openExchange(ctx context.Context, userID string, ref Ref, text string) (*domain.Message, *resolution, error) {
	if !ref.New {
		unlock := p.locks.Lock(ref.BaseID)
		defer unlock()
	}

	p.enter(StateResolvingConversation, "new", ref.New, "base_id", ref.BaseID)
	now := p.clock()
	res, err := p.resolveConversation(ctx, userID, ref, text, now)
	if err != nil {
		return nil, nil, err
	}

	p.enter(StatePersistingUserMessage, "conversation_id", res.conversationID)
	userMsg := &domain.Message{
		ConversationID: res.conversationID,
		AuthorID:       userID,
		Content:        text,
		Type:           domain.MessageTypeText,
		CreatedAt:      now,
	}
	if _, err := p.messages.Create(ctx, userMsg); err != nil {
		return nil, nil, FromStoreError("persist_user_message", err)
	}
	return userMsg, res, nil
}

func (p *SendPipeline) resolveConversation(ctx context.Context, userID string, ref Ref, text string, now time.Time) (*resolution, error) {
	if ref.New {
		conv, err := p.createConversation(ctx, userID, text, now)
		if err != nil {
			return nil, err
		}
		return &resolution{conversationID: conv.ID, created: true}, nil
	}

	base, err := p.conversations.FindByIDAndUserID(ctx, ref.BaseID, userID)
	if err != nil {
		return nil, FromStoreError("resolve_conversation", err)
	}

	history, err := p.messages.FindByConversationID(ctx, base.ID)
	if err != nil {
		return nil, FromStoreError("resolve_conversation", err)
	}

	gap := p.config.WindowGap
	if ShouldSplit(history, now, gap) {
		joined, err := p.joinSplit(ctx, userID, base.ID, now)
		if err != nil || joined != nil {
			return joined, err
		}

		conv, err := p.createConversation(ctx, userID, text, now)
		if err != nil {
			return nil, err
		}
		p.splits.record(base.ID, conv.ID, now, gap)
		p.logger.Info("conversation split after inactivity",
			"from_conversation_id", base.ID,
			"to_conversation_id", conv.ID,
			"last_message_at", history[len(history)-1].CreatedAt,
		)
		return &resolution{conversationID: conv.ID, created: true, split: true}, nil
	}

	return &resolution{
		conversationID: base.ID,
		history:        RelevantHistory(history, now, gap),
	}, nil
}

// joinSplit continues the conversation an earlier send split baseID into,
// if that split is recent and its conversation is still live. A nil
// resolution means a fresh split is needed.
func (p *SendPipeline) joinSplit(ctx context.Context, userID, baseID string, now time.Time) (*resolution, error) {
	gap := p.config.WindowGap
	targetID, ok := p.splits.lookup(baseID, now, gap)
	if !ok {
		return nil, nil
	}

	target, err := p.conversations.FindByIDAndUserID(ctx, targetID, userID)
	if errors.Is(err, conversation.ErrConversationNotFound) {
		p.splits.forget(baseID)
		return nil, nil
	}
	if err != nil {
		return nil, FromStoreError("resolve_conversation", err)
	}

	history, err := p.messages.FindByConversationID(ctx, target.ID)
	if err != nil {
		return nil, FromStoreError("resolve_conversation", err)
	}
	if ShouldSplit(history, now, gap) {
		return nil, nil
	}

	p.splits.record(baseID, target.ID, now, gap)
	p.logger.Info("joining earlier split",
		"from_conversation_id", baseID,
		"to_conversation_id", target.ID,
	)
	return &resolution{
		conversationID: target.ID,
		split:          true,
		history:        RelevantHistory(history, now, gap),
	}, nil
}

func (p *SendPipeline) createConversation(ctx context.Context, userID, text string, now time.Time) (*domain.Conversation, error) {
	conv, err := p.conversations.Create(ctx, &domain.Conversation{
		UserID:     userID,
		Title:      TitleFor(text),
		CreatedAt:  now,
		UpdatedAt:  now,
		LastActive: now,
	})
	if err != nil {
		return nil, FromStoreError("create_conversation", err)
	}
	return conv, nil
}

// callModel runs on a context detached from the caller so a client
// disconnect does not abandon the exchange half-persisted.
func (p *SendPipeline) callModel(ctx context.Context, turns []ai.Turn, prompt string) (string, error) {
	modelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.config.ModelTimeout)
	defer cancel()

	policy := *p.retry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		p.logger.Warn("model call failed, retrying",
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"delay", delay,
			"error", err,
		)
	}

	reply, err := policy.Do(modelCtx, func(ctx context.Context, attempt int) (string, error) {
		p.enter(StateCallingModel, "attempt", attempt, "history_turns", len(turns))
		if len(turns) == 0 {
			return p.model.Generate(ctx, prompt)
		}
		return p.model.Chat(ctx, turns, prompt)
	})
	if err != nil {
		if errors.Is(err, ErrRetriesExhausted) {
			return "", &ChatError{Kind: KindUpstreamTransient, Operation: "call_model", Message: "the model is busy, please try again shortly", Cause: err}
		}
		return "", NewUpstreamError("call_model", err)
	}
	return reply, nil
}
