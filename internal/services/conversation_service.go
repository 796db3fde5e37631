// File: internal/services/conversation_service.go
package services

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
	chatservice "github.com/iyunix/go-gemchat/internal/services/chat"
)

const maxTitleLength = 100

// ConversationService is the owner-scoped CRUD surface over conversations
// and their messages. Rows owned by someone else are reported as not found.
type ConversationService struct {
	users         user.UserRepository
	conversations conversation.ConversationRepository
	messages      message.MessageRepository
	windowGap     time.Duration
	now           func() time.Time
	logger        Logger
}

func NewConversationService(
	users user.UserRepository,
	conversations conversation.ConversationRepository,
	messages message.MessageRepository,
	logger Logger,
) (*ConversationService, error) {
	if users == nil || conversations == nil || messages == nil {
		return nil, chatservice.NewValidationError("constructor", "repositories are required")
	}
	return &ConversationService{
		users:         users,
		conversations: conversations,
		messages:      messages,
		windowGap:     chatservice.WindowGap,
		now:           time.Now,
		logger:        logger,
	}, nil
}

// WithClock replaces the clock used for timestamps.
func (s *ConversationService) WithClock(now func() time.Time) *ConversationService {
	s.now = now
	return s
}

// WithWindowGap sets the gap used for window refs and segmentation. It
// should match the send pipeline's.
func (s *ConversationService) WithWindowGap(gap time.Duration) *ConversationService {
	if gap > 0 {
		s.windowGap = gap
	}
	return s
}

func (s *ConversationService) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// actingUser looks up the caller's row. With create set, a missing row is
// created from the principal's claims.
func (s *ConversationService) actingUser(ctx context.Context, principal domain.Principal, operation string, create bool) (*domain.User, error) {
	if principal.Subject == "" {
		return nil, chatservice.NewUnauthorizedError(operation)
	}
	u, err := s.users.FindByExternalID(ctx, principal.Subject)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, user.ErrUserNotFound) || !create {
		return nil, chatservice.FromStoreError(operation, err)
	}
	u, err = s.users.Upsert(ctx, principal.ToUser())
	if err != nil {
		return nil, chatservice.FromStoreError(operation, err)
	}
	return u, nil
}

func cleanTitle(operation, title string, required bool) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" && required {
		return "", chatservice.NewValidationError(operation, "title cannot be empty")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", chatservice.NewValidationError(operation, "title must be 100 characters or less")
	}
	return title, nil
}

// Create starts an empty conversation. An empty title leaves it untitled.
func (s *ConversationService) Create(ctx context.Context, principal domain.Principal, title string) (*domain.Conversation, error) {
	title, err := cleanTitle("create_conversation", title, false)
	if err != nil {
		return nil, err
	}
	owner, err := s.actingUser(ctx, principal, "create_conversation", true)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	conv, err := s.conversations.Create(ctx, &domain.Conversation{
		UserID:     owner.ID,
		Title:      title,
		CreatedAt:  now,
		UpdatedAt:  now,
		LastActive: now,
	})
	if err != nil {
		return nil, chatservice.FromStoreError("create_conversation", err)
	}
	s.logger.Info("conversation created", "conversation_id", conv.ID, "user_id", owner.ID)
	return conv, nil
}

// List returns the caller's conversations with message counts, most
// recently updated first. A caller with no user row has none.
func (s *ConversationService) List(ctx context.Context, principal domain.Principal) ([]domain.ConversationSummary, error) {
	owner, err := s.actingUser(ctx, principal, "list_conversations", false)
	if chatservice.KindOf(err) == chatservice.KindNotFound {
		return []domain.ConversationSummary{}, nil
	}
	if err != nil {
		return nil, err
	}

	summaries, err := s.conversations.ListByUserID(ctx, owner.ID)
	if err != nil {
		return nil, chatservice.FromStoreError("list_conversations", err)
	}
	if summaries == nil {
		summaries = []domain.ConversationSummary{}
	}
	return summaries, nil
}

func (s *ConversationService) Get(ctx context.Context, principal domain.Principal, id string) (*domain.Conversation, error) {
	owner, err := s.actingUser(ctx, principal, "get_conversation", false)
	if err != nil {
		return nil, notFoundForMissingUser(err, "get_conversation")
	}
	conv, err := s.conversations.FindByIDAndUserID(ctx, id, owner.ID)
	if err != nil {
		return nil, chatservice.FromStoreError("get_conversation", err)
	}
	return conv, nil
}

// Delete removes the conversation and its messages.
func (s *ConversationService) Delete(ctx context.Context, principal domain.Principal, id string) error {
	owner, err := s.actingUser(ctx, principal, "delete_conversation", false)
	if err != nil {
		return notFoundForMissingUser(err, "delete_conversation")
	}
	if err := s.conversations.Delete(ctx, id, owner.ID); err != nil {
		return chatservice.FromStoreError("delete_conversation", err)
	}
	s.logger.Info("conversation deleted", "conversation_id", id, "user_id", owner.ID)
	return nil
}

func (s *ConversationService) Rename(ctx context.Context, principal domain.Principal, id, title string) (*domain.Conversation, error) {
	title, err := cleanTitle("rename_conversation", title, true)
	if err != nil {
		return nil, err
	}
	owner, err := s.actingUser(ctx, principal, "rename_conversation", false)
	if err != nil {
		return nil, notFoundForMissingUser(err, "rename_conversation")
	}
	conv, err := s.conversations.UpdateTitle(ctx, id, owner.ID, title, s.clock())
	if err != nil {
		return nil, chatservice.FromStoreError("rename_conversation", err)
	}
	return conv, nil
}

// Archive sets the archived flag. Repeating the same value succeeds.
func (s *ConversationService) Archive(ctx context.Context, principal domain.Principal, id string, archived bool) (*domain.Conversation, error) {
	owner, err := s.actingUser(ctx, principal, "archive_conversation", false)
	if err != nil {
		return nil, notFoundForMissingUser(err, "archive_conversation")
	}
	conv, err := s.conversations.SetArchived(ctx, id, owner.ID, archived, s.clock())
	if err != nil {
		return nil, chatservice.FromStoreError("archive_conversation", err)
	}
	return conv, nil
}

// Messages returns the conversation's messages in time order. A window ref
// "<id>_<millis>" narrows the result to messages within the window gap of
// the marker.
func (s *ConversationService) Messages(ctx context.Context, principal domain.Principal, rawRef string) ([]domain.Message, error) {
	ref, err := chatservice.ParseRef(rawRef)
	if err != nil {
		return nil, err
	}
	if ref.New {
		return []domain.Message{}, nil
	}

	conv, err := s.Get(ctx, principal, ref.BaseID)
	if err != nil {
		return nil, err
	}
	history, err := s.messages.FindByConversationID(ctx, conv.ID)
	if err != nil {
		return nil, chatservice.FromStoreError("get_messages", err)
	}
	if ref.HasSplit() {
		history = chatservice.FilterAround(history, ref.SplitAt, s.windowGap)
	}
	if history == nil {
		history = []domain.Message{}
	}
	return history, nil
}

// Windows segments the conversation history into gap-separated windows.
func (s *ConversationService) Windows(ctx context.Context, principal domain.Principal, id string) ([]chatservice.Window, error) {
	conv, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	history, err := s.messages.FindByConversationID(ctx, conv.ID)
	if err != nil {
		return nil, chatservice.FromStoreError("get_windows", err)
	}
	windows := chatservice.Segment(conv.ID, history, s.windowGap)
	if windows == nil {
		windows = []chatservice.Window{}
	}
	return windows, nil
}

// notFoundForMissingUser hides whether the caller has a user row at all.
func notFoundForMissingUser(err error, operation string) error {
	if chatservice.KindOf(err) == chatservice.KindNotFound {
		return chatservice.NewNotFoundError(operation, "conversation not found")
	}
	return err
}
