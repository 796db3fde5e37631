package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/iyunix/go-gemchat/internal/database"
	"github.com/iyunix/go-gemchat/internal/domain"
	"github.com/iyunix/go-gemchat/internal/repository/conversation"
	"github.com/iyunix/go-gemchat/internal/repository/message"
	"github.com/iyunix/go-gemchat/internal/repository/user"
	chatservice "github.com/iyunix/go-gemchat/internal/services/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = domain.Principal{Subject: "auth0|alice", Email: "alice@example.com", Name: "Alice"}
	bob   = domain.Principal{Subject: "auth0|bob", Email: "bob@example.com", Name: "Bob"}
	epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
)

type serviceFixture struct {
	users   user.UserRepository
	convs   conversation.ConversationRepository
	msgs    message.MessageRepository
	service *ConversationService
	userSvc *UserService
	now     time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	db, err := database.OpenAndMigrate("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	logger := &NoOpLogger{}
	f := &serviceFixture{
		users: user.NewGormUserRepository(db, logger),
		convs: conversation.NewConversationRepository(db, logger),
		msgs:  message.NewMessageRepository(db, logger),
		now:   epoch,
	}
	svc, err := NewConversationService(f.users, f.convs, f.msgs, logger)
	require.NoError(t, err)
	f.service = svc.WithClock(func() time.Time { return f.now })
	f.userSvc = NewUserService(f.users, logger)
	return f
}

func (f *serviceFixture) addMessages(t *testing.T, conv *domain.Conversation, authorID string, at ...time.Time) {
	t.Helper()
	for _, ts := range at {
		_, err := f.msgs.Create(context.Background(), &domain.Message{
			ConversationID: conv.ID,
			AuthorID:       authorID,
			Content:        "at " + ts.Format(time.TimeOnly),
			CreatedAt:      ts,
		})
		require.NoError(t, err)
	}
}

func TestConversationServiceCreateAndGet(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	conv, err := f.service.Create(ctx, alice, "  Trip planning ")
	require.NoError(t, err)
	assert.Equal(t, "Trip planning", conv.Title)
	assert.False(t, conv.Archived)

	got, err := f.service.Get(ctx, alice, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)

	untitled, err := f.service.Create(ctx, alice, "")
	require.NoError(t, err)
	assert.Empty(t, untitled.Title)

	_, err = f.service.Get(ctx, bob, conv.ID)
	assert.Equal(t, chatservice.KindNotFound, chatservice.KindOf(err))
}

func TestConversationServiceListOrdersAndCounts(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	older, err := f.service.Create(ctx, alice, "older")
	require.NoError(t, err)
	f.now = f.now.Add(time.Minute)
	newer, err := f.service.Create(ctx, alice, "newer")
	require.NoError(t, err)
	_, err = f.service.Create(ctx, bob, "bob's")
	require.NoError(t, err)

	owner, err := f.users.FindByExternalID(ctx, alice.Subject)
	require.NoError(t, err)
	f.addMessages(t, older, owner.ID, epoch, epoch.Add(time.Second), epoch.Add(2*time.Second))

	list, err := f.service.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, int64(0), list[0].MessageCount)
	assert.Equal(t, older.ID, list[1].ID)
	assert.Equal(t, int64(3), list[1].MessageCount)

	unknown, err := f.service.List(ctx, domain.Principal{Subject: "auth0|nobody"})
	require.NoError(t, err)
	assert.Empty(t, unknown)
}

func TestConversationServiceArchiveTwice(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	conv, err := f.service.Create(ctx, alice, "keep")
	require.NoError(t, err)

	first, err := f.service.Archive(ctx, alice, conv.ID, true)
	require.NoError(t, err)
	assert.True(t, first.Archived)

	second, err := f.service.Archive(ctx, alice, conv.ID, true)
	require.NoError(t, err)
	assert.True(t, second.Archived)

	restored, err := f.service.Archive(ctx, alice, conv.ID, false)
	require.NoError(t, err)
	assert.False(t, restored.Archived)
}

func TestConversationServiceRenameTouchesTimestamps(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	conv, err := f.service.Create(ctx, alice, "draft")
	require.NoError(t, err)

	f.now = epoch.Add(time.Hour)
	renamed, err := f.service.Rename(ctx, alice, conv.ID, "final")
	require.NoError(t, err)
	assert.Equal(t, "final", renamed.Title)
	assert.True(t, renamed.UpdatedAt.Equal(f.now))
	assert.True(t, renamed.LastActive.Equal(f.now))

	_, err = f.service.Rename(ctx, alice, conv.ID, "   ")
	assert.Equal(t, chatservice.KindValidation, chatservice.KindOf(err))

	_, err = f.service.Rename(ctx, bob, conv.ID, "mine now")
	assert.Equal(t, chatservice.KindNotFound, chatservice.KindOf(err))
}

func TestConversationServiceDeleteForeignIsNotFound(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	conv, err := f.service.Create(ctx, bob, "bob's secrets")
	require.NoError(t, err)
	owner, err := f.users.FindByExternalID(ctx, bob.Subject)
	require.NoError(t, err)
	f.addMessages(t, conv, owner.ID, epoch, epoch.Add(time.Second))

	// alice has no user row yet, then has one; both are NotFound.
	err = f.service.Delete(ctx, alice, conv.ID)
	assert.Equal(t, chatservice.KindNotFound, chatservice.KindOf(err))
	_, err = f.userSvc.Sync(ctx, alice)
	require.NoError(t, err)
	err = f.service.Delete(ctx, alice, conv.ID)
	assert.Equal(t, chatservice.KindNotFound, chatservice.KindOf(err))

	_, err = f.service.Get(ctx, bob, conv.ID)
	require.NoError(t, err)
	msgs, err := f.msgs.FindByConversationID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestConversationServiceDeleteRemovesMessages(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	conv, err := f.service.Create(ctx, alice, "short lived")
	require.NoError(t, err)
	owner, err := f.users.FindByExternalID(ctx, alice.Subject)
	require.NoError(t, err)
	f.addMessages(t, conv, owner.ID, epoch)

	require.NoError(t, f.service.Delete(ctx, alice, conv.ID))

	_, err = f.service.Get(ctx, alice, conv.ID)
	assert.Equal(t, chatservice.KindNotFound, chatservice.KindOf(err))
	remaining, err := f.msgs.FindByConversationID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestConversationServiceMessagesWithWindowRef(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	conv, err := f.service.Create(ctx, alice, "long running")
	require.NoError(t, err)
	owner, err := f.users.FindByExternalID(ctx, alice.Subject)
	require.NoError(t, err)
	f.addMessages(t, conv, owner.ID,
		epoch,
		epoch.Add(time.Minute),
		epoch.Add(30*time.Minute),
		epoch.Add(33*time.Minute),
	)

	all, err := f.service.Messages(ctx, alice, conv.ID)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	window, err := f.service.Messages(ctx, alice, chatservice.FormatWindowRef(conv.ID, epoch.Add(30*time.Minute)))
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.True(t, window[0].CreatedAt.Equal(epoch.Add(30*time.Minute)))

	none, err := f.service.Messages(ctx, alice, "new")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.service.Messages(ctx, bob, conv.ID)
	assert.Equal(t, chatservice.KindNotFound, chatservice.KindOf(err))

	_, err = f.service.Messages(ctx, alice, conv.ID+"_garbage")
	assert.Equal(t, chatservice.KindValidation, chatservice.KindOf(err))
}

func TestConversationServiceWindows(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	conv, err := f.service.Create(ctx, alice, "segmented")
	require.NoError(t, err)
	owner, err := f.users.FindByExternalID(ctx, alice.Subject)
	require.NoError(t, err)
	f.addMessages(t, conv, owner.ID, epoch, epoch.Add(2*time.Minute), epoch.Add(time.Hour))

	windows, err := f.service.Windows(ctx, alice, conv.ID)
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, chatservice.FormatWindowRef(conv.ID, epoch), windows[0].Ref)
	assert.Equal(t, 2, windows[0].MessageCount)
	assert.Equal(t, 1, windows[1].MessageCount)

	f.service.WithWindowGap(time.Minute)
	windows, err = f.service.Windows(ctx, alice, conv.ID)
	require.NoError(t, err)
	assert.Len(t, windows, 3)
}

func TestConversationServiceRejectsAnonymous(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.Create(context.Background(), domain.Principal{}, "x")
	assert.Equal(t, chatservice.KindUnauthorized, chatservice.KindOf(err))
}
