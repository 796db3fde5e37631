package conversation

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/iyunix/go-gemchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}
func (nopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (nopLogger) Warn(msg string, keysAndValues ...interface{})  {}

func setupRepo(t *testing.T) (*gorm.DB, ConversationRepository) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Conversation{}, &domain.Message{}))
	return db, NewConversationRepository(db, nopLogger{})
}

func TestCreateDefaultsLastActive(t *testing.T) {
	_, repo := setupRepo(t)
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	conv, err := repo.Create(context.Background(), &domain.Conversation{UserID: "u1", Title: "t", CreatedAt: at})
	require.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
	assert.True(t, conv.LastActive.Equal(at))
}

func TestCreateValidation(t *testing.T) {
	_, repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, &domain.Conversation{Title: "no owner"})
	assert.Error(t, err)

	long := make([]rune, maxTitleLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = repo.Create(ctx, &domain.Conversation{UserID: "u1", Title: string(long)})
	assert.Error(t, err)
}

func TestFindIsOwnerScoped(t *testing.T) {
	_, repo := setupRepo(t)
	ctx := context.Background()
	conv, err := repo.Create(ctx, &domain.Conversation{UserID: "u1"})
	require.NoError(t, err)

	_, err = repo.FindByIDAndUserID(ctx, conv.ID, "u1")
	require.NoError(t, err)
	_, err = repo.FindByIDAndUserID(ctx, conv.ID, "u2")
	assert.ErrorIs(t, err, ErrConversationNotFound)
	_, err = repo.FindByIDAndUserID(ctx, "", "u1")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestUpdateTitleAndArchive(t *testing.T) {
	_, repo := setupRepo(t)
	ctx := context.Background()
	conv, err := repo.Create(ctx, &domain.Conversation{UserID: "u1", Title: "old"})
	require.NoError(t, err)
	at := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	renamed, err := repo.UpdateTitle(ctx, conv.ID, "u1", "new", at)
	require.NoError(t, err)
	assert.Equal(t, "new", renamed.Title)
	assert.True(t, renamed.UpdatedAt.Equal(at))

	_, err = repo.UpdateTitle(ctx, conv.ID, "u2", "hijack", at)
	assert.ErrorIs(t, err, ErrConversationNotFound)
	_, err = repo.UpdateTitle(ctx, conv.ID, "u1", "", at)
	assert.Error(t, err)

	for i := 0; i < 2; i++ {
		archived, err := repo.SetArchived(ctx, conv.ID, "u1", true, at)
		require.NoError(t, err)
		assert.True(t, archived.Archived)
	}
}

func TestTouch(t *testing.T) {
	_, repo := setupRepo(t)
	ctx := context.Background()
	conv, err := repo.Create(ctx, &domain.Conversation{UserID: "u1"})
	require.NoError(t, err)
	at := time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Touch(ctx, conv.ID, at))
	got, err := repo.FindByIDAndUserID(ctx, conv.ID, "u1")
	require.NoError(t, err)
	assert.True(t, got.LastActive.Equal(at))

	assert.ErrorIs(t, repo.Touch(ctx, "missing", at), ErrConversationNotFound)
}

func TestDeleteCascadesMessagesAndChecksOwner(t *testing.T) {
	db, repo := setupRepo(t)
	ctx := context.Background()
	conv, err := repo.Create(ctx, &domain.Conversation{UserID: "u1"})
	require.NoError(t, err)
	require.NoError(t, db.Create(&domain.Message{ConversationID: conv.ID, AuthorID: "u1", Content: "hi"}).Error)

	assert.ErrorIs(t, repo.Delete(ctx, conv.ID, "u2"), ErrConversationNotFound)
	var count int64
	db.Model(&domain.Message{}).Where("conversation_id = ?", conv.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	require.NoError(t, repo.Delete(ctx, conv.ID, "u1"))
	db.Model(&domain.Message{}).Where("conversation_id = ?", conv.ID).Count(&count)
	assert.Zero(t, count)
	assert.ErrorIs(t, repo.Delete(ctx, conv.ID, "u1"), ErrConversationNotFound)
}
