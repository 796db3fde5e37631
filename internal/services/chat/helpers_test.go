package chat

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/iyunix/go-gemchat/internal/database"
	"github.com/iyunix/go-gemchat/internal/domain"
	"github.com/iyunix/go-gemchat/internal/repository/conversation"
	"github.com/iyunix/go-gemchat/internal/repository/message"
	"github.com/iyunix/go-gemchat/internal/repository/user"
	"github.com/iyunix/go-gemchat/internal/services/ai"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}
func (nopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (nopLogger) Warn(msg string, keysAndValues ...interface{})  {}

// recordingLogger keeps debug messages' state values.
type recordingLogger struct {
	nopLogger
	mu     sync.Mutex
	states []string
}

func (r *recordingLogger) Debug(msg string, keysAndValues ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if keysAndValues[i] == "state" {
			r.states = append(r.states, keysAndValues[i+1].(string))
		}
	}
}

type fakeModel struct {
	mu        sync.Mutex
	reply     string
	errs      []error // returned in order, then reply
	always    error   // returned on every call when set
	calls     int
	generated []string
	chats     [][]ai.Turn
}

func (f *fakeModel) next() (string, error) {
	f.calls++
	if f.always != nil {
		return "", f.always
	}
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return "", err
	}
	return f.reply, nil
}

func (f *fakeModel) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generated = append(f.generated, prompt)
	return f.next()
}

func (f *fakeModel) Chat(ctx context.Context, history []ai.Turn, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, history)
	return f.next()
}

func (f *fakeModel) ModelName() string { return "fake-model" }

type fixture struct {
	users    user.UserRepository
	convs    conversation.ConversationRepository
	msgs     message.MessageRepository
	model    *fakeModel
	pipeline *SendPipeline
	logger   *recordingLogger
	now      time.Time
	sleeps   []time.Duration
}

var testEpoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.OpenAndMigrate("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	f := &fixture{
		users:  user.NewGormUserRepository(db, nopLogger{}),
		convs:  conversation.NewConversationRepository(db, nopLogger{}),
		msgs:   message.NewMessageRepository(db, nopLogger{}),
		model:  &fakeModel{reply: "Hi! How can I help?"},
		logger: &recordingLogger{},
		now:    testEpoch,
	}

	pipeline, err := NewSendPipeline(DefaultConfig(), f.users, f.convs, f.msgs, f.model, f.logger)
	require.NoError(t, err)
	f.pipeline = pipeline.
		WithClock(func() time.Time { return f.now }).
		WithSleeper(func(ctx context.Context, d time.Duration) error {
			f.sleeps = append(f.sleeps, d)
			return nil
		})
	return f
}

var alice = domain.Principal{Subject: "auth0|alice", Email: "alice@example.com", Name: "Alice"}
var bob = domain.Principal{Subject: "auth0|bob", Email: "bob@example.com", Name: "Bob"}

func (f *fixture) mustUser(t *testing.T, p domain.Principal) *domain.User {
	t.Helper()
	u, err := f.users.Upsert(context.Background(), p.ToUser())
	require.NoError(t, err)
	return u
}

// seedConversation creates a conversation owned by owner with alternating
// user/model messages at the given instants.
func (f *fixture) seedConversation(t *testing.T, owner *domain.User, at ...time.Time) *domain.Conversation {
	t.Helper()
	ctx := context.Background()

	conv, err := f.convs.Create(ctx, &domain.Conversation{UserID: owner.ID, Title: "seeded", CreatedAt: at[0], UpdatedAt: at[0]})
	require.NoError(t, err)

	for i, ts := range at {
		author := owner.ID
		if i%2 == 1 {
			author = domain.ModelAuthorID
		}
		_, err := f.msgs.Create(ctx, &domain.Message{
			ConversationID: conv.ID,
			AuthorID:       author,
			Content:        "seed message " + ts.Format(time.RFC3339),
			CreatedAt:      ts,
		})
		require.NoError(t, err)
	}
	return conv
}
