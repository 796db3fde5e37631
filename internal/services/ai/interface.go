package ai

import "context"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged entry of the history sent to the model.
type Turn struct {
	Role    Role
	Content string
}

// ModelClient is the language-model surface used by the send pipeline.
// Implementations return *AIError so callers can tell transient failures
// (rate limit, quota) from everything else.
type ModelClient interface {
	// Generate sends a single prompt with no history.
	Generate(ctx context.Context, prompt string) (string, error)
	// Chat sends prompt as the next user turn after history.
	Chat(ctx context.Context, history []Turn, prompt string) (string, error)
	// ModelName is recorded on persisted replies.
	ModelName() string
}
