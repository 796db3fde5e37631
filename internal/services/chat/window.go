// File: internal/services/chat/window.go
package chat

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/iyunix/go-gemchat/internal/domain"
	"github.com/iyunix/go-gemchat/internal/services/ai"
)

const (
	// WindowGap is the longest silence that still continues a conversation.
	WindowGap = 5 * time.Minute

	NewConversationRef = "new"
	TitleMaxRunes      = 50
	FallbackTitle      = "New Chat"
)

// Ref is a parsed conversation reference.
type Ref struct {
	New     bool
	BaseID  string
	SplitAt time.Time // zero unless the ref carried a "_<millis>" suffix
}

func (r Ref) HasSplit() bool {
	return !r.SplitAt.IsZero()
}

// ParseRef accepts "new", "<id>" or "<id>_<epochMillis>". Conversation ids
// are UUIDs and never contain '_'.
func ParseRef(ref string) (Ref, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Ref{}, NewValidationError("parse_ref", "conversation reference is required")
	}
	if ref == NewConversationRef {
		return Ref{New: true}, nil
	}

	idx := strings.LastIndex(ref, "_")
	if idx < 0 {
		return Ref{BaseID: ref}, nil
	}

	base, suffix := ref[:idx], ref[idx+1:]
	if base == "" {
		return Ref{}, NewValidationError("parse_ref", "conversation reference has no id")
	}
	millis, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil || millis < 0 {
		return Ref{}, NewValidationError("parse_ref", fmt.Sprintf("invalid split marker %q", suffix))
	}
	return Ref{BaseID: base, SplitAt: time.UnixMilli(millis).UTC()}, nil
}

// FormatWindowRef builds the transient identity of a conversation window.
func FormatWindowRef(conversationID string, start time.Time) string {
	return fmt.Sprintf("%s_%d", conversationID, start.UnixMilli())
}

// ShouldSplit reports whether a message arriving at now starts a new
// conversation, i.e. the last message is more than gap old. history must be
// ordered by CreatedAt; an empty history is always a continuation.
func ShouldSplit(history []domain.Message, now time.Time, gap time.Duration) bool {
	if len(history) == 0 {
		return false
	}
	last := history[len(history)-1]
	return now.Sub(last.CreatedAt) > gap
}

// RelevantHistory keeps the messages within gap of now, in either
// direction. It measures against now, not against the previous message.
func RelevantHistory(history []domain.Message, now time.Time, gap time.Duration) []domain.Message {
	return withinGap(history, now, gap)
}

// FilterAround keeps the messages within gap of a split marker.
func FilterAround(history []domain.Message, splitAt time.Time, gap time.Duration) []domain.Message {
	return withinGap(history, splitAt, gap)
}

func withinGap(history []domain.Message, at time.Time, gap time.Duration) []domain.Message {
	kept := make([]domain.Message, 0, len(history))
	for _, m := range history {
		d := at.Sub(m.CreatedAt)
		if d < 0 {
			d = -d
		}
		if d <= gap {
			kept = append(kept, m)
		}
	}
	return kept
}

// BuildTurns tags each message with a model role. Messages authored by
// userID are user turns; anything else is the assistant.
func BuildTurns(history []domain.Message, userID string) []ai.Turn {
	turns := make([]ai.Turn, 0, len(history))
	for _, m := range history {
		role := ai.RoleAssistant
		if m.AuthorID == userID {
			role = ai.RoleUser
		}
		turns = append(turns, ai.Turn{Role: role, Content: m.Content})
	}
	return turns
}

// Window is a run of consecutive messages no more than the gap apart.
type Window struct {
	Ref          string    `json:"ref"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	MessageCount int       `json:"message_count"`
}

// Segment splits an ordered history into windows by chaining each message
// to the previous one.
func Segment(conversationID string, history []domain.Message, gap time.Duration) []Window {
	var windows []Window
	for i, m := range history {
		if i == 0 || m.CreatedAt.Sub(history[i-1].CreatedAt) > gap {
			windows = append(windows, Window{
				Ref:   FormatWindowRef(conversationID, m.CreatedAt),
				Start: m.CreatedAt,
			})
		}
		w := &windows[len(windows)-1]
		w.End = m.CreatedAt
		w.MessageCount++
	}
	return windows
}
