// File: internal/dtos/message.go
package dtos

import (
	"time"

	"github.com/iyunix/go-gemchat/internal/domain"
)

// SendMessageRequest targets "new", a conversation id, or a window ref.
type SendMessageRequest struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
}

type SendMessageResponse struct {
	ConversationID string           `json:"conversationId"`
	ResponseText   string           `json:"responseText"`
	Created        bool             `json:"created"`
	Split          bool             `json:"split"`
	UserMessage    *MessageResponse `json:"userMessage,omitempty"`
	ModelMessage   *MessageResponse `json:"modelMessage,omitempty"`
}

// HTMLRenderer turns message Markdown into HTML.
type HTMLRenderer interface {
	ToHTML(source string) (string, error)
}

type MessageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	AuthorID       string    `json:"authorId"`
	FromModel      bool      `json:"fromModel"`
	Content        string    `json:"content"`
	ContentHTML    string    `json:"contentHtml,omitempty"`
	Type           string    `json:"type"`
	ModelUsed      *string   `json:"modelUsed,omitempty"`
	ImageURL       *string   `json:"imageUrl,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ToMessageResponse renders content to HTML when a renderer is given. A
// rendering failure leaves ContentHTML empty; the raw content is still sent.
func ToMessageResponse(m *domain.Message, renderer HTMLRenderer) *MessageResponse {
	resp := &MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		AuthorID:       m.AuthorID,
		FromModel:      m.IsFromModel(),
		Content:        m.Content,
		Type:           string(m.Type),
		ModelUsed:      m.ModelUsed,
		ImageURL:       m.ImageURL,
		CreatedAt:      m.CreatedAt,
	}
	if renderer != nil {
		if html, err := renderer.ToHTML(m.Content); err == nil {
			resp.ContentHTML = html
		}
	}
	return resp
}

func ToMessageList(messages []domain.Message, renderer HTMLRenderer) []*MessageResponse {
	out := make([]*MessageResponse, 0, len(messages))
	for i := range messages {
		out = append(out, ToMessageResponse(&messages[i], renderer))
	}
	return out
}
