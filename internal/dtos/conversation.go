// File: internal/dtos/conversation.go
package dtos

import (
	"time"

	"github.com/iyunix/go-gemchat/internal/domain"
)

type CreateConversationRequest struct {
	Title string `json:"title"`
}

type RenameConversationRequest struct {
	Title string `json:"title"`
}

// ArchiveConversationRequest uses a pointer so a missing field is rejected
// rather than read as false.
type ArchiveConversationRequest struct {
	Archived *bool `json:"archived"`
}

type ConversationResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Archived     bool      `json:"archived"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	LastActive   time.Time `json:"lastActive"`
	MessageCount *int64    `json:"messageCount,omitempty"`
}

func ToConversationResponse(c *domain.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:         c.ID,
		Title:      c.Title,
		Archived:   c.Archived,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
		LastActive: c.LastActive,
	}
}

func ToConversationList(summaries []domain.ConversationSummary) []ConversationResponse {
	out := make([]ConversationResponse, 0, len(summaries))
	for i := range summaries {
		resp := ToConversationResponse(&summaries[i].Conversation)
		count := summaries[i].MessageCount
		resp.MessageCount = &count
		out = append(out, resp)
	}
	return out
}
