// File: internal/domain/message.go
package domain

import "time"

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
)

// ModelAuthorID is the author id stamped on model replies. It never collides
// with a user id because user ids are UUIDs.
const ModelAuthorID = "model"

// MaxContentRunes bounds a message body, user prompts and model replies
// alike.
const MaxContentRunes = 100000

// Message is a single immutable turn within a conversation.
type Message struct {
	ID             string      `json:"id" gorm:"primaryKey;size:36"`
	ConversationID string      `json:"conversation_id" gorm:"index:idx_messages_conversation_time,priority:1;not null;size:36"`
	AuthorID       string      `json:"author_id" gorm:"not null;size:36"`
	Content        string      `json:"content" gorm:"type:text;not null"`
	Type           MessageType `json:"type" gorm:"size:10;not null;default:text"`
	ModelUsed      *string     `json:"model_used,omitempty" gorm:"size:100"`
	ImageURL       *string     `json:"image_url,omitempty"`
	CreatedAt      time.Time   `json:"created_at" gorm:"index:idx_messages_conversation_time,priority:2"`
}

// IsFromModel reports whether the message was produced by the language model.
func (m *Message) IsFromModel() bool {
	return m.AuthorID == ModelAuthorID
}
