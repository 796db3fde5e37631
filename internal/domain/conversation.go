// File: internal/domain/conversation.go
package domain

import "time"

// Conversation is a persisted chat thread owned by exactly one user.
// Archiving and deletion are independent: archived rows stay queryable.
type Conversation struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	UserID     string    `json:"user_id" gorm:"index;not null;size:36"`
	Title      string    `json:"title" gorm:"size:100"` // empty means untitled
	Archived   bool      `json:"archived" gorm:"not null;default:false"`
	LastActive time.Time `json:"last_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"index"`
}

// ConversationSummary is a conversation row plus its message count, as listed
// in the sidebar.
type ConversationSummary struct {
	Conversation
	MessageCount int64 `json:"message_count"`
}
