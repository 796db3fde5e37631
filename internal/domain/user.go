// File: internal/domain/user.go
package domain

import (
	"errors"
	"strings"
	"time"
)

// User is the local record of an identity-provider account.
type User struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	ExternalID string    `json:"external_id" gorm:"uniqueIndex;not null;size:255"` // provider subject ("sub")
	Email      string    `json:"email" gorm:"size:320"`
	Name       string    `json:"name" gorm:"size:255"`
	PictureURL *string   `json:"picture_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (u *User) IsValid() error {
	if strings.TrimSpace(u.ExternalID) == "" {
		return errors.New("external id is required")
	}
	if len(u.ExternalID) > 255 {
		return errors.New("external id is too long")
	}
	return nil
}
