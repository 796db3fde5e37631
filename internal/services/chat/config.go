// File: internal/services/chat/config.go
package chat

import (
	"fmt"
	"time"

	"github.com/iyunix/go-gemchat/internal/domain"
)

type Config struct {
	// Conversation windowing
	WindowGap time.Duration // max silence before a send starts a new conversation

	// Model call
	ModelTimeout time.Duration // bounds all attempts and the sleeps between them
	MaxAttempts  int
	BaseDelay    time.Duration
	Multiplier   float64

	MaxMessageLength int // in runes, at most domain.MaxContentRunes
}

func (c *Config) Validate() error {
	if c.WindowGap <= 0 {
		return fmt.Errorf("window_gap must be positive")
	}
	if c.ModelTimeout <= 0 {
		return fmt.Errorf("model_timeout must be positive")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1")
	}
	if c.BaseDelay < 0 {
		return fmt.Errorf("base_delay cannot be negative")
	}
	if c.Multiplier < 1 {
		return fmt.Errorf("multiplier must be at least 1")
	}
	if c.MaxMessageLength <= 0 || c.MaxMessageLength > domain.MaxContentRunes {
		return fmt.Errorf("max_message_length must be between 1 and %d", domain.MaxContentRunes)
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		WindowGap:        WindowGap,
		ModelTimeout:     60 * time.Second,
		MaxAttempts:      3,
		BaseDelay:        time.Second,
		Multiplier:       2,
		MaxMessageLength: domain.MaxContentRunes,
	}
}
