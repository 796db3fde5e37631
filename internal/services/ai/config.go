// File: internal/services/ai/config.go
package ai

import (
	"fmt"
	"time"
)

const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
	ProviderGoogleAI  = "googleai"
)

type Config struct {
	Provider string
	APIKey   string
	// BaseURL points the OpenAI client at any compatible endpoint (Gemini's
	// included) and the Ollama client at its server.
	BaseURL string
	Model   string

	Timeout time.Duration

	// Model Parameters
	Temperature float32
	TopP        float32
}

func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGoogleAI:
		if c.APIKey == "" {
			return fmt.Errorf("MODEL_API_KEY is required for provider %s", c.Provider)
		}
	case ProviderOllama:
	default:
		return fmt.Errorf("unsupported model provider: %q", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("MODEL_NAME is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		Provider:    ProviderOpenAI,
		Model:       "gemini-2.0-flash",
		Timeout:     60 * time.Second,
		Temperature: 0.7,
		TopP:        0.95,
	}
}
