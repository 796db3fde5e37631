package ai

import "context"

// NewModelClient builds the client for the configured provider. OpenAI and
// OpenAI-compatible endpoints use go-openai directly; the rest go through
// langchaingo.
func NewModelClient(ctx context.Context, config *Config) (ModelClient, error) {
	if err := config.Validate(); err != nil {
		return nil, NewConfigError(err.Error())
	}

	if config.Provider == ProviderOpenAI {
		return NewOpenAIProvider(config), nil
	}

	llm, err := newLangChainModel(ctx, config)
	if err != nil {
		return nil, NewProviderError("init", "failed to create model client", err)
	}
	return NewLangChainProvider(llm, config.Model).WithSampling(config.Temperature, config.TopP), nil
}
