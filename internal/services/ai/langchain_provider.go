package ai

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"
)

// LangChainProvider adapts a langchaingo model (ollama, anthropic, googleai)
// to ModelClient.
type LangChainProvider struct {
	llm         llms.Model
	model       string
	temperature float32
	topP        float32
}

func NewLangChainProvider(llm llms.Model, model string) *LangChainProvider {
	return &LangChainProvider{llm: llm, model: model}
}

// WithSampling sets the temperature and top-p sent with every call. Zero
// leaves the provider default.
func (p *LangChainProvider) WithSampling(temperature, topP float32) *LangChainProvider {
	p.temperature = temperature
	p.topP = topP
	return p
}

func (p *LangChainProvider) callOptions() []llms.CallOption {
	opts := []llms.CallOption{llms.WithModel(p.model)}
	if p.temperature > 0 {
		opts = append(opts, llms.WithTemperature(float64(p.temperature)))
	}
	if p.topP > 0 {
		opts = append(opts, llms.WithTopP(float64(p.topP)))
	}
	return opts
}

func newLangChainModel(ctx context.Context, config *Config) (llms.Model, error) {
	switch config.Provider {
	case ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(config.Model)}
		if config.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(config.BaseURL))
		}
		return ollama.New(opts...)
	case ProviderAnthropic:
		return anthropic.New(
			anthropic.WithToken(config.APIKey),
			anthropic.WithModel(config.Model),
		)
	case ProviderGoogleAI:
		return googleai.New(ctx,
			googleai.WithAPIKey(config.APIKey),
			googleai.WithDefaultModel(config.Model),
		)
	}
	return nil, fmt.Errorf("provider %s is not served by langchaingo", config.Provider)
}

func (p *LangChainProvider) ModelName() string {
	return p.model
}

func (p *LangChainProvider) Generate(ctx context.Context, prompt string) (string, error) {
	response, err := llms.GenerateFromSinglePrompt(ctx, p.llm, prompt, p.callOptions()...)
	if err != nil {
		return "", classifyByMessage("generate", p.model, err)
	}
	if response == "" {
		return "", &AIError{Type: ErrTypeProvider, Operation: "generate", Model: p.model, Message: "empty completion response"}
	}
	return response, nil
}

func (p *LangChainProvider) Chat(ctx context.Context, history []Turn, prompt string) (string, error) {
	messages := make([]llms.MessageContent, 0, len(history)+1)
	for _, turn := range history {
		msgType := schema.ChatMessageTypeHuman
		if turn.Role == RoleAssistant {
			msgType = schema.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(msgType, turn.Content))
	}
	messages = append(messages, llms.TextParts(schema.ChatMessageTypeHuman, prompt))

	response, err := p.llm.GenerateContent(ctx, messages, p.callOptions()...)
	if err != nil {
		return "", classifyByMessage("chat", p.model, err)
	}
	if len(response.Choices) == 0 || response.Choices[0].Content == "" {
		return "", &AIError{Type: ErrTypeProvider, Operation: "chat", Model: p.model, Message: "empty completion response"}
	}
	return response.Choices[0].Content, nil
}
