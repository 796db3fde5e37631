package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type ErrorType string

const (
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeNetwork    ErrorType = "NETWORK"
	ErrTypeProvider   ErrorType = "PROVIDER"
	ErrTypeRateLimit  ErrorType = "RATE_LIMIT"
	ErrTypeQuota      ErrorType = "QUOTA"
	ErrTypeModel      ErrorType = "MODEL"
	ErrTypeValidation ErrorType = "VALIDATION"
)

type AIError struct {
	Type      ErrorType
	Code      int
	Message   string
	Model     string
	Operation string
	Cause     error
}

func (e *AIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("AI %s error in %s: %s (caused by: %v)",
			e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("AI %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *AIError) Unwrap() error {
	return e.Cause
}

// Transient reports whether the failure is worth retrying after a delay.
func (e *AIError) Transient() bool {
	return e.Type == ErrTypeRateLimit || e.Type == ErrTypeQuota
}

func NewConfigError(msg string) *AIError {
	return &AIError{Type: ErrTypeConfig, Message: msg, Operation: "config"}
}

func NewProviderError(operation, msg string, cause error) *AIError {
	return &AIError{Type: ErrTypeProvider, Operation: operation, Message: msg, Cause: cause}
}

func NewRateLimitError(operation, model string, cause error) *AIError {
	return &AIError{
		Type:      ErrTypeRateLimit,
		Code:      http.StatusTooManyRequests,
		Operation: operation,
		Model:     model,
		Message:   "model rate limit reached",
		Cause:     cause,
	}
}

// IsTransient reports whether err carries a rate-limit or quota AIError.
func IsTransient(err error) bool {
	var aiErr *AIError
	if errors.As(err, &aiErr) {
		return aiErr.Transient()
	}
	return false
}

// classifyOpenAIError turns go-openai failures into typed errors using the
// HTTP status and error code reported by the endpoint.
func classifyOpenAIError(operation, model string, err error) *AIError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := fmt.Sprint(apiErr.Code)
		switch {
		case apiErr.Type == "insufficient_quota" || code == "insufficient_quota":
			return &AIError{Type: ErrTypeQuota, Code: apiErr.HTTPStatusCode, Operation: operation, Model: model, Message: "model quota exhausted", Cause: err}
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return &AIError{Type: ErrTypeRateLimit, Code: apiErr.HTTPStatusCode, Operation: operation, Model: model, Message: "model rate limit reached", Cause: err}
		case apiErr.HTTPStatusCode == http.StatusNotFound:
			return &AIError{Type: ErrTypeModel, Code: apiErr.HTTPStatusCode, Operation: operation, Model: model, Message: "model not found", Cause: err}
		case apiErr.HTTPStatusCode == http.StatusBadRequest:
			return &AIError{Type: ErrTypeValidation, Code: apiErr.HTTPStatusCode, Operation: operation, Model: model, Message: "request rejected by model", Cause: err}
		}
		return &AIError{Type: ErrTypeProvider, Code: apiErr.HTTPStatusCode, Operation: operation, Model: model, Message: "model request failed", Cause: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			return &AIError{Type: ErrTypeRateLimit, Code: reqErr.HTTPStatusCode, Operation: operation, Model: model, Message: "model rate limit reached", Cause: err}
		}
		return &AIError{Type: ErrTypeProvider, Code: reqErr.HTTPStatusCode, Operation: operation, Model: model, Message: "model request failed", Cause: err}
	}

	return &AIError{Type: ErrTypeNetwork, Operation: operation, Model: model, Message: "model endpoint unreachable", Cause: err}
}

// classifyByMessage is used for providers that only surface untyped errors.
// It recognizes the usual rate-limit and quota wording and nothing else.
func classifyByMessage(operation, model string, err error) *AIError {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota"):
		return &AIError{Type: ErrTypeQuota, Operation: operation, Model: model, Message: "model quota exhausted", Cause: err}
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "429"):
		return NewRateLimitError(operation, model, err)
	}
	return NewProviderError(operation, "model request failed", err)
}
