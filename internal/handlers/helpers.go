// File: internal/handlers/helpers.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/iyunix/go-gemchat/internal/domain"
	"github.com/iyunix/go-gemchat/internal/dtos"
	"github.com/iyunix/go-gemchat/internal/middleware"
	chatservice "github.com/iyunix/go-gemchat/internal/services/chat"
)

const maxBodyBytes = 1 << 20

// Logger is the structured logger used by handlers.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// writeJSON is a helper for sending JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError is a helper for sending JSON error responses.
func writeError(w http.ResponseWriter, code chatservice.ErrorKind, message string, status int) {
	writeJSON(w, status, dtos.ErrorResponse{Code: string(code), Error: message})
}

var kindStatus = map[chatservice.ErrorKind]int{
	chatservice.KindUnauthorized:      http.StatusUnauthorized,
	chatservice.KindNotFound:          http.StatusNotFound,
	chatservice.KindValidation:        http.StatusBadRequest,
	chatservice.KindUpstreamTransient: http.StatusServiceUnavailable,
	chatservice.KindUpstreamFatal:     http.StatusBadGateway,
	chatservice.KindInternal:          http.StatusInternalServerError,
}

// writeServiceError maps a service error onto a status and a short message.
// Causes are logged, never sent.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger Logger, err error) {
	var chatErr *chatservice.ChatError
	if !errors.As(err, &chatErr) {
		chatErr = chatservice.NewInternalError("handler", "internal error", err)
	}

	status, ok := kindStatus[chatErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	keysAndValues := []interface{}{
		"request_id", middleware.RequestIDFromContext(r.Context()),
		"kind", string(chatErr.Kind),
		"operation", chatErr.Operation,
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", keysAndValues...)
	} else {
		logger.Debug("request rejected", keysAndValues...)
	}

	message := chatErr.Message
	if chatErr.Kind == chatservice.KindInternal {
		message = "internal error"
	}
	if chatErr.Kind == chatservice.KindUpstreamTransient {
		w.Header().Set("Retry-After", "5")
	}
	writeError(w, chatErr.Kind, message, status)
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return chatservice.NewValidationError("decode", "request body is required")
		}
		return chatservice.NewValidationError("decode", "invalid request body")
	}
	return nil
}

// principal returns the caller set by the auth middleware. Its absence is a
// routing bug, reported as unauthorized.
func principal(r *http.Request) (domain.Principal, error) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return domain.Principal{}, chatservice.NewUnauthorizedError("principal")
	}
	return p, nil
}
