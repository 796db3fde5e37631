// File: internal/handlers/message_handler.go
package handlers

import (
	"net/http"

	"github.com/iyunix/go-gemchat/internal/dtos"
	chatservice "github.com/iyunix/go-gemchat/internal/services/chat"
)

type MessageHandler struct {
	pipeline *chatservice.SendPipeline
	renderer dtos.HTMLRenderer
	logger   Logger
}

func NewMessageHandler(pipeline *chatservice.SendPipeline, renderer dtos.HTMLRenderer, logger Logger) *MessageHandler {
	return &MessageHandler{pipeline: pipeline, renderer: renderer, logger: logger}
}

// Send handles POST /api/messages.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	var req dtos.SendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	result, err := h.pipeline.Send(r.Context(), chatservice.SendRequest{
		Principal:       p,
		ConversationRef: req.ConversationID,
		Message:         req.Message,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dtos.SendMessageResponse{
		ConversationID: result.ConversationID,
		ResponseText:   result.ResponseText,
		Created:        result.Created,
		Split:          result.Split,
		UserMessage:    dtos.ToMessageResponse(result.UserMessage, h.renderer),
		ModelMessage:   dtos.ToMessageResponse(result.ModelMessage, h.renderer),
	})
}
