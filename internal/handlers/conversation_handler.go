// File: internal/handlers/conversation_handler.go
package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/iyunix/go-gemchat/internal/dtos"
	"github.com/iyunix/go-gemchat/internal/services"
	chatservice "github.com/iyunix/go-gemchat/internal/services/chat"
)

type ConversationHandler struct {
	service  *services.ConversationService
	renderer dtos.HTMLRenderer
	logger   Logger
}

func NewConversationHandler(service *services.ConversationService, renderer dtos.HTMLRenderer, logger Logger) *ConversationHandler {
	return &ConversationHandler{service: service, renderer: renderer, logger: logger}
}

func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	var req dtos.CreateConversationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	conv, err := h.service.Create(r.Context(), p, req.Title)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dtos.ToConversationResponse(conv))
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	summaries, err := h.service.List(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ToConversationList(summaries))
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	conv, err := h.service.Get(r.Context(), p, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ToConversationResponse(conv))
}

func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	if err := h.service.Delete(r.Context(), p, mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConversationHandler) Rename(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	var req dtos.RenameConversationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	conv, err := h.service.Rename(r.Context(), p, mux.Vars(r)["id"], req.Title)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ToConversationResponse(conv))
}

func (h *ConversationHandler) Archive(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	var req dtos.ArchiveConversationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if req.Archived == nil {
		writeServiceError(w, r, h.logger, chatservice.NewValidationError("archive_conversation", "archived is required"))
		return
	}

	conv, err := h.service.Archive(r.Context(), p, mux.Vars(r)["id"], *req.Archived)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ToConversationResponse(conv))
}

// Messages accepts a plain id or a window ref in the path.
func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	messages, err := h.service.Messages(r.Context(), p, mux.Vars(r)["ref"])
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ToMessageList(messages, h.renderer))
}

func (h *ConversationHandler) Windows(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	windows, err := h.service.Windows(r.Context(), p, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, windows)
}
