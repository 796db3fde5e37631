// File: internal/handlers/user_handler.go
package handlers

import (
	"net/http"

	"github.com/iyunix/go-gemchat/internal/dtos"
	"github.com/iyunix/go-gemchat/internal/services"
)

type UserHandler struct {
	service *services.UserService
	logger  Logger
}

func NewUserHandler(service *services.UserService, logger Logger) *UserHandler {
	return &UserHandler{service: service, logger: logger}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	u, err := h.service.Me(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ToUserResponse(u))
}

// Sync upserts the caller from the session claims; the client calls it
// after login.
func (h *UserHandler) Sync(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	u, err := h.service.Sync(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ToUserResponse(u))
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	var req dtos.UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	u, err := h.service.UpdateProfile(r.Context(), p, req.Name, req.Picture)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ToUserResponse(u))
}
