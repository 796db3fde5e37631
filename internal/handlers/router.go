// File: internal/handlers/router.go
package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/iyunix/go-gemchat/internal/middleware"
	"github.com/iyunix/go-gemchat/internal/ratelimit"
	chatservice "github.com/iyunix/go-gemchat/internal/services/chat"
)

// RouterDeps carries everything NewRouter wires into routes.
type RouterDeps struct {
	Conversations *ConversationHandler
	Messages      *MessageHandler
	Users         *UserHandler
	Logs          *LogHandler
	SessionSecret []byte
	SendLimiter   *ratelimit.MemoryRateLimiter
	LogLimiter    *ratelimit.MemoryRateLimiter
	Logger        Logger
}

func NewRouter(deps RouterDeps) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RecoverPanic(deps.Logger))
	r.Use(middleware.LoggingMiddleware(deps.Logger))

	// --- Public Routes ---
	r.HandleFunc("/health", Health).Methods(http.MethodGet)
	logRoute := http.Handler(http.HandlerFunc(deps.Logs.LogFrontendEvent))
	if deps.LogLimiter != nil {
		logRoute = middleware.RateLimitMiddleware(deps.LogLimiter, "log", middleware.KeyByClientIP, deps.Logger)(logRoute)
	}
	r.Handle("/api/log", logRoute).Methods(http.MethodPost)

	// --- Protected Routes ---
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.NewAuthMiddleware(deps.SessionSecret, deps.Logger))

	api.HandleFunc("/conversations", deps.Conversations.List).Methods(http.MethodGet)
	api.HandleFunc("/conversations", deps.Conversations.Create).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id}", deps.Conversations.Get).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}", deps.Conversations.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/conversations/{id}/title", deps.Conversations.Rename).Methods(http.MethodPatch)
	api.HandleFunc("/conversations/{id}/archive", deps.Conversations.Archive).Methods(http.MethodPatch)
	api.HandleFunc("/conversations/{ref}/messages", deps.Conversations.Messages).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}/windows", deps.Conversations.Windows).Methods(http.MethodGet)

	send := http.Handler(http.HandlerFunc(deps.Messages.Send))
	if deps.SendLimiter != nil {
		send = middleware.RateLimitMiddleware(deps.SendLimiter, "send", middleware.KeyByPrincipal, deps.Logger)(send)
	}
	api.Handle("/messages", send).Methods(http.MethodPost)

	api.HandleFunc("/me", deps.Users.Me).Methods(http.MethodGet)
	api.HandleFunc("/me", deps.Users.UpdateProfile).Methods(http.MethodPatch)
	api.HandleFunc("/me/sync", deps.Users.Sync).Methods(http.MethodPost)

	// --- Custom Error Handlers ---
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, chatservice.KindNotFound, "route not found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, chatservice.KindValidation, "method not allowed", http.StatusMethodNotAllowed)
	})

	return r
}
