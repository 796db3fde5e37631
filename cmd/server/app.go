// File: cmd/server/app.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/iyunix/go-gemchat/internal/config"
	"github.com/iyunix/go-gemchat/internal/database"
	"github.com/iyunix/go-gemchat/internal/handlers"
	"github.com/iyunix/go-gemchat/internal/ratelimit"
	"github.com/iyunix/go-gemchat/internal/render"
	"github.com/iyunix/go-gemchat/internal/repository/conversation"
	"github.com/iyunix/go-gemchat/internal/repository/message"
	"github.com/iyunix/go-gemchat/internal/repository/user"
	"github.com/iyunix/go-gemchat/internal/services"
	"github.com/iyunix/go-gemchat/internal/services/ai"
	chatservice "github.com/iyunix/go-gemchat/internal/services/chat"
)

const devSessionSecret = "gemchat-dev-secret"

// App aggregates the server and everything that must be closed with it.
type App struct {
	Config *config.Config
	Logger services.Logger
	DB     *gorm.DB
	Server *http.Server

	limiters []*ratelimit.MemoryRateLimiter
	closeLog func() error
}

// NewApp wires configuration, storage, the model client, services and
// handlers together.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, closeLog := services.NewLogger("gemchat", services.ParseLevel(cfg.LogLevel), cfg.LogFile)
	app := &App{Config: cfg, Logger: logger, closeLog: closeLog}

	db, err := database.OpenAndMigrate(cfg.DBDriver, cfg.DBDSN, database.WithLogger(logger))
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("database: %w", err)
	}
	app.DB = db

	// --- Repositories ---
	userRepo := user.NewGormUserRepository(db, logger)
	conversationRepo := conversation.NewConversationRepository(db, logger)
	messageRepo := message.NewMessageRepository(db, logger)

	// --- Services ---
	aiConfig := ai.DefaultConfig()
	aiConfig.Provider = cfg.ModelProvider
	aiConfig.APIKey = cfg.ModelAPIKey
	aiConfig.BaseURL = cfg.ModelBaseURL
	aiConfig.Model = cfg.ModelName
	aiConfig.Timeout = cfg.ModelTimeout
	model, err := ai.NewModelClient(ctx, aiConfig)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("model client: %w", err)
	}

	chatConfig := chatservice.DefaultConfig()
	chatConfig.ModelTimeout = cfg.ModelTimeout
	pipeline, err := chatservice.NewSendPipeline(chatConfig, userRepo, conversationRepo, messageRepo, model, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("send pipeline: %w", err)
	}
	conversationService, err := services.NewConversationService(userRepo, conversationRepo, messageRepo, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("conversation service: %w", err)
	}
	conversationService.WithWindowGap(chatConfig.WindowGap)
	userService := services.NewUserService(userRepo, logger)
	renderer := render.NewMarkdown()

	// --- Rate limiting ---
	var sendLimiter *ratelimit.MemoryRateLimiter
	if cfg.SendRateLimit > 0 {
		sendLimiter = ratelimit.NewMemoryRateLimiter(ratelimit.SendConfig(cfg.SendRateLimit))
		app.limiters = append(app.limiters, sendLimiter)
	}
	logLimiter := ratelimit.NewMemoryRateLimiter(ratelimit.LogIngestConfig())
	app.limiters = append(app.limiters, logLimiter)

	// --- Handlers ---
	router := handlers.NewRouter(handlers.RouterDeps{
		Conversations: handlers.NewConversationHandler(conversationService, renderer, logger),
		Messages:      handlers.NewMessageHandler(pipeline, renderer, logger),
		Users:         handlers.NewUserHandler(userService, logger),
		Logs:          handlers.NewLogHandler(logger),
		SessionSecret: sessionSecret(cfg, logger),
		SendLimiter:   sendLimiter,
		LogLimiter:    logLimiter,
		Logger:        logger,
	})

	app.Server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// A send waits for every model attempt.
		WriteTimeout: cfg.ModelTimeout + 30*time.Second,
	}

	logger.Info("application initialized",
		"port", cfg.ServerPort,
		"db_driver", cfg.DBDriver,
		"model_provider", cfg.ModelProvider,
		"model", model.ModelName(),
		"env", cfg.Environment,
	)
	return app, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server starting", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server startup failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	a.Logger.Info("server stopped gracefully")
	return nil
}

// Close releases the database, limiters and log file.
func (a *App) Close() {
	for _, limiter := range a.limiters {
		limiter.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}

// sessionSecret falls back to a fixed development secret outside
// production; config validation already requires one in production.
func sessionSecret(cfg *config.Config, logger services.Logger) []byte {
	if cfg.SessionSecret != "" {
		return []byte(cfg.SessionSecret)
	}
	if logger != nil {
		logger.Warn("SESSION_SECRET not set; using the development secret")
	}
	return []byte(devSessionSecret)
}
