// File: cmd/server/commands.go
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/iyunix/go-gemchat/internal/auth"
	"github.com/iyunix/go-gemchat/internal/config"
	"github.com/iyunix/go-gemchat/internal/database"
	"github.com/iyunix/go-gemchat/internal/domain"
	"github.com/spf13/cobra"
)

var (
	cfg *config.Config

	tokenEmail string
	tokenName  string
	tokenTTL   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "gemchat",
	Short: "Chat backend with time-windowed conversations",
	Long: `gemchat serves the conversation API: users send messages, the server
decides whether they continue the current conversation or start a new one,
calls the model with recent context and stores both sides of the exchange.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := NewApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer app.Close()
		return app.Run(ctx)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := database.OpenAndMigrate(cfg.DBDriver, cfg.DBDSN); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema migrated (%s)\n", cfg.DBDriver)
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Mint a session token for local development",
	Long: `Mint an HS256 session token signed with SESSION_SECRET. In production the
identity provider issues these; this command exists for local testing.

Examples:
  gemchat token "auth0|alice" --email alice@example.com --name Alice`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.IsProduction() {
			return fmt.Errorf("refusing to mint tokens in production")
		}
		token, err := auth.GenerateSessionToken(domain.Principal{
			Subject: args[0],
			Email:   tokenEmail,
			Name:    tokenName,
		}, sessionSecret(cfg, nil), tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "name claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")

	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd)
	rootCmd.SetContext(context.Background())
}
