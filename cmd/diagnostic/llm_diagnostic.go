// File: cmd/diagnostic/llm_diagnostic.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/iyunix/go-gemchat/internal/config"
	"github.com/iyunix/go-gemchat/internal/services/ai"
)

const diagnosticPrompt = "What is the answer to life, universe and everything?"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	aiConfig := ai.DefaultConfig()
	aiConfig.Provider = cfg.ModelProvider
	aiConfig.APIKey = cfg.ModelAPIKey
	aiConfig.BaseURL = cfg.ModelBaseURL
	aiConfig.Model = cfg.ModelName
	aiConfig.Timeout = cfg.ModelTimeout

	fmt.Printf("Testing provider %q, model %q\n", aiConfig.Provider, aiConfig.Model)
	if aiConfig.BaseURL != "" {
		fmt.Printf("Base URL: %s\n", aiConfig.BaseURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), aiConfig.Timeout)
	defer cancel()

	client, err := ai.NewModelClient(ctx, aiConfig)
	if err != nil {
		log.Fatalf("model client: %v", err)
	}

	start := time.Now()
	reply, err := client.Generate(ctx, diagnosticPrompt)
	if err != nil {
		fmt.Printf("Generate failed after %s: %v\n", time.Since(start).Round(time.Millisecond), err)
		if ai.IsTransient(err) {
			fmt.Println("The failure is transient (rate limit or quota); the server would retry it.")
		}
		os.Exit(1)
	}
	fmt.Printf("Generate OK in %s: %s\n", time.Since(start).Round(time.Millisecond), reply)

	start = time.Now()
	reply, err = client.Chat(ctx, []ai.Turn{
		{Role: ai.RoleUser, Content: "My name is Ada."},
		{Role: ai.RoleAssistant, Content: "Nice to meet you, Ada."},
	}, "What is my name?")
	if err != nil {
		fmt.Printf("Chat failed after %s: %v\n", time.Since(start).Round(time.Millisecond), err)
		os.Exit(1)
	}
	fmt.Printf("Chat OK in %s: %s\n", time.Since(start).Round(time.Millisecond), reply)
}
