// Package client provides an HTTP client for the gemchat API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/iyunix/go-gemchat/internal/dtos"
)

// Client talks to the /api surface with a session token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	cache      *ConversationCache
}

// New creates a client. If baseURL is empty, GEMCHAT_SERVER_URL is used,
// defaulting to localhost:8080. The model call can take a while, so the
// timeout is generous.
func New(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("GEMCHAT_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		cache:      NewConversationCache(),
	}
}

// Cache returns the client-side conversation list.
func (c *Client) Cache() *ConversationCache {
	return c.cache
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: string(data)}
		var errResp dtos.ErrorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Code != "" {
			apiErr.Code = errResp.Code
			apiErr.Message = errResp.Error
		}
		return apiErr
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

func conversationPath(id string) string {
	return "/api/conversations/" + url.PathEscape(id)
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// ListConversations fetches the list and replaces the cache with it.
func (c *Client) ListConversations(ctx context.Context) ([]dtos.ConversationResponse, error) {
	var list []dtos.ConversationResponse
	if err := c.do(ctx, http.MethodGet, "/api/conversations", nil, &list); err != nil {
		return nil, err
	}
	c.cache.Replace(list)
	return list, nil
}

func (c *Client) CreateConversation(ctx context.Context, title string) (*dtos.ConversationResponse, error) {
	var conv dtos.ConversationResponse
	if err := c.do(ctx, http.MethodPost, "/api/conversations", dtos.CreateConversationRequest{Title: title}, &conv); err != nil {
		return nil, err
	}
	c.cache.Upsert(conv)
	return &conv, nil
}

func (c *Client) GetConversation(ctx context.Context, id string) (*dtos.ConversationResponse, error) {
	var conv dtos.ConversationResponse
	if err := c.do(ctx, http.MethodGet, conversationPath(id), nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// DeleteConversation removes the entry from the cache before the request
// and restores the snapshot if the server refuses.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.optimistic(func() { c.cache.Remove(id) }, func() error {
		return c.do(ctx, http.MethodDelete, conversationPath(id), nil, nil)
	})
}

func (c *Client) RenameConversation(ctx context.Context, id, title string) (*dtos.ConversationResponse, error) {
	var conv dtos.ConversationResponse
	err := c.optimistic(
		func() {
			c.cache.Update(id, func(entry *dtos.ConversationResponse) { entry.Title = title })
		},
		func() error {
			return c.do(ctx, http.MethodPatch, conversationPath(id)+"/title", dtos.RenameConversationRequest{Title: title}, &conv)
		},
	)
	if err != nil {
		return nil, err
	}
	c.cache.Upsert(conv)
	return &conv, nil
}

func (c *Client) ArchiveConversation(ctx context.Context, id string, archived bool) (*dtos.ConversationResponse, error) {
	var conv dtos.ConversationResponse
	err := c.optimistic(
		func() {
			c.cache.Update(id, func(entry *dtos.ConversationResponse) { entry.Archived = archived })
		},
		func() error {
			return c.do(ctx, http.MethodPatch, conversationPath(id)+"/archive", dtos.ArchiveConversationRequest{Archived: &archived}, &conv)
		},
	)
	if err != nil {
		return nil, err
	}
	c.cache.Upsert(conv)
	return &conv, nil
}

// optimistic applies mutate to the cache, runs call, and rolls the cache
// back to its prior state when call fails.
func (c *Client) optimistic(mutate func(), call func() error) error {
	snapshot := c.cache.Snapshot()
	mutate()
	if err := call(); err != nil {
		c.cache.Restore(snapshot)
		return err
	}
	return nil
}

// Messages accepts a conversation id or a window ref.
func (c *Client) Messages(ctx context.Context, ref string) ([]dtos.MessageResponse, error) {
	var messages []dtos.MessageResponse
	if err := c.do(ctx, http.MethodGet, conversationPath(ref)+"/messages", nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// =============================================================================
// MESSAGES & USER
// =============================================================================

// Send posts a message. Pass "new" to start a conversation.
func (c *Client) Send(ctx context.Context, conversationRef, message string) (*dtos.SendMessageResponse, error) {
	var resp dtos.SendMessageResponse
	req := dtos.SendMessageRequest{ConversationID: conversationRef, Message: message}
	if err := c.do(ctx, http.MethodPost, "/api/messages", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Me(ctx context.Context) (*dtos.UserResponse, error) {
	var u dtos.UserResponse
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) SyncUser(ctx context.Context) (*dtos.UserResponse, error) {
	var u dtos.UserResponse
	if err := c.do(ctx, http.MethodPost, "/api/me/sync", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
