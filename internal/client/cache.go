package client

import (
	"slices"
	"sync"

	"github.com/iyunix/go-gemchat/internal/dtos"
)

// ConversationCache is the client's view of the conversation list.
// Mutations are applied before the server confirms them; Snapshot and
// Restore undo them when it does not.
type ConversationCache struct {
	mu      sync.RWMutex
	entries []dtos.ConversationResponse
}

// CacheSnapshot is an opaque copy of the cache contents.
type CacheSnapshot struct {
	entries []dtos.ConversationResponse
}

func NewConversationCache() *ConversationCache {
	return &ConversationCache{}
}

func (c *ConversationCache) List() []dtos.ConversationResponse {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.entries)
}

func (c *ConversationCache) Get(id string) (dtos.ConversationResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, entry := range c.entries {
		if entry.ID == id {
			return entry, true
		}
	}
	return dtos.ConversationResponse{}, false
}

func (c *ConversationCache) Replace(entries []dtos.ConversationResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = slices.Clone(entries)
}

// Upsert replaces the entry with the same id, or prepends a new one.
func (c *ConversationCache) Upsert(conv dtos.ConversationResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.entries {
		if c.entries[i].ID == conv.ID {
			c.entries[i] = conv
			return
		}
	}
	c.entries = append([]dtos.ConversationResponse{conv}, c.entries...)
}

func (c *ConversationCache) Update(id string, fn func(*dtos.ConversationResponse)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.entries {
		if c.entries[i].ID == id {
			fn(&c.entries[i])
			return true
		}
	}
	return false
}

func (c *ConversationCache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = slices.DeleteFunc(c.entries, func(entry dtos.ConversationResponse) bool {
		return entry.ID == id
	})
}

func (c *ConversationCache) Snapshot() CacheSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheSnapshot{entries: slices.Clone(c.entries)}
}

func (c *ConversationCache) Restore(s CacheSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = slices.Clone(s.entries)
}
