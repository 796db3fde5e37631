// File: internal/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Config holds rate limiting configuration
type Config struct {
	WindowSize    time.Duration // Time window for rate limiting
	MaxRequests   int           // Maximum requests per window
	CleanupPeriod time.Duration // How often to clean up old entries
	BanDuration   time.Duration // Lockout after exceeding the limit; zero means wait for the window
}

// SendConfig limits message sends per principal. Each send can cost up to
// three model calls, so this protects the upstream quota.
func SendConfig(perMinute int) *Config {
	return &Config{
		WindowSize:    time.Minute,
		MaxRequests:   perMinute,
		CleanupPeriod: 5 * time.Minute,
	}
}

// LogIngestConfig limits the public frontend log endpoint per client IP.
func LogIngestConfig() *Config {
	return &Config{
		WindowSize:    time.Minute,
		MaxRequests:   60,
		CleanupPeriod: 10 * time.Minute,
		BanDuration:   10 * time.Minute,
	}
}

// attemptRecord tracks requests for an identifier
type attemptRecord struct {
	Count     int
	FirstSeen time.Time
	BannedAt  *time.Time
}

// MemoryRateLimiter implements in-memory fixed-window rate limiting
type MemoryRateLimiter struct {
	config   *Config
	attempts map[string]*attemptRecord
	mu       sync.Mutex
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemoryRateLimiter creates a new in-memory rate limiter
func NewMemoryRateLimiter(config *Config) *MemoryRateLimiter {
	limiter := &MemoryRateLimiter{
		config:   config,
		attempts: make(map[string]*attemptRecord),
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}

	go limiter.cleanupLoop()

	return limiter
}

// RateLimitInfo contains information about rate limit status
type RateLimitInfo struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
	Banned     bool
}

// Allow checks if a request should be allowed and counts it.
func (rl *MemoryRateLimiter) Allow(identifier string) (bool, *RateLimitInfo) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	record, exists := rl.attempts[identifier]

	if !exists || (record.BannedAt == nil && now.Sub(record.FirstSeen) > rl.config.WindowSize) {
		rl.attempts[identifier] = &attemptRecord{Count: 1, FirstSeen: now}
		return true, &RateLimitInfo{
			Allowed:   true,
			Limit:     rl.config.MaxRequests,
			Remaining: rl.config.MaxRequests - 1,
			ResetTime: now.Add(rl.config.WindowSize),
		}
	}

	if record.BannedAt != nil {
		elapsed := now.Sub(*record.BannedAt)
		if elapsed < rl.config.BanDuration {
			return false, &RateLimitInfo{
				Limit:      rl.config.MaxRequests,
				ResetTime:  record.BannedAt.Add(rl.config.BanDuration),
				RetryAfter: rl.config.BanDuration - elapsed,
				Banned:     true,
			}
		}
		rl.attempts[identifier] = &attemptRecord{Count: 1, FirstSeen: now}
		return true, &RateLimitInfo{
			Allowed:   true,
			Limit:     rl.config.MaxRequests,
			Remaining: rl.config.MaxRequests - 1,
			ResetTime: now.Add(rl.config.WindowSize),
		}
	}

	record.Count++
	reset := record.FirstSeen.Add(rl.config.WindowSize)

	if record.Count > rl.config.MaxRequests {
		if rl.config.BanDuration > 0 {
			banTime := now
			record.BannedAt = &banTime
			return false, &RateLimitInfo{
				Limit:      rl.config.MaxRequests,
				ResetTime:  now.Add(rl.config.BanDuration),
				RetryAfter: rl.config.BanDuration,
				Banned:     true,
			}
		}
		return false, &RateLimitInfo{
			Limit:      rl.config.MaxRequests,
			ResetTime:  reset,
			RetryAfter: reset.Sub(now),
		}
	}

	return true, &RateLimitInfo{
		Allowed:   true,
		Limit:     rl.config.MaxRequests,
		Remaining: rl.config.MaxRequests - record.Count,
		ResetTime: reset,
	}
}

// Reset forgets the identifier's history.
func (rl *MemoryRateLimiter) Reset(identifier string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.attempts, identifier)
}

// cleanupLoop periodically removes old records
func (rl *MemoryRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup removes expired records
func (rl *MemoryRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for identifier, record := range rl.attempts {
		windowExpired := now.Sub(record.FirstSeen) > rl.config.WindowSize
		banExpired := record.BannedAt != nil && now.Sub(*record.BannedAt) > rl.config.BanDuration

		if (windowExpired && record.BannedAt == nil) || banExpired {
			delete(rl.attempts, identifier)
		}
	}
}

// Close stops the cleanup goroutine
func (rl *MemoryRateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// GetClientIP extracts the real client IP from request
func GetClientIP(r *http.Request) string {
	// Check for forwarded IP (behind proxy/load balancer)
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if ip := parseFirstIP(forwarded); ip != "" {
			return ip
		}
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// parseFirstIP extracts the first valid IP from a comma-separated list
func parseFirstIP(forwarded string) string {
	ips := strings.Split(forwarded, ",")
	if len(ips) > 0 {
		return strings.TrimSpace(ips[0])
	}
	return ""
}
