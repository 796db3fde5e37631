// File: internal/middleware/constants.go
package middleware

// Context keys for middleware communication
type contextKey string

const (
	PrincipalKey contextKey = "principal"
	RequestIDKey contextKey = "request_id"
)

// SessionCookieName is the cookie the identity provider's session token is
// read from when no Authorization header is present.
const SessionCookieName = "session"

// Logger is the structured logger used by middleware.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}
