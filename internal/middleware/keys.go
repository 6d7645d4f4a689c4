package middleware

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Constants for middleware keys and values
const (
	RequestLoggerKey ContextKey = "requestLogger"
	RequestIDHeader             = "X-Request-ID"

	AuthorizationHeader            = "Authorization"
	BearerPrefix                   = "Bearer "
	UserIDKey           ContextKey = "userID"

	RequestIDKey ContextKey = "requestID"
)
