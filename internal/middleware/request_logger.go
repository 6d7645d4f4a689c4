package middleware

import (
	"axle-upload/internal/logging"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestLogger injects a request-scoped logger carrying a unique
// "request_id" field into c.Locals(), and echoes the id in the response
// headers for client-side correlation.
func RequestLogger(baseLogger *zap.Logger) fiber.Handler {
	if baseLogger == nil {
		baseLogger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		requestID := uuid.NewString()

		c.Set(RequestIDHeader, requestID)
		c.Locals(RequestIDKey, requestID)
		c.Locals(RequestLoggerKey, baseLogger.With(zap.String("request_id", requestID)))

		return c.Next()
	}
}

// GetRequestLogger retrieves the request-scoped logger from fiber.Ctx.Locals.
// Falls back to the global logger if not found.
func GetRequestLogger(c *fiber.Ctx) *zap.Logger {
	if logger, ok := c.Locals(RequestLoggerKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return logging.GetLogger()
}

// GetRequestID retrieves the request ID string from fiber.Ctx.Locals.
func GetRequestID(c *fiber.Ctx) string {
	if reqID, ok := c.Locals(RequestIDKey).(string); ok {
		return reqID
	}
	return ""
}
