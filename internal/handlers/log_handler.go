package handlers

import (
	"axle-upload/internal/middleware"
	"axle-upload/internal/repositories"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// LogHandler exposes the persisted application logs for review at the depot.
type LogHandler struct {
	repo   repositories.LogRepository
	logger *zap.Logger
}

// NewLogHandler creates a LogHandler.
func NewLogHandler(repo repositories.LogRepository, logger *zap.Logger) *LogHandler {
	return &LogHandler{repo: repo, logger: logger}
}

// Recent returns the newest log entries, newest first. The optional limit
// query parameter caps the page size.
func (h *LogHandler) Recent(c *fiber.Ctx) error {
	logger := middleware.GetRequestLogger(c)
	entries, err := h.repo.RecentLogs(c.Context(), c.QueryInt("limit"))
	if err != nil {
		return respondError(c, logger, err)
	}
	return c.JSON(entries)
}
