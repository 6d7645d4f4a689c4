package repositories

import (
	"context"
	"fmt"

	"axle-upload/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LogRepository persists application log records so upload failures remain
// reviewable at the depot. Written by the logging package's DB core.
type LogRepository interface {
	InsertLog(ctx context.Context, entry models.LogEntry) error
	RecentLogs(ctx context.Context, limit int) ([]models.LogEntry, error)
}

type logRepositoryImpl struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewLogRepository creates a LogRepository.
func NewLogRepository(db *gorm.DB, logger *zap.Logger) LogRepository {
	return &logRepositoryImpl{db: db, logger: logger}
}

func (r *logRepositoryImpl) InsertLog(ctx context.Context, entry models.LogEntry) error {
	if entry.Fields == "" {
		entry.Fields = "{}"
	}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("inserting log entry: %w", err)
	}
	return nil
}

func (r *logRepositoryImpl) RecentLogs(ctx context.Context, limit int) ([]models.LogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []models.LogEntry
	if err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("querying log entries: %w", err)
	}
	return entries, nil
}
