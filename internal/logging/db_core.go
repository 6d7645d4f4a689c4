package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"axle-upload/internal/models"
	"axle-upload/internal/repositories"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// dbCore implements zapcore.Core and persists entries through a
// LogRepository so upload failures remain reviewable from the UI.
type dbCore struct {
	zapcore.LevelEnabler
	repo   repositories.LogRepository
	fields []zapcore.Field
}

// NewDBCore creates a core writing log entries to the ledger database.
func NewDBCore(enab zapcore.LevelEnabler, repo repositories.LogRepository) zapcore.Core {
	return &dbCore{
		LevelEnabler: enab,
		repo:         repo,
	}
}

// AttachDBCore returns a logger that additionally writes warn-and-above
// entries to the database. The original logger is not modified.
func AttachDBCore(logger *zap.Logger, repo repositories.LogRepository, level zapcore.Level) *zap.Logger {
	core := NewDBCore(level, repo)
	return logger.WithOptions(zap.WrapCore(func(existing zapcore.Core) zapcore.Core {
		return zapcore.NewTee(existing, core)
	}))
}

func (c *dbCore) With(fields []zapcore.Field) zapcore.Core {
	clone := c.clone()
	clone.fields = append(clone.fields, fields...)
	return clone
}

func (c *dbCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write uses MapObjectEncoder to extract and marshal the structured fields.
func (c *dbCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	allFields := append(append([]zapcore.Field(nil), c.fields...), fields...)

	mapEncoder := zapcore.NewMapObjectEncoder()
	for _, field := range allFields {
		field.AddTo(mapEncoder)
	}

	entry := models.LogEntry{
		Timestamp: ent.Time.Local(),
		Level:     ent.Level.String(),
		Message:   ent.Message,
		Fields:    "{}",
	}
	if len(mapEncoder.Fields) > 0 {
		if fieldBytes, err := json.Marshal(mapEncoder.Fields); err == nil {
			entry.Fields = string(fieldBytes)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.repo.InsertLog(ctx, entry); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to insert log entry into database: %v\n", err)
	}
	return nil
}

func (c *dbCore) Sync() error {
	return nil
}

func (c *dbCore) clone() *dbCore {
	return &dbCore{
		LevelEnabler: c.LevelEnabler,
		repo:         c.repo,
		fields:       append([]zapcore.Field(nil), c.fields...),
	}
}
