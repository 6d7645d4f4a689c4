package repositories

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"axle-upload/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestLogRepo(t *testing.T) LogRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "logs.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.LogEntry{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewLogRepository(db, zap.NewNop())
}

func TestRecentLogsNewestFirst(t *testing.T) {
	repo := newTestLogRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := repo.InsertLog(ctx, models.LogEntry{
			Timestamp: time.Now(),
			Level:     "warn",
			Message:   fmt.Sprintf("upload failed %d", i),
		})
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	entries, err := repo.RecentLogs(ctx, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Message != "upload failed 4" || entries[2].Message != "upload failed 2" {
		t.Fatalf("entries not newest first: %q, %q", entries[0].Message, entries[2].Message)
	}
}

func TestRecentLogsDefaultLimit(t *testing.T) {
	repo := newTestLogRepo(t)
	ctx := context.Background()

	if err := repo.InsertLog(ctx, models.LogEntry{Timestamp: time.Now(), Level: "error", Message: "boom"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	entries, err := repo.RecentLogs(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Fields != "{}" {
		t.Fatalf("empty fields not normalized: %q", entries[0].Fields)
	}
}
