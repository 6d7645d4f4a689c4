package repositories

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"axle-upload/internal/apperrors"
	"axle-upload/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testTable = "hmis_upload_records"

func newTestRepo(t *testing.T) LedgerRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ledger.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Table(testTable).AutoMigrate(&models.UploadRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewLedgerRepository(db, testTable, zap.NewNop())
}

func TestUpsertCreatesThenRefreshes(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := &models.UploadRecord{BarCode: "91022070168", ScannedAt: time.Now()}
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if rec.ID == 0 {
		t.Fatal("expected assigned id")
	}

	// A second scan of the same barcode refreshes the pending row in place.
	again := &models.UploadRecord{BarCode: "91022070168", AxleNumber: "67444", ScannedAt: time.Now()}
	if err := repo.Upsert(ctx, again); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if again.ID != rec.ID {
		t.Fatalf("expected same row, got ids %d and %d", rec.ID, again.ID)
	}

	rows, err := repo.List(ctx, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].AxleNumber != "67444" {
		t.Fatalf("axle number not refreshed: %+v", rows[0])
	}
}

func TestUpsertUploadedRowIsNotReused(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := &models.UploadRecord{BarCode: "B1", AxleNumber: "100", ScannedAt: time.Now()}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.MarkUploaded(ctx, first.ID); err != nil {
		t.Fatalf("mark: %v", err)
	}

	// The barcode is scanned again after the first report went out: that is a
	// new pending row, not a reset of the uploaded one.
	second := &models.UploadRecord{BarCode: "B1", AxleNumber: "100", ScannedAt: time.Now()}
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("uploaded row must not be reused")
	}

	pending, err := repo.FindPending(ctx, false)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != second.ID {
		t.Fatalf("unexpected pending set: %+v", pending)
	}
}

func TestMarkUploadedIsMonotonic(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := &models.UploadRecord{BarCode: "B2", ScannedAt: time.Now()}
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.MarkUploaded(ctx, rec.ID); err != nil {
		t.Fatalf("mark: %v", err)
	}
	// Marking again is a no-op, never an un-flip.
	if err := repo.MarkUploaded(ctx, rec.ID); err != nil {
		t.Fatalf("second mark: %v", err)
	}

	got, err := repo.FindByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !got.Uploaded {
		t.Fatal("uploaded flag lost")
	}
}

func TestMarkUploadedMissingRow(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.MarkUploaded(context.Background(), 4242)
	if !apperrors.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestFindPendingTodayOnly(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	old := &models.UploadRecord{BarCode: "OLD", ScannedAt: time.Now().AddDate(0, 0, -2)}
	fresh := &models.UploadRecord{BarCode: "FRESH", ScannedAt: time.Now()}
	for _, rec := range []*models.UploadRecord{old, fresh} {
		if err := repo.Upsert(ctx, rec); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	all, err := repo.FindPending(ctx, false)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(all))
	}
	// Oldest first: the scheduler drains in scan order.
	if all[0].BarCode != "OLD" {
		t.Fatalf("expected oldest first, got %+v", all)
	}

	today, err := repo.FindPending(ctx, true)
	if err != nil {
		t.Fatalf("pending today: %v", err)
	}
	if len(today) != 1 || today[0].BarCode != "FRESH" {
		t.Fatalf("unexpected today set: %+v", today)
	}
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := &models.UploadRecord{BarCode: "B3", ScannedAt: time.Now()}
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, rec.ID); !apperrors.IsNotFound(err) {
		t.Fatalf("expected NotFoundError after delete, got %v", err)
	}
	if err := repo.Delete(ctx, rec.ID); !apperrors.IsNotFound(err) {
		t.Fatalf("expected NotFoundError on double delete, got %v", err)
	}
}
