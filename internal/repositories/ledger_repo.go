package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"axle-upload/internal/apperrors"
	"axle-upload/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LedgerRepository is the local upload ledger of one target system: every
// scanned barcode, its resolved axle number and whether it has been reported.
type LedgerRepository interface {
	// Upsert writes the result of a barcode lookup. An existing not-yet-
	// uploaded row for the same barcode is refreshed instead of duplicated.
	Upsert(ctx context.Context, rec *models.UploadRecord) error
	FindByID(ctx context.Context, id uint) (*models.UploadRecord, error)
	List(ctx context.Context, pendingOnly bool) ([]models.UploadRecord, error)
	// FindPending returns not-yet-uploaded rows, oldest first, optionally
	// restricted to rows scanned today.
	FindPending(ctx context.Context, todayOnly bool) ([]models.UploadRecord, error)
	// MarkUploaded flips uploaded false->true. The flag is monotonic: a row
	// that is already uploaded stays uploaded and the call is a no-op.
	MarkUploaded(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
}

type ledgerRepositoryImpl struct {
	db     *gorm.DB
	table  string
	logger *zap.Logger
}

// NewLedgerRepository creates the ledger accessor for one target's table.
func NewLedgerRepository(db *gorm.DB, table string, logger *zap.Logger) LedgerRepository {
	return &ledgerRepositoryImpl{db: db, table: table, logger: logger}
}

func (r *ledgerRepositoryImpl) tx(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(r.table)
}

func (r *ledgerRepositoryImpl) Upsert(ctx context.Context, rec *models.UploadRecord) error {
	var existing models.UploadRecord
	err := r.tx(ctx).Where("bar_code = ? AND uploaded = ?", rec.BarCode, false).First(&existing).Error
	switch {
	case err == nil:
		rec.ID = existing.ID
		if err := r.tx(ctx).Where("id = ?", existing.ID).Updates(rec).Error; err != nil {
			return fmt.Errorf("updating ledger row for barcode %s: %w", rec.BarCode, err)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := r.tx(ctx).Create(rec).Error; err != nil {
			return fmt.Errorf("creating ledger row for barcode %s: %w", rec.BarCode, err)
		}
		return nil
	default:
		return fmt.Errorf("querying ledger for barcode %s: %w", rec.BarCode, err)
	}
}

func (r *ledgerRepositoryImpl) FindByID(ctx context.Context, id uint) (*models.UploadRecord, error) {
	var rec models.UploadRecord
	err := r.tx(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperrors.NotFoundError{Resource: "ledger record", Key: fmt.Sprintf("%d", id)}
	}
	if err != nil {
		return nil, fmt.Errorf("loading ledger row %d: %w", id, err)
	}
	return &rec, nil
}

func (r *ledgerRepositoryImpl) List(ctx context.Context, pendingOnly bool) ([]models.UploadRecord, error) {
	q := r.tx(ctx).Order("scanned_at DESC")
	if pendingOnly {
		q = q.Where("uploaded = ?", false)
	}
	var recs []models.UploadRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("listing ledger rows: %w", err)
	}
	return recs, nil
}

func (r *ledgerRepositoryImpl) FindPending(ctx context.Context, todayOnly bool) ([]models.UploadRecord, error) {
	q := r.tx(ctx).Where("uploaded = ?", false).Order("scanned_at ASC")
	if todayOnly {
		start := startOfDay(time.Now())
		q = q.Where("scanned_at >= ?", start)
	}
	var recs []models.UploadRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("querying pending ledger rows: %w", err)
	}
	return recs, nil
}

func (r *ledgerRepositoryImpl) MarkUploaded(ctx context.Context, id uint) error {
	res := r.tx(ctx).Where("id = ? AND uploaded = ?", id, false).Update("uploaded", true)
	if res.Error != nil {
		return fmt.Errorf("marking ledger row %d uploaded: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		// Either missing or already uploaded. Only the former is an error.
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		r.logger.Debug("ledger row already uploaded", zap.Uint("id", id), zap.String("table", r.table))
	}
	return nil
}

func (r *ledgerRepositoryImpl) Delete(ctx context.Context, id uint) error {
	res := r.tx(ctx).Where("id = ?", id).Delete(&models.UploadRecord{})
	if res.Error != nil {
		return fmt.Errorf("deleting ledger row %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return &apperrors.NotFoundError{Resource: "ledger record", Key: fmt.Sprintf("%d", id)}
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
