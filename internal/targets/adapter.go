package targets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"axle-upload/internal/apperrors"
	"axle-upload/internal/classifier"
	"axle-upload/internal/models"
	"axle-upload/internal/notify"
	"axle-upload/internal/repositories"
	"axle-upload/internal/settings"

	"go.uber.org/zap"
)

// DetectionResolver is what the adapter needs from the resolver package.
type DetectionResolver interface {
	InspectionByAxle(ctx context.Context, axle string, start, end time.Time) (*models.InspectionRecord, error)
	ChannelSamples(ctx context.Context, saveID int) ([]models.ChannelSample, error)
	SiteInfo(ctx context.Context) (*models.SiteInfo, error)
}

// Adapter performs the two operations every target supports: a barcode
// lookup that seeds the local ledger, and an upload that reports the
// resolved inspection outcome.
type Adapter struct {
	desc     Descriptor
	store    *settings.Store
	ledger   repositories.LedgerRepository
	resolver DetectionResolver
	hub      *notify.Hub
	client   *http.Client
	logger   *zap.Logger
}

// NewAdapter wires one target adapter.
func NewAdapter(
	desc Descriptor,
	store *settings.Store,
	ledger repositories.LedgerRepository,
	res DetectionResolver,
	hub *notify.Hub,
	logger *zap.Logger,
) *Adapter {
	return &Adapter{
		desc:     desc,
		store:    store,
		ledger:   ledger,
		resolver: res,
		hub:      hub,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger.With(zap.String("target", desc.Name)),
	}
}

// Name returns the target name.
func (a *Adapter) Name() string { return a.desc.Name }

// Ledger exposes the target's ledger repository to the HTTP layer and the
// scheduler.
func (a *Adapter) Ledger() repositories.LedgerRepository { return a.ledger }

// Get looks a barcode up at the target and records the result in the local
// ledger. The returned row is the one the later upload will use.
func (a *Adapter) Get(ctx context.Context, barCode string) (*models.UploadRecord, error) {
	if barCode == "" {
		return nil, &apperrors.ValidationError{Field: "barCode", Reason: "must not be empty"}
	}
	cfg, err := a.store.Get(a.desc.Name)
	if err != nil {
		return nil, err
	}

	req, err := a.desc.NewLookupRequest(ctx, cfg, barCode)
	if err != nil {
		return nil, fmt.Errorf("building lookup request: %w", err)
	}
	body, status, err := a.exchange(req)
	if err != nil {
		return nil, err
	}
	if ue := a.desc.CheckLookupEnvelope(status, body); ue != nil {
		a.logger.Warn("lookup rejected",
			zap.String("barCode", barCode),
			zap.Int("status", ue.Status),
			zap.String("code", ue.Code),
			zap.String("msg", ue.Message))
		return nil, ue
	}
	rd, err := a.desc.ParseLookup(body)
	if err != nil {
		return nil, fmt.Errorf("decoding lookup response: %w", err)
	}

	rec := &models.UploadRecord{
		BarCode:         barCode,
		RemoteID:        rd.RemoteID,
		AxleNumber:      rd.AxleNumber,
		AxleModel:       rd.AxleModel,
		ManufactureDate: rd.ManufactureDate,
		AssemblyDate:    rd.AssemblyDate,
		ScannedAt:       time.Now(),
	}
	if err := a.ledger.Upsert(ctx, rec); err != nil {
		return nil, err
	}
	a.logger.Info("barcode recorded",
		zap.String("barCode", barCode),
		zap.String("axle", rec.AxleNumber),
		zap.Uint("recordId", rec.ID))
	return rec, nil
}

// Set uploads the inspection outcome for one ledger row and, on success,
// marks the row uploaded and publishes an upload-completed event. Re-running
// Set on an already-uploaded row re-sends the report; the ledger flag never
// flips back.
func (a *Adapter) Set(ctx context.Context, recordID uint) (*models.UploadRecord, error) {
	rec, err := a.ledger.FindByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec.AxleNumber == "" {
		return nil, &apperrors.ValidationError{
			Field:  "axleNumber",
			Reason: fmt.Sprintf("ledger record %d (barcode %s) has no resolved axle number", rec.ID, rec.BarCode),
		}
	}
	cfg, err := a.store.Get(a.desc.Name)
	if err != nil {
		return nil, err
	}

	rep, err := a.buildReport(ctx, cfg, rec)
	if err != nil {
		return nil, err
	}

	req, err := a.desc.NewSaveRequest(ctx, cfg, *rep)
	if err != nil {
		return nil, fmt.Errorf("building save request: %w", err)
	}
	body, status, err := a.exchange(req)
	if err != nil {
		return nil, err
	}
	if ue := a.desc.CheckSaveEnvelope(status, body); ue != nil {
		a.logger.Warn("upload rejected",
			zap.Uint("recordId", rec.ID),
			zap.Int("status", ue.Status),
			zap.String("code", ue.Code),
			zap.String("msg", ue.Message))
		return nil, ue
	}

	if a.desc.AfterSave != nil {
		if err := a.desc.AfterSave(ctx, a.client, cfg, *rep); err != nil {
			return nil, err
		}
	}

	if err := a.ledger.MarkUploaded(ctx, rec.ID); err != nil {
		return nil, err
	}
	rec.Uploaded = true

	a.logger.Info("upload completed",
		zap.Uint("recordId", rec.ID),
		zap.String("axle", rec.AxleNumber),
		zap.String("place", rep.Flaw.Place))
	a.hub.Publish(a.desc.Name)
	return rec, nil
}

// buildReport resolves the inspection, classifies it and gathers the site
// identity. Channel samples are only fetched for fault outcomes; they are
// meaningless otherwise.
func (a *Adapter) buildReport(ctx context.Context, cfg models.TargetSetting, rec *models.UploadRecord) (*Report, error) {
	lookback := cfg.LookbackDays
	if lookback <= 0 {
		lookback = 30
	}
	now := time.Now()
	start := startOfDay(rec.ScannedAt.AddDate(0, 0, -lookback))

	insp, err := a.resolver.InspectionByAxle(ctx, rec.AxleNumber, start, now)
	if err != nil {
		return nil, err
	}

	var samples []models.ChannelSample
	if classifier.IsFault(insp.Result) {
		samples, err = a.resolver.ChannelSamples(ctx, insp.SaveID)
		if err != nil {
			return nil, err
		}
	}
	site, err := a.resolver.SiteInfo(ctx)
	if err != nil {
		return nil, err
	}

	return &Report{
		Record:     *rec,
		Inspection: *insp,
		Site:       *site,
		Flaw:       classifier.Classify(insp.Result, samples, a.desc.Classifier),
		Config:     cfg,
	}, nil
}

// exchange runs one HTTP round trip and returns the body and status. A
// transport-level failure is an UpstreamError too: to the operator it is the
// same "target unreachable" condition.
func (a *Adapter) exchange(req *http.Request) ([]byte, int, error) {
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, 0, &apperrors.UpstreamError{Target: a.desc.Name, Message: err.Error()}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &apperrors.UpstreamError{Target: a.desc.Name, Status: resp.StatusCode, Message: err.Error()}
	}
	return body, resp.StatusCode, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
