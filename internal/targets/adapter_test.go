package targets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"axle-upload/internal/apperrors"
	"axle-upload/internal/models"
	"axle-upload/internal/notify"
	"axle-upload/internal/repositories"
	"axle-upload/internal/settings"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeResolver struct {
	insp    models.InspectionRecord
	samples []models.ChannelSample
	site    models.SiteInfo

	sampleCalls int
}

func (f *fakeResolver) InspectionByAxle(ctx context.Context, axle string, start, end time.Time) (*models.InspectionRecord, error) {
	insp := f.insp
	return &insp, nil
}

func (f *fakeResolver) ChannelSamples(ctx context.Context, saveID int) ([]models.ChannelSample, error) {
	f.sampleCalls++
	return f.samples, nil
}

func (f *fakeResolver) SiteInfo(ctx context.Context) (*models.SiteInfo, error) {
	site := f.site
	return &site, nil
}

func newTestAdapter(t *testing.T, desc Descriptor, host string, res *fakeResolver, opts ...func(*models.TargetSetting)) *Adapter {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "adapter.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	table := LedgerTable(desc.Name)
	if err := db.Table(table).AutoMigrate(&models.UploadRecord{}); err != nil {
		t.Fatalf("migrate ledger: %v", err)
	}
	if err := db.AutoMigrate(&models.TargetSetting{}); err != nil {
		t.Fatalf("migrate settings: %v", err)
	}
	def := models.TargetSetting{
		Target:         desc.Name,
		Host:           host,
		LookbackDays:   30,
		UnitCode:       "D801",
		SiteCodePrefix: "WS-",
	}
	for _, opt := range opts {
		opt(&def)
	}
	store, err := settings.NewStore(db, []models.TargetSetting{def}, zap.NewNop())
	if err != nil {
		t.Fatalf("settings store: %v", err)
	}
	ledger := repositories.NewLedgerRepository(db, table, zap.NewNop())
	return NewAdapter(desc, store, ledger, res, notify.NewHub(), zap.NewNop())
}

// The canonical flow: a scanned barcode resolves to axle 67444 of model RE2B,
// the latest inspection found a fault on board 0 channel 0, so the report
// carries a through-transmission crack and the row flips to uploaded.
func TestHMISScanAndUpload(t *testing.T) {
	var saved map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case hmisLookupPath:
			if got := r.URL.Query().Get("barCode"); got != "91022070168" {
				t.Errorf("lookup barCode = %q", got)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"code": "200",
				"data": map[string]any{"id": "ax-77", "axleNo": "67444", "axleType": "RE2B"},
			})
		case hmisSavePath:
			if err := json.NewDecoder(r.Body).Decode(&saved); err != nil {
				t.Errorf("decode save body: %v", err)
			}
			json.NewEncoder(w).Encode(map[string]any{"code": "200"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	res := &fakeResolver{
		insp: models.InspectionRecord{
			SaveID:     12,
			AxleNumber: "67444",
			AxleModel:  "RE2B",
			Operator:   "Zhang",
			Result:     "has fault",
			TestedAt:   time.Date(2026, 8, 20, 9, 30, 0, 0, time.Local),
		},
		samples: []models.ChannelSample{{SaveID: 12, Board: 0, Channel: 0}},
		site:    models.SiteInfo{DeviceNo: "UT-09", CorpCode: "D801"},
	}
	a := newTestAdapter(t, HMIS(), srv.URL, res)
	ctx := context.Background()

	rec, err := a.Get(ctx, "91022070168")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.AxleNumber != "67444" || rec.AxleModel != "RE2B" {
		t.Fatalf("unexpected ledger row: %+v", rec)
	}

	rec, err = a.Set(ctx, rec.ID)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if !rec.Uploaded {
		t.Fatal("record not marked uploaded")
	}

	want := map[string]string{
		"zh":           "67444",
		"zx":           "RE2B",
		"smh":          "91022070168",
		"sbbh":         "UT-09",
		"jcff":         "ultrasonic",
		"jcsj":         "2026-08-20 09:30:00",
		"TFLAW_PLACE":  "through-transmission",
		"TFLAW_TYPE":   "crack",
		"TFLAW_ADVICE": "manual re-inspection",
		"zct":          "Zhang",
		"yzj":          "Zhang",
		"zxhc":         "",
		"yxhc":         "",
	}
	for k, v := range want {
		if got, _ := saved[k].(string); got != v {
			t.Errorf("save body %s = %q, want %q", k, got, v)
		}
	}

	got, err := a.Ledger().FindByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !got.Uploaded {
		t.Fatal("uploaded flag not persisted")
	}
}

func TestHMISCleanOutcomeSkipsSamples(t *testing.T) {
	var saved map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == hmisSavePath {
			json.NewDecoder(r.Body).Decode(&saved)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"code": "200",
			"data": map[string]any{"axleNo": "100"},
		})
	}))
	defer srv.Close()

	res := &fakeResolver{
		insp: models.InspectionRecord{AxleNumber: "100", Result: "no fault", TestedAt: time.Now()},
	}
	a := newTestAdapter(t, HMIS(), srv.URL, res)
	ctx := context.Background()

	rec, err := a.Get(ctx, "B100")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := a.Set(ctx, rec.ID); err != nil {
		t.Fatalf("set: %v", err)
	}
	if res.sampleCalls != 0 {
		t.Fatalf("channel samples fetched for clean outcome (%d calls)", res.sampleCalls)
	}
	for _, k := range []string{"TFLAW_PLACE", "TFLAW_TYPE", "TFLAW_ADVICE"} {
		if got, _ := saved[k].(string); got != "" {
			t.Errorf("clean outcome: %s = %q, want empty", k, got)
		}
	}
}

func TestGetEmptyBarCode(t *testing.T) {
	a := newTestAdapter(t, HMIS(), "http://unused", &fakeResolver{})
	if _, err := a.Get(context.Background(), ""); !apperrors.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestGetRejectedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"code": "500", "msg": "barcode unknown"})
	}))
	defer srv.Close()

	a := newTestAdapter(t, HMIS(), srv.URL, &fakeResolver{})
	_, err := a.Get(context.Background(), "NOPE")
	if !apperrors.IsUpstream(err) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	rows, err := a.Ledger().List(context.Background(), false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("rejected lookup must not touch the ledger, got %d rows", len(rows))
	}
}

func TestSetRejectedEnvelopeLeavesRowPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case hmisLookupPath:
			json.NewEncoder(w).Encode(map[string]any{
				"code": "200",
				"data": map[string]any{"axleNo": "55"},
			})
		case hmisSavePath:
			json.NewEncoder(w).Encode(map[string]any{"code": "417", "msg": "duplicate"})
		}
	}))
	defer srv.Close()

	res := &fakeResolver{insp: models.InspectionRecord{AxleNumber: "55", Result: "no fault", TestedAt: time.Now()}}
	a := newTestAdapter(t, HMIS(), srv.URL, res)
	ctx := context.Background()

	rec, err := a.Get(ctx, "B55")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := a.Set(ctx, rec.ID); !apperrors.IsUpstream(err) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	got, err := a.Ledger().FindByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Uploaded {
		t.Fatal("rejected upload must leave the row pending")
	}
}

func TestSetMissingAxleNumber(t *testing.T) {
	a := newTestAdapter(t, HMIS(), "http://unused", &fakeResolver{})
	ctx := context.Background()

	rec := &models.UploadRecord{BarCode: "SCAN-ONLY", ScannedAt: time.Now()}
	if err := a.Ledger().Upsert(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := a.Set(ctx, rec.ID); !apperrors.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCMISSaveBody(t *testing.T) {
	var lookupBody map[string]any
	var saved map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case cmisLookupPath:
			json.NewDecoder(r.Body).Decode(&lookupBody)
			json.NewEncoder(w).Encode(map[string]any{
				"code": 200,
				"data": map[string]any{
					"axleId": "9001", "axleNo": "70211", "axleType": "RD2",
					"makeDate": "2019-04-01", "fitDate": "2023-11-12",
				},
			})
		case cmisSavePath:
			json.NewDecoder(r.Body).Decode(&saved)
			json.NewEncoder(w).Encode(map[string]any{"code": 200})
		}
	}))
	defer srv.Close()

	res := &fakeResolver{
		insp: models.InspectionRecord{
			SaveID:     3,
			AxleNumber: "70211",
			AxleModel:  "RD2",
			Operator:   "Li",
			Result:     "fault",
			TestedAt:   time.Now(),
		},
		// Two distinct places plus a duplicate: joined once each, in order.
		samples: []models.ChannelSample{
			{Board: 0, Channel: 1},
			{Board: 1, Channel: 4},
			{Board: 0, Channel: 2},
		},
		site: models.SiteInfo{DeviceNo: "UT-02", CorpCode: "T6021"},
	}
	a := newTestAdapter(t, CMIS(), srv.URL, res)
	ctx := context.Background()

	rec, err := a.Get(ctx, "70211003")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got, _ := lookupBody["unitCode"].(string); got != "D801" {
		t.Errorf("lookup unitCode = %q", got)
	}
	if rec.ManufactureDate != "2019-04-01" || rec.AssemblyDate != "2023-11-12" {
		t.Fatalf("lookup dates not kept: %+v", rec)
	}

	if _, err := a.Set(ctx, rec.ID); err != nil {
		t.Fatalf("set: %v", err)
	}
	want := map[string]string{
		"dwdm":        "D801",
		"gsdm":        "T6021",
		"gdh":         "WS-70211003",
		"zzrq":        "2019-04-01",
		"zdrq":        "2023-11-12",
		"TFLAW_PLACE": "relief groove-left,wheel seat-right",
	}
	for k, v := range want {
		if got, _ := saved[k].(string); got != v {
			t.Errorf("save body %s = %q, want %q", k, got, v)
		}
	}
}

func TestOperatorRoleAnnotatesSignatures(t *testing.T) {
	var saved map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == hmisSavePath {
			json.NewDecoder(r.Body).Decode(&saved)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"code": "200",
			"data": map[string]any{"axleNo": "200"},
		})
	}))
	defer srv.Close()

	res := &fakeResolver{
		insp: models.InspectionRecord{
			AxleNumber:  "200",
			Operator:    "Zhang",
			Result:      "no fault",
			TestedAt:    time.Now(),
			LeftGroove:  true,
			RightGroove: true,
		},
	}
	a := newTestAdapter(t, HMIS(), srv.URL, res, func(cfg *models.TargetSetting) {
		cfg.OperatorRole = "UT-II"
	})
	ctx := context.Background()

	rec, err := a.Get(ctx, "B200")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := a.Set(ctx, rec.ID); err != nil {
		t.Fatalf("set: %v", err)
	}
	for _, k := range []string{"zct", "yct", "zlz", "ylz", "zzj", "yzj", "zxhc", "yxhc"} {
		if got, _ := saved[k].(string); got != "Zhang(UT-II)" {
			t.Errorf("signature %s = %q, want %q", k, got, "Zhang(UT-II)")
		}
	}
}

func TestLMISDisqualifiedFollowUp(t *testing.T) {
	var detail map[string]any
	detailCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case lmisLookupPath:
			json.NewEncoder(w).Encode(map[string]any{
				"code": "200",
				"data": map[string]any{"axleNo": "33012"},
			})
		case lmisSavePath:
			w.Write([]byte("true"))
		case lmisDisqualifiedPath:
			detailCalls++
			json.NewDecoder(r.Body).Decode(&detail)
			w.Write([]byte("true"))
		}
	}))
	defer srv.Close()

	res := &fakeResolver{
		insp: models.InspectionRecord{
			AxleNumber: "33012",
			Operator:   "Wang",
			Result:     "suspected fault",
			TestedAt:   time.Now(),
		},
		samples: []models.ChannelSample{{Board: 1, Channel: 2}},
	}
	a := newTestAdapter(t, LMIS(), srv.URL, res)
	ctx := context.Background()

	rec, err := a.Get(ctx, "L33012")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := a.Set(ctx, rec.ID); err != nil {
		t.Fatalf("set: %v", err)
	}
	if detailCalls != 1 {
		t.Fatalf("expected one disqualified report, got %d", detailCalls)
	}
	if got, _ := detail["flawPlace"].(string); got != "relief groove-right" {
		t.Errorf("detail flawPlace = %q", got)
	}
	if got, _ := detail["jcy"].(string); got != "Wang" {
		t.Errorf("detail jcy = %q", got)
	}
}

func TestLMISCleanOutcomeSkipsFollowUp(t *testing.T) {
	detailCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case lmisLookupPath:
			json.NewEncoder(w).Encode(map[string]any{
				"code": "200",
				"data": map[string]any{"axleNo": "33013"},
			})
		case lmisSavePath:
			w.Write([]byte("true"))
		case lmisDisqualifiedPath:
			detailCalls++
			w.Write([]byte("true"))
		}
	}))
	defer srv.Close()

	res := &fakeResolver{insp: models.InspectionRecord{AxleNumber: "33013", Result: "no fault", TestedAt: time.Now()}}
	a := newTestAdapter(t, LMIS(), srv.URL, res)
	ctx := context.Background()

	rec, err := a.Get(ctx, "L33013")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := a.Set(ctx, rec.ID); err != nil {
		t.Fatalf("set: %v", err)
	}
	if detailCalls != 0 {
		t.Fatalf("clean outcome must not send a disqualified report, got %d", detailCalls)
	}
}

func TestLMISSaveFalseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case lmisLookupPath:
			json.NewEncoder(w).Encode(map[string]any{
				"code": "200",
				"data": map[string]any{"axleNo": "33014"},
			})
		case lmisSavePath:
			w.Write([]byte("false"))
		}
	}))
	defer srv.Close()

	res := &fakeResolver{insp: models.InspectionRecord{AxleNumber: "33014", Result: "no fault", TestedAt: time.Now()}}
	a := newTestAdapter(t, LMIS(), srv.URL, res)
	ctx := context.Background()

	rec, err := a.Get(ctx, "L33014")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := a.Set(ctx, rec.ID); !apperrors.IsUpstream(err) {
		t.Fatalf("expected UpstreamError on false body, got %v", err)
	}
}
