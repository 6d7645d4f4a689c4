// Package resolver fetches inspection outcomes from the proprietary local
// database through the bridge utility and maps the raw rows onto domain
// structs.
package resolver

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"axle-upload/internal/apperrors"
	"axle-upload/internal/bridge"
	"axle-upload/internal/models"

	"go.uber.org/zap"
)

// accessDateTime is the #...# literal layout accepted by the Access engine.
const accessDateTime = "2006-01-02 15:04:05"

// Querier is what the resolver needs from the bridge.
type Querier interface {
	Query(ctx context.Context, dbPath, query string) ([]bridge.Row, error)
}

// Resolver reads inspection data for a configured database file.
type Resolver struct {
	q      Querier
	dbPath string
	logger *zap.Logger
}

// New creates a Resolver bound to the database file at dbPath.
func New(q Querier, dbPath string, logger *zap.Logger) *Resolver {
	return &Resolver{q: q, dbPath: dbPath, logger: logger}
}

// InspectionByAxle returns the single most recent inspection of the given
// axle inside the inclusive [start, end] window. Zero rows is a NotFound
// condition carrying the axle number, not an empty result.
func (r *Resolver) InspectionByAxle(ctx context.Context, axle string, start, end time.Time) (*models.InspectionRecord, error) {
	query := fmt.Sprintf(
		"SELECT TOP 1 nSaveID, szWHNumber, szWHModel, szOperator, szResult, tmTestDate, bLeftXHC, bRightXHC "+
			"FROM TestInfo WHERE szWHNumber = '%s' AND tmTestDate >= #%s# AND tmTestDate <= #%s# "+
			"ORDER BY tmTestDate DESC",
		escape(axle), start.Format(accessDateTime), end.Format(accessDateTime))

	rows, err := r.q.Query(ctx, r.dbPath, query)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		r.logger.Warn("no inspection record in window",
			zap.String("axle", axle),
			zap.Time("start", start),
			zap.Time("end", end))
		return nil, &apperrors.NotFoundError{Resource: "inspection record", Key: axle}
	}

	rec, err := parseInspection(rows[0])
	if err != nil {
		return nil, fmt.Errorf("parsing inspection row for axle %s: %w", axle, err)
	}
	return rec, nil
}

// ChannelSamples returns the flagged sensor positions for one inspection.
// An empty result is legitimate: a clean inspection flags nothing.
func (r *Resolver) ChannelSamples(ctx context.Context, saveID int) ([]models.ChannelSample, error) {
	query := fmt.Sprintf("SELECT nSaveID, nBoard, nChannel FROM ChannelInfo WHERE nSaveID = %d", saveID)
	rows, err := r.q.Query(ctx, r.dbPath, query)
	if err != nil {
		return nil, err
	}
	samples := make([]models.ChannelSample, 0, len(rows))
	for _, row := range rows {
		samples = append(samples, models.ChannelSample{
			SaveID:  parseInt(row["nSaveID"]),
			Board:   parseInt(row["nBoard"]),
			Channel: parseInt(row["nChannel"]),
		})
	}
	return samples, nil
}

// SiteInfo returns the depot identity row. A missing row means the database
// was never provisioned and is surfaced as NotFound.
func (r *Resolver) SiteInfo(ctx context.Context) (*models.SiteInfo, error) {
	rows, err := r.q.Query(ctx, r.dbPath, "SELECT TOP 1 szDeviceNo, szCorpCode FROM FactoryInfo")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &apperrors.NotFoundError{Resource: "site metadata"}
	}
	return &models.SiteInfo{
		DeviceNo: rows[0]["szDeviceNo"],
		CorpCode: rows[0]["szCorpCode"],
	}, nil
}

func parseInspection(row bridge.Row) (*models.InspectionRecord, error) {
	testedAt, err := parseAccessTime(row["tmTestDate"])
	if err != nil {
		return nil, err
	}
	return &models.InspectionRecord{
		SaveID:      parseInt(row["nSaveID"]),
		AxleNumber:  row["szWHNumber"],
		AxleModel:   row["szWHModel"],
		Operator:    row["szOperator"],
		Result:      row["szResult"],
		TestedAt:    testedAt,
		LeftGroove:  parseBool(row["bLeftXHC"]),
		RightGroove: parseBool(row["bRightXHC"]),
	}, nil
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

// Access encodes true as -1; the utility may also emit true/false or 1/0.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "-1", "yes":
		return true
	}
	return false
}

var timeLayouts = []string{
	accessDateTime,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseAccessTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// escape doubles single quotes for inclusion in an Access string literal.
func escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
