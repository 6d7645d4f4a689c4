// Package targets implements the upload adapters for the external
// maintenance-information systems. All four targets share one Adapter; the
// per-target divergences (endpoints, wire field names, envelope convention,
// classifier combine strategy) live in a Descriptor.
package targets

import (
	"context"
	"net"
	"net/http"
	"sync"

	"axle-upload/internal/apperrors"
	"axle-upload/internal/classifier"
	"axle-upload/internal/models"
)

// Known target names.
const (
	NameHMIS = "hmis"
	NameCMIS = "cmis"
	NameLMIS = "lmis"
	NameTMIS = "tmis"
)

// Names lists every supported target, in registration order.
var Names = []string{NameHMIS, NameCMIS, NameLMIS, NameTMIS}

// LedgerTable returns the name of a target's local ledger table.
func LedgerTable(name string) string {
	return name + "_upload_records"
}

// Wire constants shared by all targets.
const (
	methodLabel    = "ultrasonic"
	wireTimeLayout = "2006-01-02 15:04:05"
)

// RemoteDescriptor is the normalized result of a barcode lookup.
type RemoteDescriptor struct {
	RemoteID        string
	AxleNumber      string
	AxleModel       string
	ManufactureDate string
	AssemblyDate    string
}

// Report bundles everything a save payload is built from.
type Report struct {
	Record     models.UploadRecord
	Inspection models.InspectionRecord
	Site       models.SiteInfo
	Flaw       classifier.Flaw
	Config     models.TargetSetting
}

// Descriptor captures one target's wire behavior. Field names emitted by
// NewSaveRequest are part of the compatibility surface and must never be
// renamed.
type Descriptor struct {
	Name       string
	Classifier classifier.Options

	NewLookupRequest func(ctx context.Context, cfg models.TargetSetting, barCode string) (*http.Request, error)
	// CheckLookupEnvelope validates status + body of the lookup response.
	CheckLookupEnvelope func(status int, body []byte) *apperrors.UpstreamError
	// ParseLookup decodes a validated lookup response.
	ParseLookup func(body []byte) (*RemoteDescriptor, error)

	NewSaveRequest func(ctx context.Context, cfg models.TargetSetting, rep Report) (*http.Request, error)
	// CheckSaveEnvelope validates status + body of the save response.
	CheckSaveEnvelope func(status int, body []byte) *apperrors.UpstreamError

	// AfterSave, when set, runs a follow-up exchange after a successful save
	// and before the ledger row is marked uploaded.
	AfterSave func(ctx context.Context, client *http.Client, cfg models.TargetSetting, rep Report) error
}

// signature renders the inspector name for the per-position signature fields.
// When a role label is configured for the target it is appended in brackets,
// matching how the maintenance systems display certified inspectors.
func signature(name, role string) string {
	if role == "" {
		return name
	}
	return name + "(" + role + ")"
}

// localIP is the address reported in the equipment IP wire fields. Resolved
// once; the depot machine does not roam.
var (
	localIPOnce  sync.Once
	localIPValue string
)

func localIP() string {
	localIPOnce.Do(func() {
		localIPValue = "127.0.0.1"
		conn, err := net.Dial("udp", "8.8.8.8:80")
		if err != nil {
			return
		}
		defer conn.Close()
		if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
			localIPValue = addr.IP.String()
		}
	})
	return localIPValue
}
