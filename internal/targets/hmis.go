package targets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"axle-upload/internal/classifier"
	"axle-upload/internal/models"
)

const (
	hmisLookupPath = "/hmis/api/axle/getByBarCode"
	hmisSavePath   = "/hmis/api/axle/saveFlawResult"
)

type hmisLookupResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		ID       string `json:"id"`
		AxleNo   string `json:"axleNo"`
		AxleType string `json:"axleType"`
	} `json:"data"`
}

// hmisSaveBody is the flaw report wire format. The field names are fixed by
// the remote contract.
type hmisSaveBody struct {
	SbIP string `json:"sbIp"`
	Sbbh string `json:"sbbh"`
	Smh  string `json:"smh"`
	Zh   string `json:"zh"`
	Zx   string `json:"zx"`
	Jcff string `json:"jcff"`
	Jcsj string `json:"jcsj"`

	TflawPlace  string `json:"TFLAW_PLACE"`
	TflawType   string `json:"TFLAW_TYPE"`
	TflawAdvice string `json:"TFLAW_ADVICE"`

	// Per-position inspector signatures. The relief-groove pair is only
	// filled when the corresponding probe group was enabled for the run.
	Zct  string `json:"zct"`
	Yct  string `json:"yct"`
	Zlz  string `json:"zlz"`
	Ylz  string `json:"ylz"`
	Zzj  string `json:"zzj"`
	Yzj  string `json:"yzj"`
	Zxhc string `json:"zxhc"`
	Yxhc string `json:"yxhc"`
}

// HMIS returns the descriptor for the wheelset-overhaul system. Lookup is a
// GET by barcode; both calls answer with a string-code envelope.
func HMIS() Descriptor {
	return Descriptor{
		Name: NameHMIS,
		Classifier: classifier.Options{
			Combine: classifier.CombineLastWins,
			Variant: classifier.VariantJournal,
		},
		NewLookupRequest: func(ctx context.Context, cfg models.TargetSetting, barCode string) (*http.Request, error) {
			u := fmt.Sprintf("%s%s?%s", cfg.Host, hmisLookupPath, url.Values{"barCode": {barCode}}.Encode())
			return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		},
		CheckLookupEnvelope: checkStringCode(NameHMIS),
		ParseLookup: func(body []byte) (*RemoteDescriptor, error) {
			var resp hmisLookupResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, err
			}
			return &RemoteDescriptor{
				RemoteID:   resp.Data.ID,
				AxleNumber: resp.Data.AxleNo,
				AxleModel:  resp.Data.AxleType,
			}, nil
		},
		NewSaveRequest: func(ctx context.Context, cfg models.TargetSetting, rep Report) (*http.Request, error) {
			operator := signature(rep.Inspection.Operator, cfg.OperatorRole)
			payload := hmisSaveBody{
				SbIP: localIP(),
				Sbbh: rep.Site.DeviceNo,
				Smh:  rep.Record.BarCode,
				Zh:   rep.Inspection.AxleNumber,
				Zx:   rep.Inspection.AxleModel,
				Jcff: methodLabel,
				Jcsj: rep.Inspection.TestedAt.Format(wireTimeLayout),

				TflawPlace:  rep.Flaw.Place,
				TflawType:   rep.Flaw.Type,
				TflawAdvice: rep.Flaw.Disposition,

				Zct: operator,
				Yct: operator,
				Zlz: operator,
				Ylz: operator,
				Zzj: operator,
				Yzj: operator,
			}
			if rep.Inspection.LeftGroove {
				payload.Zxhc = operator
			}
			if rep.Inspection.RightGroove {
				payload.Yxhc = operator
			}
			return newJSONPost(ctx, cfg.Host+hmisSavePath, payload)
		},
		CheckSaveEnvelope: checkStringCode(NameHMIS),
	}
}

// newJSONPost builds a POST with a JSON body and the matching content type.
func newJSONPost(ctx context.Context, u string, payload any) (*http.Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}
