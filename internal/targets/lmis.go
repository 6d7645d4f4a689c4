package targets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"axle-upload/internal/apperrors"
	"axle-upload/internal/classifier"
	"axle-upload/internal/models"
)

const (
	lmisLookupPath       = "/lmis/api/axle/findByBarCode"
	lmisSavePath         = "/lmis/api/axle/saveFlawResult"
	lmisDisqualifiedPath = "/lmis/api/axle/saveDisqualified"
)

type lmisLookupResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		ID       string `json:"id"`
		AxleNo   string `json:"axleNo"`
		AxleType string `json:"axleType"`
	} `json:"data"`
}

type lmisSaveBody struct {
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

	Zct  string `json:"zct"`
	Yct  string `json:"yct"`
	Zlz  string `json:"zlz"`
	Ylz  string `json:"ylz"`
	Zzj  string `json:"zzj"`
	Yzj  string `json:"yzj"`
	Zxhc string `json:"zxhc"`
	Yxhc string `json:"yxhc"`
}

// lmisDisqualifiedBody is the follow-up detail report for a flawed axle.
type lmisDisqualifiedBody struct {
	Smh        string `json:"smh"`
	Zh         string `json:"zh"`
	FlawPlace  string `json:"flawPlace"`
	FlawType   string `json:"flawType"`
	FlawAdvice string `json:"flawAdvice"`
	Jcsj       string `json:"jcsj"`
	Jcy        string `json:"jcy"`
}

// LMIS returns the descriptor for the locomotive overhaul system. The save
// response is a bare JSON boolean instead of an envelope, and a flawed axle
// triggers a second detail report before the ledger row is marked uploaded.
func LMIS() Descriptor {
	return Descriptor{
		Name: NameLMIS,
		Classifier: classifier.Options{
			Combine:     classifier.CombineLastWins,
			Variant:     classifier.VariantReliefGroove,
			BoardSuffix: true,
		},
		NewLookupRequest: func(ctx context.Context, cfg models.TargetSetting, barCode string) (*http.Request, error) {
			u := fmt.Sprintf("%s%s?%s", cfg.Host, lmisLookupPath, url.Values{"barCode": {barCode}}.Encode())
			return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		},
		CheckLookupEnvelope: checkStringCode(NameLMIS),
		ParseLookup: func(body []byte) (*RemoteDescriptor, error) {
			var resp lmisLookupResponse
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
			payload := lmisSaveBody{
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
			return newJSONPost(ctx, cfg.Host+lmisSavePath, payload)
		},
		CheckSaveEnvelope: checkBoolBody(NameLMIS),
		AfterSave: func(ctx context.Context, client *http.Client, cfg models.TargetSetting, rep Report) error {
			// A clean axle needs no detail report.
			if rep.Flaw.Disposition == "" {
				return nil
			}
			req, err := newJSONPost(ctx, cfg.Host+lmisDisqualifiedPath, lmisDisqualifiedBody{
				Smh:        rep.Record.BarCode,
				Zh:         rep.Inspection.AxleNumber,
				FlawPlace:  rep.Flaw.Place,
				FlawType:   rep.Flaw.Type,
				FlawAdvice: rep.Flaw.Disposition,
				Jcsj:       rep.Inspection.TestedAt.Format(wireTimeLayout),
				Jcy:        signature(rep.Inspection.Operator, cfg.OperatorRole),
			})
			if err != nil {
				return fmt.Errorf("building disqualified report: %w", err)
			}
			resp, err := client.Do(req)
			if err != nil {
				return &apperrors.UpstreamError{Target: NameLMIS, Message: err.Error()}
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return &apperrors.UpstreamError{Target: NameLMIS, Status: resp.StatusCode, Message: err.Error()}
			}
			if ue := checkBoolBody(NameLMIS)(resp.StatusCode, body); ue != nil {
				return ue
			}
			return nil
		},
	}
}
