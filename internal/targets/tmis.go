package targets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"axle-upload/internal/classifier"
	"axle-upload/internal/models"
)

const (
	tmisLookupPath = "/tmis/api/axle/getByBarCode"
	tmisSavePath   = "/tmis/api/axle/saveFlawResult"
)

type tmisLookupResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		ID       string `json:"id"`
		AxleNo   string `json:"axleNo"`
		AxleType string `json:"axleType"`
	} `json:"data"`
}

type tmisSaveBody struct {
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

// TMIS returns the descriptor for the metro wheelset system. Wire shape
// matches hmis except that flaw places carry a board-side suffix.
func TMIS() Descriptor {
	return Descriptor{
		Name: NameTMIS,
		Classifier: classifier.Options{
			Combine:     classifier.CombineLastWins,
			Variant:     classifier.VariantJournal,
			BoardSuffix: true,
		},
		NewLookupRequest: func(ctx context.Context, cfg models.TargetSetting, barCode string) (*http.Request, error) {
			u := fmt.Sprintf("%s%s?%s", cfg.Host, tmisLookupPath, url.Values{"barCode": {barCode}}.Encode())
			return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		},
		CheckLookupEnvelope: checkStringCode(NameTMIS),
		ParseLookup: func(body []byte) (*RemoteDescriptor, error) {
			var resp tmisLookupResponse
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
			payload := tmisSaveBody{
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
			return newJSONPost(ctx, cfg.Host+tmisSavePath, payload)
		},
		CheckSaveEnvelope: checkStringCode(NameTMIS),
	}
}
