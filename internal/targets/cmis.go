package targets

import (
	"context"
	"encoding/json"
	"net/http"

	"axle-upload/internal/classifier"
	"axle-upload/internal/models"
)

const (
	cmisLookupPath = "/cmis/api/wheelset/queryByBarCode"
	cmisSavePath   = "/cmis/api/wheelset/uploadFlawResult"
)

type cmisLookupRequest struct {
	BarCode  string `json:"barCode"`
	UnitCode string `json:"unitCode"`
}

type cmisLookupResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		AxleID   string `json:"axleId"`
		AxleNo   string `json:"axleNo"`
		AxleType string `json:"axleType"`
		MakeDate string `json:"makeDate"`
		FitDate  string `json:"fitDate"`
	} `json:"data"`
}

type cmisSaveBody struct {
	Dwdm string `json:"dwdm"`
	Gsdm string `json:"gsdm"`
	SbIP string `json:"sbIp"`
	Sbbh string `json:"sbbh"`
	Gdh  string `json:"gdh"`
	Zh   string `json:"zh"`
	Zx   string `json:"zx"`
	Zzrq string `json:"zzrq"`
	Zdrq string `json:"zdrq"`
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

// CMIS returns the descriptor for the freight-car overhaul system. Lookup is
// a POST carrying the depot's unit code; the envelope code is numeric. Flaw
// places from multiple channels are joined rather than overwritten, channel 2
// maps to the relief groove and the place carries a board-side suffix.
func CMIS() Descriptor {
	return Descriptor{
		Name: NameCMIS,
		Classifier: classifier.Options{
			Combine:     classifier.CombineJoinAll,
			Variant:     classifier.VariantReliefGroove,
			BoardSuffix: true,
		},
		NewLookupRequest: func(ctx context.Context, cfg models.TargetSetting, barCode string) (*http.Request, error) {
			return newJSONPost(ctx, cfg.Host+cmisLookupPath, cmisLookupRequest{
				BarCode:  barCode,
				UnitCode: cfg.UnitCode,
			})
		},
		CheckLookupEnvelope: checkNumericCode(NameCMIS),
		ParseLookup: func(body []byte) (*RemoteDescriptor, error) {
			var resp cmisLookupResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, err
			}
			return &RemoteDescriptor{
				RemoteID:        resp.Data.AxleID,
				AxleNumber:      resp.Data.AxleNo,
				AxleModel:       resp.Data.AxleType,
				ManufactureDate: resp.Data.MakeDate,
				AssemblyDate:    resp.Data.FitDate,
			}, nil
		},
		NewSaveRequest: func(ctx context.Context, cfg models.TargetSetting, rep Report) (*http.Request, error) {
			operator := signature(rep.Inspection.Operator, cfg.OperatorRole)
			payload := cmisSaveBody{
				Dwdm: cfg.UnitCode,
				Gsdm: rep.Site.CorpCode,
				SbIP: localIP(),
				Sbbh: rep.Site.DeviceNo,
				Gdh:  cfg.SiteCodePrefix + rep.Record.BarCode,
				Zh:   rep.Inspection.AxleNumber,
				Zx:   rep.Inspection.AxleModel,
				Zzrq: rep.Record.ManufactureDate,
				Zdrq: rep.Record.AssemblyDate,
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
			return newJSONPost(ctx, cfg.Host+cmisSavePath, payload)
		},
		CheckSaveEnvelope: checkNumericCode(NameCMIS),
	}
}
