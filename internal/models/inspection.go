package models

import "time"

// InspectionRecord mirrors one row of the proprietary TestInfo table, read
// through the bridge utility. It is never written by this service.
type InspectionRecord struct {
	SaveID      int       `json:"nSaveID"`
	AxleNumber  string    `json:"szWHNumber"`
	AxleModel   string    `json:"szWHModel"`
	Operator    string    `json:"szOperator"`
	Result      string    `json:"szResult"`
	TestedAt    time.Time `json:"tmTestDate"`
	LeftGroove  bool      `json:"bLeftXHC"`
	RightGroove bool      `json:"bRightXHC"`
}

// ChannelSample is one row of the ChannelInfo table: a sensor position that
// flagged during the inspection identified by SaveID.
// Board: 0 = left, 1 = right. Channel: 0-8, a physical probe position.
type ChannelSample struct {
	SaveID  int `json:"nSaveID"`
	Board   int `json:"nBoard"`
	Channel int `json:"nChannel"`
}

// SiteInfo is the single-row FactoryInfo table holding the depot identity used
// to fill the outbound equipment fields.
type SiteInfo struct {
	DeviceNo string `json:"szDeviceNo"`
	CorpCode string `json:"szCorpCode"`
}
