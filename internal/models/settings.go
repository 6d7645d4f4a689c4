package models

// TargetSetting is the externally mutable configuration row for one target
// system. Changes made through the settings API are persisted here and fanned
// out to the auto-upload scheduler without a restart.
type TargetSetting struct {
	Target                    string `gorm:"primaryKey;size:16" json:"target"`
	Host                      string `gorm:"size:255" json:"host" validate:"required"`
	AutoUpload                bool   `json:"autoUpload"`
	AutoUploadIntervalSeconds int    `json:"autoUploadIntervalSeconds" validate:"min=5"`
	TodayOnly                 bool   `json:"todayOnly"`
	LookbackDays              int    `json:"lookbackDays" validate:"min=1"`

	// Target-specific fields; unused ones stay empty.
	UnitCode       string `gorm:"size:32" json:"unitCode,omitempty"`
	SiteCodePrefix string `gorm:"size:32" json:"siteCodePrefix,omitempty"`
	OperatorRole   string `gorm:"size:32" json:"operatorRole,omitempty"`
}

// TableName customizes the table name.
func (TargetSetting) TableName() string {
	return "tbl_target_setting"
}
