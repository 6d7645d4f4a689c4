package models

import "time"

// LogEntry is a persisted application log record (warn and above). Kept locally
// so failed uploads can be reviewed at the depot after the fact.
type LogEntry struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	Level     string    `gorm:"size:16;not null" json:"level"`
	Message   string    `gorm:"not null" json:"message"`
	Fields    string    `json:"fields,omitempty"` // JSON representation of extra fields
}

// TableName keeps the name the depot support tooling expects.
func (LogEntry) TableName() string {
	return "tbl_log"
}
