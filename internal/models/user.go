package models

import "time"

// Operator is a depot staff account allowed to change settings and delete
// ledger rows. Plain scans and uploads do not require a login.
type Operator struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	Role         string    `gorm:"size:32" json:"role,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName customizes the table name.
func (Operator) TableName() string {
	return "tbl_operator"
}
