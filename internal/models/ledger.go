package models

import "time"

// UploadRecord is one row of a target's local upload ledger. Each target system
// keeps its own table (see repositories.LedgerRepository); the struct is shared
// and bound to a concrete table name at query time.
type UploadRecord struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	BarCode    string    `gorm:"size:64;not null;index" json:"barCode"`
	RemoteID   string    `gorm:"size:64;index" json:"remoteId"`
	AxleNumber string    `gorm:"size:32" json:"axleNumber"`
	AxleModel  string    `gorm:"size:32" json:"axleModel"`
	ScannedAt  time.Time `gorm:"not null;index" json:"scannedAt"`
	Uploaded   bool      `gorm:"not null;default:false;index" json:"uploaded"`

	// Populated only by targets whose lookup returns them (CMIS).
	ManufactureDate string `gorm:"size:32" json:"manufactureDate,omitempty"`
	AssemblyDate    string `gorm:"size:32" json:"assemblyDate,omitempty"`
}
