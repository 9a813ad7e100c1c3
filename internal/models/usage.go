package models

import "time"

// UsageLedger tracks consumed against granted minutes for one caller
type UsageLedger struct {
	CallerID       string    `json:"callerId" gorm:"primaryKey;size:128"`
	MinutesUsed    int64     `json:"minutesUsed" gorm:"not null;default:0"`
	MinutesGranted int64     `json:"minutesGranted" gorm:"not null;default:0"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// TableName specifies the table name for GORM
func (UsageLedger) TableName() string {
	return "usage_ledgers"
}

// Remaining returns granted minus used; it may be negative after a grant
// is lowered.
func (l *UsageLedger) Remaining() int64 {
	return l.MinutesGranted - l.MinutesUsed
}
