package domain

import "time"

// RequestLog stores one audit entry per admitted request. Rows are
// insert-only; retention is handled outside the service.
type RequestLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	IPAddress string    `gorm:"size:45;not null;index" json:"ip_address"`
	Path      string    `gorm:"size:255;not null" json:"path"`
	Method    string    `gorm:"size:10;not null" json:"method"`
	UserAgent string    `gorm:"size:512" json:"user_agent"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`

	Country *string `gorm:"size:100" json:"country"`
	City    *string `gorm:"size:100" json:"city"`
}
