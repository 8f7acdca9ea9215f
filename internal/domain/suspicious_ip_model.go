package domain

import "time"

// SuspiciousIP records one detection per distinct (ip_address, reason).
// The composite unique index backs the scanner's insert-if-absent writes.
type SuspiciousIP struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	IPAddress string `gorm:"size:45;not null;uniqueIndex:idx_suspicious_ip_reason" json:"ip_address"`
	Reason    string `gorm:"size:512;not null;uniqueIndex:idx_suspicious_ip_reason" json:"reason"`

	DetectedAt time.Time `gorm:"autoCreateTime" json:"detected_at"`

	// IsBlocked is an administrative flag, never set by the scanner.
	IsBlocked bool `gorm:"not null;default:false" json:"is_blocked"`
}
