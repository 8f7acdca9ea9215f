package domain

import "time"

// BlockedIP is the hard veto list. Entries are managed through the admin
// API only; the ingress pipeline never writes here.
type BlockedIP struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	IPAddress string `gorm:"size:45;uniqueIndex;not null" json:"ip_address"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
