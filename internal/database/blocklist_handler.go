package database

import (
	"context"
	"errors"
	"net"
	"strings"

	"ipsentry/internal/domain"

	"gorm.io/gorm/clause"
)

// IsBlocked reports whether the normalized address has a blocklist entry.
// Matching is exact string equality, no CIDR expansion.
func IsBlocked(ctx context.Context, address string) (bool, error) {
	if DB == nil {
		return false, errors.New("database not initialised")
	}

	address = NormalizeAddress(address)
	if address == "" {
		return false, nil
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	var count int64
	if err := db.Model(&domain.BlockedIP{}).
		Where("ip_address = ?", address).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// BlockIP inserts the address into the blocklist; already-present entries
// are left untouched.
func BlockIP(ctx context.Context, address string) error {
	if DB == nil {
		return errors.New("database not initialised")
	}

	address = NormalizeAddress(address)
	if address == "" {
		return errors.New("invalid ip address")
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ip_address"}},
		DoNothing: true,
	}).Create(&domain.BlockedIP{IPAddress: address}).Error
}

// UnblockIP removes the address from the blocklist. Removing an address
// that is not present is not an error.
func UnblockIP(ctx context.Context, address string) error {
	if DB == nil {
		return errors.New("database not initialised")
	}

	address = NormalizeAddress(address)
	if address == "" {
		return errors.New("invalid ip address")
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	return db.Where("ip_address = ?", address).Delete(&domain.BlockedIP{}).Error
}

// ListBlockedIPs returns every blocklist entry ordered by address.
func ListBlockedIPs(ctx context.Context) ([]domain.BlockedIP, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	var blocked []domain.BlockedIP
	if err := db.Order("ip_address ASC").Find(&blocked).Error; err != nil {
		return nil, err
	}
	return blocked, nil
}

// NormalizeAddress canonicalises an IP string so blocklist matches and log
// rows agree on one spelling. Unparseable input is returned trimmed rather
// than dropped; the guard still compares it by exact equality.
func NormalizeAddress(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	parsed := net.ParseIP(trimmed)
	if parsed == nil {
		return trimmed
	}
	if ipv4 := parsed.To4(); ipv4 != nil {
		return ipv4.String()
	}
	return parsed.String()
}
