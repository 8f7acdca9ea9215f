package database

import (
	"context"
	"errors"

	"ipsentry/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetOrCreateSuspiciousIP inserts a suspicion record unless an equal
// (ip_address, reason) pair is already on file. The write rides on the
// composite unique index with ON CONFLICT DO NOTHING, so concurrent
// scanner runs cannot race a duplicate in. Returns true when a new row
// was created.
func GetOrCreateSuspiciousIP(ctx context.Context, address, reason string) (bool, error) {
	if DB == nil {
		return false, errors.New("database not initialised")
	}

	address = NormalizeAddress(address)
	if address == "" || reason == "" {
		return false, errors.New("suspicious ip requires address and reason")
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	record := domain.SuspiciousIP{
		IPAddress: address,
		Reason:    reason,
	}

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ip_address"}, {Name: "reason"}},
		DoNothing: true,
	}).Create(&record)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// RecentSuspiciousIPs returns the newest detections first, capped at limit.
func RecentSuspiciousIPs(ctx context.Context, limit int) ([]domain.SuspiciousIP, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}
	if limit <= 0 {
		limit = 50
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	var suspicious []domain.SuspiciousIP
	if err := db.
		Order("detected_at DESC, id DESC").
		Limit(limit).
		Find(&suspicious).Error; err != nil {
		return nil, err
	}
	return suspicious, nil
}

// MarkSuspiciousIPBlocked flips the administrative flag and mirrors the
// address into the blocklist so the guard starts rejecting it.
func MarkSuspiciousIPBlocked(ctx context.Context, id uint64) (*domain.SuspiciousIP, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	var record domain.SuspiciousIP
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&record, id).Error; err != nil {
			return err
		}

		if err := tx.Model(&record).Update("is_blocked", true).Error; err != nil {
			return err
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ip_address"}},
			DoNothing: true,
		}).Create(&domain.BlockedIP{IPAddress: record.IPAddress}).Error
	})
	if err != nil {
		return nil, err
	}

	record.IsBlocked = true
	return &record, nil
}
