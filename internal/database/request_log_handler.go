package database

import (
	"context"
	"errors"
	"time"

	"ipsentry/internal/domain"
)

// InsertRequestLog appends a single audit entry.
func InsertRequestLog(ctx context.Context, entry *domain.RequestLog) error {
	if DB == nil {
		return errors.New("database not initialised")
	}
	if entry == nil {
		return errors.New("nil request log entry")
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	return db.Create(entry).Error
}

// RequestLogsBetween returns every entry with a timestamp inside [from, to].
func RequestLogsBetween(ctx context.Context, from, to time.Time) ([]domain.RequestLog, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	var logs []domain.RequestLog
	if err := db.
		Where("timestamp >= ? AND timestamp <= ?", from, to).
		Order("timestamp ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// RecentRequestLogs returns the newest entries first, capped at limit.
func RecentRequestLogs(ctx context.Context, limit int) ([]domain.RequestLog, error) {
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

	var logs []domain.RequestLog
	if err := db.
		Order("timestamp DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
