package ingress

import (
	"context"

	"ipsentry/internal/database"
	"ipsentry/internal/domain"
)

// StoreGuard backs the guard stage with the blocked_ips table.
type StoreGuard struct{}

func (StoreGuard) IsBlocked(ctx context.Context, address string) (bool, error) {
	return database.IsBlocked(ctx, address)
}

// StoreRecorder appends audit entries to the request_logs table.
type StoreRecorder struct{}

func (StoreRecorder) Record(ctx context.Context, entry *domain.RequestLog) error {
	return database.InsertRequestLog(ctx, entry)
}
