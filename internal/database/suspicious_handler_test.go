package database

import (
	"context"
	"testing"

	"ipsentry/internal/domain"
)

func TestGetOrCreateSuspiciousIPInsertsOnce(t *testing.T) {
	db := setupTestDB(t)

	ctx := context.Background()

	created, err := GetOrCreateSuspiciousIP(ctx, "203.0.113.5", "Accessed sensitive path: /admin")
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !created {
		t.Fatalf("first insert reported created = false")
	}

	created, err = GetOrCreateSuspiciousIP(ctx, "203.0.113.5", "Accessed sensitive path: /admin")
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if created {
		t.Fatalf("duplicate insert reported created = true")
	}

	var count int64
	if err := db.Model(&domain.SuspiciousIP{}).Count(&count).Error; err != nil {
		t.Fatalf("count suspicious ips: %v", err)
	}
	if count != 1 {
		t.Fatalf("suspicious rows = %d, want 1", count)
	}
}

func TestGetOrCreateSuspiciousIPDistinctReasons(t *testing.T) {
	db := setupTestDB(t)

	ctx := context.Background()

	reasons := []string{
		"Accessed sensitive path: /admin",
		"Exceeded 100 requests in the past hour (150 requests)",
	}
	for _, reason := range reasons {
		if _, err := GetOrCreateSuspiciousIP(ctx, "203.0.113.5", reason); err != nil {
			t.Fatalf("insert %q: %v", reason, err)
		}
	}

	var count int64
	if err := db.Model(&domain.SuspiciousIP{}).
		Where("ip_address = ?", "203.0.113.5").
		Count(&count).Error; err != nil {
		t.Fatalf("count suspicious ips: %v", err)
	}
	if count != 2 {
		t.Fatalf("suspicious rows = %d, want 2", count)
	}
}

func TestGetOrCreateSuspiciousIPRejectsEmptyInput(t *testing.T) {
	setupTestDB(t)

	if _, err := GetOrCreateSuspiciousIP(context.Background(), "", "reason"); err == nil {
		t.Fatalf("expected error for empty address")
	}
	if _, err := GetOrCreateSuspiciousIP(context.Background(), "203.0.113.5", ""); err == nil {
		t.Fatalf("expected error for empty reason")
	}
}

func TestMarkSuspiciousIPBlocked(t *testing.T) {
	db := setupTestDB(t)

	ctx := context.Background()

	record := domain.SuspiciousIP{IPAddress: "198.51.100.9", Reason: "Accessed sensitive path: /login"}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("create suspicious ip: %v", err)
	}

	updated, err := MarkSuspiciousIPBlocked(ctx, record.ID)
	if err != nil {
		t.Fatalf("mark blocked: %v", err)
	}
	if !updated.IsBlocked {
		t.Fatalf("record not flagged as blocked")
	}

	blocked, err := IsBlocked(ctx, "198.51.100.9")
	if err != nil {
		t.Fatalf("check blocklist: %v", err)
	}
	if !blocked {
		t.Fatalf("address not mirrored into blocklist")
	}
}

func TestRecentSuspiciousIPsNewestFirst(t *testing.T) {
	db := setupTestDB(t)

	ctx := context.Background()

	for i, addr := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		record := domain.SuspiciousIP{IPAddress: addr, Reason: "Accessed sensitive path: /admin"}
		if err := db.Create(&record).Error; err != nil {
			t.Fatalf("create record %d: %v", i, err)
		}
	}

	recent, err := RecentSuspiciousIPs(ctx, 2)
	if err != nil {
		t.Fatalf("recent suspicious ips: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("recent rows = %d, want 2", len(recent))
	}
	if recent[0].ID <= recent[1].ID {
		t.Fatalf("results not newest first: ids %d, %d", recent[0].ID, recent[1].ID)
	}
}
