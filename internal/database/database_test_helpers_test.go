package database

import (
	"fmt"
	"testing"

	"ipsentry/internal/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}

	if err := db.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
		t.Fatalf("set busy timeout: %v", err)
	}

	if err := db.AutoMigrate(&domain.User{}, &domain.RequestLog{}, &domain.BlockedIP{}, &domain.SuspiciousIP{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	DB = db
	t.Cleanup(func() {
		DB = nil
	})

	return db
}
