package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ipsentry/internal/auth"
	"ipsentry/internal/database"
	"ipsentry/internal/domain"
	"ipsentry/internal/ingress"
	"ipsentry/internal/support"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupServerTestDB(t *testing.T) *gorm.DB {
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

	database.DB = db
	t.Cleanup(func() {
		database.DB = nil
	})

	return db
}

func testRouter(t *testing.T) *http.ServeMux {
	t.Helper()

	limiter := ingress.NewLimiter(ingress.NewMemoryCounterStore(),
		ingress.WithLimitFunc(func(ingress.Class) int { return 100 }))
	return newRouter(limiter)
}

func createTestUser(t *testing.T, email, password, role string) domain.User {
	t.Helper()

	hashed, err := support.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	user := domain.User{Email: email, Password: hashed, Role: role}
	if err := database.DB.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body["error"]
}

func TestLoginRejectsInvalidCredentials(t *testing.T) {
	setupServerTestDB(t)
	router := testRouter(t)
	createTestUser(t, "user@example.com", "correct-password", "user")

	t.Run("unknown email", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/login",
			strings.NewReader(`{"email":"nobody@example.com","password":"whatever1"}`))
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
		if got := errorBody(t, rec); got != "Invalid credentials" {
			t.Fatalf("error = %q, want Invalid credentials", got)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/login",
			strings.NewReader(`{"email":"user@example.com","password":"wrong-password"}`))
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
		if got := errorBody(t, rec); got != "Invalid credentials" {
			t.Fatalf("error = %q, want Invalid credentials", got)
		}
	})
}

func TestLoginWrongMethodNotAllowed(t *testing.T) {
	setupServerTestDB(t)
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/login", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestLoginIssuesToken(t *testing.T) {
	setupServerTestDB(t)
	router := testRouter(t)
	createTestUser(t, "user@example.com", "correct-password", "user")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/login",
		strings.NewReader(`{"email":"user@example.com","password":"correct-password"}`))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["token"] == "" {
		t.Fatal("login response carries no token")
	}
	if body["role"] != "user" {
		t.Fatalf("role = %q, want user", body["role"])
	}
}

func TestCheckLoginRequiresValidToken(t *testing.T) {
	setupServerTestDB(t)
	router := testRouter(t)
	user := createTestUser(t, "user@example.com", "correct-password", "user")

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/check-login", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := auth.GenerateJWT(user.ID, user.Role)
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/v1/check-login", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var body map[string]uint
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["user_id"] != user.ID {
			t.Fatalf("user_id = %d, want %d", body["user_id"], user.ID)
		}
	})
}

func TestSettingsRequireAdmin(t *testing.T) {
	setupServerTestDB(t)
	router := testRouter(t)
	user := createTestUser(t, "user@example.com", "correct-password", "user")

	t.Run("no token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/settings", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("non-admin token", func(t *testing.T) {
		token, err := auth.GenerateJWT(user.ID, user.Role)
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})
}
