package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ipsentry/internal/auth"
	"ipsentry/internal/config"
)

func TestSaveSettingsAppliesUpdate(t *testing.T) {
	setupServerTestDB(t)
	t.Chdir(t.TempDir())

	router := testRouter(t)
	admin := createTestUser(t, "admin@example.com", "correct-password", "admin")

	previous := config.GetConfig()
	t.Cleanup(func() {
		config.SetConfig(previous)
	})

	updated := previous
	updated.Anomaly.RequestThreshold = 250
	updated.Ingress.BlockedMessage = "Access denied."

	payload, err := json.Marshal(updated)
	if err != nil {
		t.Fatalf("marshal settings: %v", err)
	}

	token, err := auth.GenerateJWT(admin.ID, admin.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/settings", strings.NewReader(string(payload)))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	applied := config.GetConfig()
	if applied.Anomaly.RequestThreshold != 250 {
		t.Fatalf("request threshold = %d, want 250", applied.Anomaly.RequestThreshold)
	}
	if applied.Ingress.BlockedMessage != "Access denied." {
		t.Fatalf("blocked message = %q, want Access denied.", applied.Ingress.BlockedMessage)
	}
}

func TestSaveSettingsRejectsInvalidJSON(t *testing.T) {
	setupServerTestDB(t)
	router := testRouter(t)
	admin := createTestUser(t, "admin@example.com", "correct-password", "admin")

	token, err := auth.GenerateJWT(admin.ID, admin.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/settings", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
