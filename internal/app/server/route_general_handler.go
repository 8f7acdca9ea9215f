package server

import "net/http"

func healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "ipsentry",
	})
}

func apiRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "ipsentry API",
		"version": "v1",
		"endpoints": map[string]string{
			"health":         "/health",
			"register":       "/api/v1/register",
			"login":          "/api/v1/login",
			"check_login":    "/api/v1/check-login",
			"suspicious_ips": "/api/v1/suspicious-ips",
			"request_logs":   "/api/v1/request-logs",
			"blocked_ips":    "/api/v1/blocked-ips",
			"settings":       "/api/v1/settings",
		},
	})
}
