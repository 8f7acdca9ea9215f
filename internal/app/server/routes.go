package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/charmbracelet/log"
	"golang.org/x/net/netutil"

	"ipsentry/internal/auth"
	"ipsentry/internal/ingress"
	"ipsentry/internal/support"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func newRouter(limiter *ingress.Limiter) *http.ServeMux {
	router := http.NewServeMux()

	router.HandleFunc("GET /health", healthCheck)
	router.HandleFunc("GET /api", apiRoot)

	router.HandleFunc("POST /api/v1/register", registerUser)
	router.Handle("POST /api/v1/login", limiter.Wrap(http.HandlerFunc(loginUser)))
	router.Handle("GET /api/v1/check-login", auth.RequireAuth(http.HandlerFunc(checkLogin)))

	router.Handle("GET /api/v1/suspicious-ips", auth.IsAdmin(http.HandlerFunc(getSuspiciousIPs)))
	router.Handle("POST /api/v1/suspicious-ips/{id}/block", auth.IsAdmin(http.HandlerFunc(blockSuspiciousIP)))
	router.Handle("GET /api/v1/request-logs", auth.IsAdmin(http.HandlerFunc(getRequestLogs)))

	router.Handle("GET /api/v1/blocked-ips", auth.IsAdmin(http.HandlerFunc(getBlockedIPs)))
	router.Handle("POST /api/v1/blocked-ips", auth.IsAdmin(http.HandlerFunc(addBlockedIP)))
	router.Handle("DELETE /api/v1/blocked-ips/{ip}", auth.IsAdmin(http.HandlerFunc(removeBlockedIP)))

	router.Handle("GET /api/v1/settings", auth.IsAdmin(http.HandlerFunc(getSettings)))
	router.Handle("POST /api/v1/settings", auth.IsAdmin(http.HandlerFunc(saveSettings)))

	return router
}

// OpenRoutes starts the API server. Every route sits behind the ingress
// pipeline; the login endpoint additionally carries the rate limiter.
func OpenRoutes(port int, pipeline *ingress.Pipeline, limiter *ingress.Limiter) error {
	router := newRouter(limiter)

	log.Debug("Routes opened")

	addr := fmt.Sprintf(":%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("api server listen: %w", err)
	}

	maxConns := support.GetEnvInt("MAX_CONNS", 512)
	if maxConns > 0 {
		listener = netutil.LimitListener(listener, maxConns)
	}

	server := http.Server{
		Addr:    addr,
		Handler: enableCORS(pipeline.Middleware(router)),
	}

	log.Infof("Starting ipsentry API on port %s", addr)
	if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}
