package server

import (
	"net/http"
	"strconv"

	"ipsentry/internal/database"
)

const defaultReportLimit = 50

func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultReportLimit
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultReportLimit
	}
	if limit > 500 {
		limit = 500
	}
	return limit
}

func getSuspiciousIPs(w http.ResponseWriter, r *http.Request) {
	suspicious, err := database.RecentSuspiciousIPs(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, "Failed to load suspicious addresses", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, suspicious)
}

func getRequestLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := database.RecentRequestLogs(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, "Failed to load request logs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
