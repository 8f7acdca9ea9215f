package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"ipsentry/internal/database"
)

type blockRequest struct {
	IPAddress string `json:"ip_address"`
}

func getBlockedIPs(w http.ResponseWriter, r *http.Request) {
	blocked, err := database.ListBlockedIPs(r.Context())
	if err != nil {
		writeError(w, "Failed to load blocklist", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, blocked)
}

func addBlockedIP(w http.ResponseWriter, r *http.Request) {
	var body blockRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := database.BlockIP(r.Context(), body.IPAddress); err != nil {
		writeError(w, "Failed to block address", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"ip_address": database.NormalizeAddress(body.IPAddress)})
}

func removeBlockedIP(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("ip")
	if address == "" {
		writeError(w, "Missing ip address", http.StatusBadRequest)
		return
	}

	if err := database.UnblockIP(r.Context(), address); err != nil {
		writeError(w, "Failed to unblock address", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func blockSuspiciousIP(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, "Invalid suspicious ip id", http.StatusBadRequest)
		return
	}

	record, err := database.MarkSuspiciousIPBlocked(r.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, "Suspicious ip not found", http.StatusNotFound)
			return
		}
		writeError(w, "Failed to block suspicious ip", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, record)
}
