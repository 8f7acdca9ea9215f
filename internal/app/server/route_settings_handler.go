package server

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"

	"ipsentry/internal/config"
)

func getSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, config.GetConfig())
}

// saveSettings replaces the whole configuration. The update is persisted,
// broadcast to the other instances, and picked up by the running pipeline,
// limiter and scanner without a restart.
func saveSettings(w http.ResponseWriter, r *http.Request) {
	var newConfig config.Config
	if err := json.NewDecoder(r.Body).Decode(&newConfig); err != nil {
		log.Error("Error decoding request body:", err)
		writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	config.SetConfig(newConfig)

	writeJSON(w, http.StatusOK, config.GetConfig())
}
