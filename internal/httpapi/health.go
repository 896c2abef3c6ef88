package httpapi

import (
	"net/http"

	"aiinfra/internal/logging"
	"aiinfra/internal/providers"
	"aiinfra/internal/utils"
)

func (d *Dependencies) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := d.DB.Health(r.Context()); err != nil {
		logging.Warningf("Health check failed: %v", err)
		utils.RespondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}

	stats := d.DB.GetStats()
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": d.Sessions.Len(),
		"db": map[string]int{
			"open":   stats.OpenConnections,
			"in_use": stats.InUse,
			"idle":   stats.Idle,
		},
	})
}

// handleCatalog lists the builtin provider cards.
func handleCatalog(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, providers.Cards())
}
