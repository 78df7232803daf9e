package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hollowaydev/fieldops/internal/fault"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps error kinds to HTTP statuses. Internal failures are logged
// and never leaked to the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch fault.KindOf(err) {
	case fault.Validation:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case fault.NotFound:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case fault.Forbidden:
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	default:
		logger.Error("internal error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
