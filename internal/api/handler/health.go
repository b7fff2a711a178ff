package handler

import (
	"net/http"
	"time"
)

// Health answers liveness probes. It does not touch the upstream.
func Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"ts":     time.Now().UTC().Format(time.RFC3339Nano),
	})
}
