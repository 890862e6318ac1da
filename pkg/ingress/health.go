package ingress

import (
	"encoding/json"
	"net/http"
	"time"
)

// healthResponse is the bit-exact body spec.md §6 requires for GET /health.
type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// healthzHandler is the original Rust source's extra liveness alias,
// kept per SPEC_FULL.md's supplemented features; /health remains the
// spec-mandated canonical path.
func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}
