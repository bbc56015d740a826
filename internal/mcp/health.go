package mcp

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mike-a-ellis/hse-assistant/internal/rag"
)

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	State     string `json:"state"`
	Chunks    int    `json:"chunks"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// StatusReporter is implemented by rag.System.
type StatusReporter interface {
	Status() rag.Status
}

// NewHealthHandler reports 200 once the assistant is ready and 503 while it
// is initializing or after initialization failed.
func NewHealthHandler(status StatusReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := status.Status()
		response := HealthResponse{
			State:     st.State,
			Chunks:    st.Chunks,
			Error:     st.Error,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}

		w.Header().Set("Content-Type", "application/json")
		if st.State != rag.Ready.String() {
			response.Status = "unhealthy"
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(response)
			return
		}

		response.Status = "healthy"
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}
