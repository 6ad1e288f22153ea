package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Qdrant    string `json:"qdrant"`
	Blob      string `json:"blob,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HealthChecker is implemented by the search index and the blob store.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewHealthHandler creates an HTTP handler for the /health endpoint.
// index is required; blob may be nil when uploads are not served.
func NewHealthHandler(index HealthChecker, blob HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		response := HealthResponse{
			Status:    "healthy",
			Qdrant:    "connected",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		code := http.StatusOK

		if err := index.Health(ctx); err != nil {
			response.Status = "unhealthy"
			response.Qdrant = "disconnected"
			code = http.StatusServiceUnavailable
		}

		if blob != nil {
			response.Blob = "connected"
			if err := blob.Health(ctx); err != nil {
				response.Status = "unhealthy"
				response.Blob = "disconnected"
				code = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(response)
	}
}
