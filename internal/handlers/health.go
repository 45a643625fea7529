package handlers

import "net/http"

// HealthResponse is returned by the liveness endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Health reports liveness for service.
func Health(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Service: service})
	}
}
