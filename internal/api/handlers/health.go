// Package handlers implements the JSON HTTP endpoints.
package handlers

import (
	"net/http"

	"github.com/cashflow-ai/cashflow-backend/internal/api/middleware"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "CashFlow AI Backend"

// Health handles GET /api/health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": ServiceName,
	})
}
