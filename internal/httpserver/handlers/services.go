package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/berth/internal/domain"
	"github.com/MrSnakeDoc/berth/internal/httpserver/deps"
	"github.com/MrSnakeDoc/berth/internal/logger"
)

// Services handles GET /api/services.
func Services(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services, err := d.Workspaces.Services()
		if err != nil {
			d.Logger.Error("failed to load catalog", logger.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if services == nil {
			services = []domain.ServiceSummary{}
		}
		writeJSON(w, http.StatusOK, struct {
			Services []domain.ServiceSummary `json:"services"`
		}{Services: services})
	}
}

// Health handles GET /api/health.
func Health(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Workspaces.Health(r.Context()))
	}
}
