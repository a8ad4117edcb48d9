package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/berth/internal/httpserver/deps"
	"github.com/MrSnakeDoc/berth/internal/logger"
)

// Reconcile triggers a status sweep.
func Reconcile(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.SweepTrigger == nil {
			writeError(w, http.StatusNotFound, "status sweeper is disabled")
			return
		}

		select {
		case d.SweepTrigger <- struct{}{}:
			d.Logger.Info("manual status sweep triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusAccepted, struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
			}{Success: true, Message: "status sweep triggered"})
		default:
			d.Logger.Warn("status sweep already pending",
				logger.String("remote_ip", r.RemoteAddr))
			writeError(w, http.StatusTooManyRequests, "status sweep already in progress, please wait")
		}
	}
}
