package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/berth/internal/domain"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// workspaceJSON flattens a record and its live status into one object.
type workspaceJSON struct {
	domain.WorkspaceRecord
	CurrentStatus domain.Status `json:"current_status"`
}

func toJSON(v domain.WorkspaceView) workspaceJSON {
	return workspaceJSON{WorkspaceRecord: v.Workspace, CurrentStatus: v.CurrentStatus}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

// writeDomainError maps err through the error taxonomy.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, domain.HTTPStatus(err), err.Error())
}
