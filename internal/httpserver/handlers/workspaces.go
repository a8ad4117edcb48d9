package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/berth/internal/httpserver/deps"
	"github.com/MrSnakeDoc/berth/internal/logger"
)

// maxCreateBody caps the create request body.
const maxCreateBody = 64 << 10

type createRequest struct {
	Service string `json:"service"`
	Name    string `json:"name"`
}

// CreateWorkspace handles POST /api/workspace/create.
func CreateWorkspace(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		dec := json.NewDecoder(io.LimitReader(r.Body, maxCreateBody))
		if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		req.Service = strings.TrimSpace(req.Service)
		if req.Service == "" {
			writeError(w, http.StatusBadRequest, "Service name required")
			return
		}

		rec, err := d.Workspaces.Create(r.Context(), req.Service, strings.TrimSpace(req.Name))
		if err != nil {
			d.Logger.Warn("workspace creation failed",
				logger.String("service", req.Service),
				logger.String("name", req.Name),
				logger.Error(err))
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, struct {
			Success   bool          `json:"success"`
			Workspace workspaceJSON `json:"workspace"`
		}{
			Success:   true,
			Workspace: workspaceJSON{WorkspaceRecord: rec, CurrentStatus: rec.LastKnownStatus},
		})
	}
}

// DeleteWorkspace handles POST /api/workspace/{name}/delete and DELETE /api/workspace/{name}.
func DeleteWorkspace(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		msg, err := d.Workspaces.Delete(r.Context(), name)
		if err != nil {
			d.Logger.Warn("workspace deletion failed", logger.String("name", name), logger.Error(err))
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
		}{Success: true, Message: msg})
	}
}

// GetWorkspace handles GET /api/workspace/{name}.
func GetWorkspace(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := d.Workspaces.Get(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Workspace workspaceJSON `json:"workspace"`
		}{Workspace: toJSON(view)})
	}
}

// ListWorkspaces handles GET /api/workspaces.
func ListWorkspaces(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := d.Workspaces.List(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		out := make([]workspaceJSON, 0, len(views))
		for _, v := range views {
			out = append(out, toJSON(v))
		}
		writeJSON(w, http.StatusOK, struct {
			Workspaces []workspaceJSON `json:"workspaces"`
		}{Workspaces: out})
	}
}

// WorkspaceLogs handles GET /api/workspace/{name}/logs?tail=N.
func WorkspaceLogs(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tail := d.LogTail
		if raw := r.URL.Query().Get("tail"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "tail must be a positive integer")
				return
			}
			tail = n
		}

		logs, err := d.Workspaces.Logs(r.Context(), chi.URLParam(r, "name"), tail)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Logs string `json:"logs"`
		}{Logs: logs})
	}
}
