package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/berth/internal/httpserver/deps"
	"github.com/MrSnakeDoc/berth/internal/httpserver/handlers"
)

func init() { Register(registerWorkspaces) }

// registerWorkspaces mounts the /api surface. Create and delete run under
// the lifecycle manager's own pull/create/stop bounds, so only the other
// routes get the short request timeout.
func registerWorkspaces(r chi.Router, d deps.Deps) {
	r.Route("/api", func(api chi.Router) {
		api.Post("/workspace/create", handlers.CreateWorkspace(d))
		api.Post("/workspace/{name}/delete", handlers.DeleteWorkspace(d))
		api.Delete("/workspace/{name}", handlers.DeleteWorkspace(d))

		api.Group(func(short chi.Router) {
			short.Use(middleware.Timeout(requestTimeout(d)))
			short.Get("/services", handlers.Services(d))
			short.Get("/workspaces", handlers.ListWorkspaces(d))
			short.Get("/workspace/{name}", handlers.GetWorkspace(d))
			short.Get("/workspace/{name}/logs", handlers.WorkspaceLogs(d))
			short.Get("/health", handlers.Health(d))
			short.Post("/reconcile", handlers.Reconcile(d))
		})
	})
}
