package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter builds the registry's HTTP routes.
func NewRouter(h *RegistryHandler, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(log))             // structured access log
	r.Use(CORS)

	r.Get("/health", HealthCheck)

	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.CreateEvent)
		r.Get("/", h.ListEvents)

		r.Route("/{eventID}", func(r chi.Router) {
			r.Get("/", h.GetEvent)
			r.Post("/buildings", h.CreateBuilding)
			r.Get("/buildings", h.ListBuildings)
			r.Post("/pools", h.CreatePool)
			r.Get("/pools", h.ListPools)
			r.Delete("/assignments/{poolKind}/{assigneeKind}/{assigneeID}", h.UnassignByKind)
			r.Delete("/assignees/{assigneeKind}/{assigneeID}/assignments", h.ReleaseAssignee)
			r.Post("/reset", h.Reset)
			r.Post("/recount", h.RecountEvent)
		})
	})

	r.Route("/buildings/{buildingID}", func(r chi.Router) {
		r.Get("/", h.GetBuilding)
		r.Delete("/", h.DeleteBuilding)
	})

	r.Route("/pools/{poolID}", func(r chi.Router) {
		r.Get("/", h.GetPool)
		r.Patch("/", h.UpdatePool)
		r.Delete("/", h.DeletePool)
		r.Post("/assignments", h.Assign)
		r.Get("/assignments", h.ListAssignments)
		r.Delete("/assignments/{assigneeKind}/{assigneeID}", h.UnassignFromPool)
		r.Post("/recount", h.RecountPool)
	})

	r.Delete("/assignments/{assignmentID}", h.UnassignByID)
	r.Post("/maintenance/drift/heal", h.HealDrift)

	return r
}
