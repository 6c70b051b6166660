package httpapi

import (
	"github.com/go-chi/chi/v5"

	"logistics/internal/pipeline"
	"logistics/internal/routegen"
	"logistics/internal/store"
	"logistics/pkg/config"
	"logistics/pkg/passhash"
)

// Deps bundles everything the operator HTTP surface needs to construct its
// handlers, gathered once at startup in cmd/routerd.
type Deps struct {
	Store      *store.Store
	Pipeline   *pipeline.Pipeline
	RouteGen   routegen.Deps
	Auth       config.AuthConfig
	JWTManager *passhash.JWTManager
}

// Register mounts every operator operation named in spec §6 onto r, under
// /api/v1. Auth endpoints are unauthenticated; everything else requires a
// bearer JWT carrying a role from the fixed set.
func Register(r chi.Router, d Deps) {
	auth := &AuthHandler{Auth: d.Auth, JWT: d.JWTManager}
	orders := &OrdersHandler{Store: d.Store, Pipeline: d.Pipeline}
	routes := &RoutesHandler{Store: d.Store, Deps: d.RouteGen}
	archive := &ArchiveHandler{Store: d.Store}

	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/auth/login", auth.Login)
		api.Post("/auth/refresh", auth.Refresh)

		api.Group(func(protected chi.Router) {
			protected.Use(RequireAuth(d.JWTManager))

			protected.Route("/orders", func(o chi.Router) {
				o.Post("/", orders.Create)
				o.Post("/ingest", orders.Ingest)
				o.Post("/reprocess-pending", orders.ReprocessPending)
				o.Patch("/{numero}", orders.Update)
				o.Patch("/{numero}/address", orders.CorrectAddress)
				o.Patch("/{numero}/classification", orders.OverrideClassification)
				o.Post("/{numero}/arm", orders.AdvanceToArmed)
				o.Post("/{numero}/reprocess", orders.Reprocess)
				o.Post("/{numero}/deliver", archive.MarkDelivered)
				o.Post("/{numero}/archive", archive.MoveToArchive)
			})

			protected.Route("/routes", func(rt chi.Router) {
				rt.Post("/generate", routes.Generate)
				rt.Get("/{id}", routes.Read)
				rt.Patch("/{id}/state", routes.UpdateRouteState)
				rt.Patch("/stops/{stopID}/state", routes.UpdateStopState)
			})

			protected.Route("/archive", func(a chi.Router) {
				a.Post("/{numero}/restore", archive.Restore)
			})
		})
	})
}
