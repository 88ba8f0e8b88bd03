// Package api assembles the controller's HTTP surface (spec §6): a
// go-chi/chi/v5 router wrapping internal/api/handler's resource handlers
// behind internal/auth's bearer-JWT middleware, grounded on the teacher's
// pkg/server.Server.GetServer router-assembly shape (chi.NewRouter plus a
// pre-routing middleware chain, an auth layer, then route registration).
package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/amd-eai/airm/internal/api/handler"
	"github.com/amd-eai/airm/internal/auth"
)

// NewRouter assembles the controller's chi.Router. /v1/health is mounted
// outside verifier's middleware entirely (spec §6 "/v1/health is
// unauthenticated"); every other route requires a valid bearer token, and
// the project/cluster-provisioning routes additionally require the
// platform-administrator role (spec §6 "Admin-only routes").
func NewRouter(h *handler.Handler, verifier auth.TokenVerifier, requestTimeout time.Duration) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(requestTimeout))
	r.Use(Tracing)

	r.Get("/v1/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(verifier))

		r.Route("/v1/projects", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(auth.RequirePlatformAdmin)
				r.Post("/", h.CreateProject)
			})

			r.Get("/", h.ListProjects)

			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", h.GetProject)
				r.Put("/quota", h.EditProjectQuota)

				r.Group(func(r chi.Router) {
					r.Use(auth.RequirePlatformAdmin)
					r.Delete("/", h.DeleteProject)
				})

				r.Post("/workloads", h.CreateWorkload)
				r.Get("/workloads", h.ListWorkloads)
				r.Get("/workloads/{workloadID}", h.GetWorkload)
				r.Delete("/workloads/{workloadID}", h.DeleteWorkload)

				r.Post("/secrets", h.CreateProjectSecret)
				r.Delete("/secrets/{secretID}", h.RemoveSecretFromProject)

				r.Post("/storages", h.AssignStorageToProject)
				r.Get("/storages", h.ListProjectStorages)

				r.Post("/api-keys", h.CreateAPIKey)
				r.Get("/api-keys", h.ListAPIKeys)
				r.Get("/api-keys/{keyID}", h.GetAPIKey)
				r.Put("/api-keys/{keyID}/bindings", h.UpdateAPIKeyBindings)
				r.Delete("/api-keys/{keyID}", h.RevokeAPIKey)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequirePlatformAdmin)

			r.Post("/v1/secrets", h.CreateOrganizationSecret)
			r.Put("/v1/secrets/{secretID}/targets", h.UpdateSecretTargets)

			r.Get("/v1/clusters/{clusterID}", h.GetCluster)
			r.Get("/v1/clusters/{clusterID}/nodes", h.ListClusterNodes)
			r.Get("/v1/clusters/{clusterID}/resources", h.ClusterResources)
		})
	})

	return r
}
