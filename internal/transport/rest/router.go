package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/identity-management/internal/auth"
	"github.com/frahmantamala/identity-management/internal/role"
	"github.com/frahmantamala/identity-management/internal/transport/middleware"
	"github.com/frahmantamala/identity-management/internal/transport/swagger"
	"github.com/frahmantamala/identity-management/internal/user"
)

// RegisterAllRoutes wires every endpoint under /api/v1. Protected routes run
// the authentication middleware first and the permission resolver second, so
// handlers only ever see authorized requests.
func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	authHandler *auth.Handler,
	resolver *auth.Resolver,
	userHandler *user.Handler,
	roleHandler *role.Handler,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// OpenAPI spec and swagger UI live outside the API prefix
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route(auth.APIPrefix, func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", authHandler.Login)
			sr.Post("/logout", authHandler.Logout)
		})

		// Protected routes: authenticate, then authorize against the
		// method/module policy table.
		r.Group(func(pr chi.Router) {
			pr.Use(authHandler.AuthMiddleware)

			// current user is exempt from the permission table: any
			// authenticated identity may read itself
			pr.Get("/users/me", userHandler.GetCurrentUser)

			pr.Group(func(ar chi.Router) {
				ar.Use(auth.RequireAccess(resolver))

				ar.Route("/users", func(ur chi.Router) {
					ur.Get("/", userHandler.ListUsers)
					ur.Post("/", userHandler.CreateUser)
					ur.Get("/{id}", userHandler.GetUser)
					ur.Patch("/{id}", userHandler.UpdateUser)
					ur.Delete("/{id}", userHandler.DeleteUser)
				})

				ar.Route("/roles", func(rr chi.Router) {
					rr.Get("/", roleHandler.ListRoles)
					rr.Post("/", roleHandler.CreateRole)
					rr.Get("/{id}", roleHandler.GetRole)
					rr.Patch("/{id}", roleHandler.UpdateRole)
					rr.Delete("/{id}", roleHandler.DeleteRole)
				})
			})
		})
	})
}
