package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ukydev/fleet-costing/internal/middleware"
)

// RouterDeps bundles everything the router mounts.
type RouterDeps struct {
	Auth      *AuthHandler
	Diesel    *DieselHandler
	Norms     *NormHandler
	Flags     *FlagHandler
	Trips     *TripHandler
	Assets    *AssetHandler
	AuthMW    *middleware.AuthMiddleware
	RateLimit *middleware.RateLimitMiddleware
}

// NewRouter creates the Chi router with all API routes mounted behind JWT
// authentication. Login, register and the health check stay open.
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Middleware.
	r.Use(chimw.Recoverer)
	r.Use(d.RateLimit.RateLimit(100, 60))
	r.Use(d.AuthMW.Authenticate)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		// Auth.
		r.Post("/login", d.Auth.Login)
		r.Post("/register", d.Auth.Register)
		r.Get("/profile", d.Auth.GetProfile)

		// Consumption records.
		r.Route("/diesel", func(r chi.Router) {
			r.With(d.AuthMW.RequirePermission("create_diesel")).Post("/", d.Diesel.Create)
			r.With(d.AuthMW.RequirePermission("view_diesel")).Get("/", d.Diesel.List)
			r.With(d.AuthMW.RequirePermission("debrief_diesel")).Get("/pending-debrief", d.Diesel.PendingDebrief)
			r.With(d.AuthMW.RequirePermission("allocate_diesel")).Post("/reconcile", d.Diesel.Reconcile)

			r.Route("/{id}", func(r chi.Router) {
				r.With(d.AuthMW.RequirePermission("view_diesel")).Get("/", d.Diesel.Get)
				r.With(d.AuthMW.RequirePermission("update_diesel")).Put("/", d.Diesel.Update)
				r.With(d.AuthMW.RequirePermission("update_diesel")).Delete("/", d.Diesel.Delete)
				r.With(d.AuthMW.RequirePermission("allocate_diesel")).Post("/allocate", d.Diesel.Allocate)
				r.With(d.AuthMW.RequirePermission("allocate_diesel")).Delete("/allocation", d.Diesel.Deallocate)
				r.With(d.AuthMW.RequirePermission("debrief_diesel")).Post("/debrief", d.Diesel.Debrief)
				r.With(d.AuthMW.RequirePermission("verify_probe")).Post("/probe", d.Diesel.VerifyProbe)
			})
		})

		// Efficiency norms.
		r.Route("/norms", func(r chi.Router) {
			r.With(d.AuthMW.RequirePermission("view_norms")).Get("/", d.Norms.List)
			r.With(d.AuthMW.RequirePermission("manage_norms")).Put("/{fleet}", d.Norms.Upsert)
			r.With(d.AuthMW.RequirePermission("manage_norms")).Delete("/{fleet}", d.Norms.Delete)
		})

		// Flags and investigations.
		r.With(d.AuthMW.RequirePermission("view_flags")).Get("/flags", d.Flags.List)
		r.Route("/costs/{id}", func(r chi.Router) {
			r.With(d.AuthMW.RequirePermission("view_flags")).Post("/flag", d.Flags.Flag)
			r.With(d.AuthMW.RequirePermission("resolve_flags")).Post("/investigate", d.Flags.Investigate)
			r.With(d.AuthMW.RequirePermission("resolve_flags")).Post("/resolve", d.Flags.Resolve)
		})

		// Trips.
		r.Route("/trips", func(r chi.Router) {
			r.With(d.AuthMW.RequirePermission("view_trips")).Get("/", d.Trips.List)
			r.With(d.AuthMW.RequirePermission("view_trips")).Get("/{id}", d.Trips.Get)
			r.With(d.AuthMW.RequirePermission("view_summary")).Get("/{id}/summary", d.Trips.Summary)
			r.With(d.AuthMW.RequirePermission("resolve_flags")).Post("/{id}/complete", d.Trips.Complete)
		})

		// Fleet asset registry.
		r.Route("/assets", func(r chi.Router) {
			r.With(d.AuthMW.RequirePermission("view_diesel")).Get("/", d.Assets.List)
			r.With(d.AuthMW.RequirePermission("view_diesel")).Get("/{fleet}", d.Assets.Get)
			r.With(d.AuthMW.RequirePermission("manage_assets")).Put("/{fleet}", d.Assets.Upsert)
		})
	})

	return r
}
