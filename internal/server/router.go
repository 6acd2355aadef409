// Package server assembles the HTTP API.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ayush/jobbid/internal/auth"
	"github.com/ayush/jobbid/internal/bids"
	"github.com/ayush/jobbid/internal/jobs"
	"github.com/ayush/jobbid/internal/metrics"
	"github.com/ayush/jobbid/internal/middleware"
)

// Deps holds everything NewRouter wires together.
type Deps struct {
	Logger         *slog.Logger
	Issuer         *auth.Issuer
	Cookie         auth.CookieConfig
	Jobs           *jobs.Ledger
	Bids           *bids.Ledger
	Metrics        *metrics.Collector
	Gatherer       prometheus.Gatherer
	LoginLimiter   *middleware.RateLimiter
	AllowedOrigins []string
}

// NewRouter returns the full route table.
func NewRouter(d Deps) http.Handler {
	authHandler := auth.NewHandler(d.Issuer, d.Cookie, d.Logger, d.Metrics)
	jobHandler := jobs.NewHandler(d.Jobs, d.Logger, d.Metrics)
	bidHandler := bids.NewHandler(d.Bids, d.Logger, d.Metrics)
	requireAuth := middleware.RequireAuth(d.Issuer, d.Logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(d.Logger, d.Metrics))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(d.Gatherer))
	}

	// Credentials (public)
	if d.LoginLimiter != nil {
		r.With(d.LoginLimiter.Middleware).Post("/jwt", authHandler.Issue)
	} else {
		r.Post("/jwt", authHandler.Issue)
	}
	r.Post("/logout", authHandler.Revoke)

	r.Get("/allJobs", jobHandler.List)

	// Everything else requires a credential
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/job_details/{id}", jobHandler.Get)
		r.Put("/job_details/{id}/brief", jobHandler.UploadBrief)
		r.Get("/job_details/{id}/brief", jobHandler.DownloadBrief)
		r.Post("/add_job", jobHandler.Create)
		r.Get("/my_posted_jobs", jobHandler.ListMine)
		r.Put("/edit_job/{id}", jobHandler.Replace)
		r.Delete("/delete_job/{id}", jobHandler.Delete)

		r.Post("/bid_request", bidHandler.Create)
		r.Get("/my_bids", bidHandler.ListMine)
		r.Patch("/my_bids/{id}", bidHandler.UpdateAsBidder)
		r.Get("/my_bids/{id}/history", bidHandler.History)
		r.Get("/my_bid_requests", bidHandler.ListRequests)
		r.Patch("/my_bid_request/{id}", bidHandler.UpdateAsPoster)
	})

	return r
}
