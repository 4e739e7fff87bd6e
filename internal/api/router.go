package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bmore/mtgateway/internal/api/handlers"
	"github.com/bmore/mtgateway/internal/api/middleware"
	"github.com/bmore/mtgateway/internal/auth"
	"github.com/bmore/mtgateway/internal/gateway"
)

func NewRouter(gc *gateway.Context) *chi.Mux {
	r := chi.NewRouter()
	cfg := gc.Config
	log := gc.Log.Named("http")

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(cors.Handler(middleware.CORSHandler(cfg.CORSOrigins)))
	r.Use(middleware.MaxBodySize(cfg.MaxBodyBytes))

	// Handlers
	translateHandler := handlers.NewTranslateHandler(gc)
	healthHandler := handlers.NewHealthHandler(gc)
	documentHandler := handlers.NewDocumentHandler(gc)
	jobHandler := handlers.NewJobHandler(gc)

	// Health and metrics stay public
	r.Get("/health", healthHandler.Health)
	r.Handle("/metrics", gc.Metrics.Handler())

	r.Group(func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(middleware.NewRateLimiter(cfg.RateLimit, time.Minute).Handler)
		}
		if gc.Auth != nil {
			r.Use(middleware.AuthMiddleware(gc.Auth))
			r.Use(middleware.RequireScope(auth.ScopeTranslate))
		}

		// Translation
		r.Post("/translate", translateHandler.Translate)
		r.Post("/translate/batch", translateHandler.TranslateBatch)
		r.Get("/languages", translateHandler.Languages)
		r.Get("/detect", translateHandler.Detect)

		// Documents
		r.Post("/segment", documentHandler.Segment)
		r.Post("/quality", documentHandler.Quality)
		r.Post("/xliff", documentHandler.CreateXLIFF)
		r.Post("/xliff/merge", documentHandler.MergeXLIFF)

		// Jobs
		r.Post("/jobs", jobHandler.CreateJob)
		r.Get("/jobs", jobHandler.ListJobs)
		r.Get("/jobs/{id}", jobHandler.GetJob)
		r.Delete("/jobs/{id}", jobHandler.CancelJob)

		// Service stats
		r.Get("/stats", healthHandler.Stats)
	})

	return r
}
