package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/relay-gateway/internal/auth"
	"github.com/ignite/relay-gateway/internal/throttle"
)

// SetupRoutes configures all API routes. limiter may be nil when
// throttling is not configured.
func SetupRoutes(h *Handlers, keys *auth.KeyManager, limiter *throttle.Limiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))

	// Health check (no auth required)
	r.Get("/health", h.HealthCheck)

	// API routes (protected by API key, rate limited when configured)
	r.Route("/api", func(r chi.Router) {
		if keys != nil && keys.Enabled() {
			r.Use(keys.Middleware)
		}
		if limiter != nil {
			r.Use(limiter.Middleware)
		}

		r.Post("/send", h.Send)
		r.Post("/send-bulk", h.SendBulk)
		r.Post("/send-report", h.SendReport)
		r.Get("/queue/status", h.QueueStatus)

		r.Get("/deliveries/recent", h.RecentDeliveries)
		r.Get("/deliveries/stats", h.DeliveryStats)
	})

	return r
}
