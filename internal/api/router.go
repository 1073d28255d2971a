package api

import (
	"net/http"

	"github.com/Rrens/social-content-generator/internal/api/handler"
	customMiddleware "github.com/Rrens/social-content-generator/internal/api/middleware"
	"github.com/Rrens/social-content-generator/internal/config"
	"github.com/Rrens/social-content-generator/internal/conversation"
	"github.com/Rrens/social-content-generator/internal/llm"
	"github.com/Rrens/social-content-generator/internal/security"
	"github.com/Rrens/social-content-generator/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Deps are the wired components the router serves
type Deps struct {
	Generation    *service.GenerationService
	Sessions      *service.SessionService
	Conversations *conversation.Registry
	Providers     *llm.Router
	JWT           *security.JWTManager

	// Optional
	RateLimiter customMiddleware.RateLimiter
	Cache       handler.CacheFlusher
	Readiness   map[string]handler.ReadinessCheck
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	generationHandler := handler.NewGenerationHandler(deps.Generation)
	sessionHandler := handler.NewSessionHandler(deps.Sessions)
	conversationHandler := handler.NewConversationHandler(deps.Conversations)

	authMiddleware := customMiddleware.NewAuthMiddleware(deps.JWT)
	rateLimitMiddleware := customMiddleware.NewRateLimitMiddleware(deps.RateLimiter)
	timeout := middleware.Timeout(cfg.Server.MiddlewareTimeout)

	// Generation routes (public, raw JSON)
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(timeout)
			r.Use(rateLimitMiddleware.Limit)

			r.Post("/enhance-input", generationHandler.EnhanceInput)
			r.Post("/generate-prompt", generationHandler.GeneratePrompt)
			r.Post("/generate-social", generationHandler.GenerateSocial)
			r.Post("/generate-image", generationHandler.GenerateImage)
		})

		r.Route("/v1", func(r chi.Router) {
			// Health check
			r.With(timeout).Get("/health", handler.HealthCheck)
			r.With(timeout).Get("/ready", handler.ReadyCheck(deps.Readiness))

			// Long-lived; no request timeout or rate limit
			r.With(authMiddleware.AuthenticateStream).Get("/sessions/stream", sessionHandler.Stream)

			// Protected routes
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.Authenticate)

				r.Group(func(r chi.Router) {
					r.Use(timeout)
					r.Use(rateLimitMiddleware.Limit)

					if deps.Providers != nil {
						r.Get("/providers", handler.ListProviders(deps.Providers))
					}
					if deps.Cache != nil {
						r.Post("/cache/flush", handler.FlushCache(deps.Cache))
					}

					r.Route("/sessions", func(r chi.Router) {
						r.Get("/", sessionHandler.List)
						r.Post("/", sessionHandler.Create)

						r.Route("/{sessionID}", func(r chi.Router) {
							r.Get("/", sessionHandler.Get)
							r.Patch("/", sessionHandler.Rename)
							r.Delete("/", sessionHandler.Delete)

							r.Get("/messages", sessionHandler.Messages)
							r.Post("/messages", sessionHandler.AppendMessage)
							r.Patch("/messages/{messageID}", sessionHandler.PatchMessage)
						})
					})

					r.Route("/conversations/{key}", func(r chi.Router) {
						r.Get("/", conversationHandler.Get)
						r.Patch("/", conversationHandler.Rename)
						r.Delete("/", conversationHandler.Delete)
						r.Post("/turns", conversationHandler.Submit)
					})
				})
			})
		})
	})

	return r
}
