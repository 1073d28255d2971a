package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Rrens/social-content-generator/internal/api"
	"github.com/Rrens/social-content-generator/internal/api/handler"
	"github.com/Rrens/social-content-generator/internal/config"
	"github.com/Rrens/social-content-generator/internal/conversation"
	"github.com/Rrens/social-content-generator/internal/imagegen"
	"github.com/Rrens/social-content-generator/internal/llm"
	"github.com/Rrens/social-content-generator/internal/llm/gemini"
	"github.com/Rrens/social-content-generator/internal/llm/openai"
	"github.com/Rrens/social-content-generator/internal/llm/vertex"
	"github.com/Rrens/social-content-generator/internal/logging"
	"github.com/Rrens/social-content-generator/internal/realtime"
	"github.com/Rrens/social-content-generator/internal/repository/redis"
	"github.com/Rrens/social-content-generator/internal/retry"
	"github.com/Rrens/social-content-generator/internal/security"
	"github.com/Rrens/social-content-generator/internal/service"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file - try multiple locations
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			fmt.Printf("Loaded .env from: %s\n", p)
			break
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logCloser, err := logging.Setup(cfg.Logging, cfg.IsProduction())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("store", cfg.Store.Driver).
		Msg("Starting Social Content Generator API server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()
	hub := realtime.NewHub()
	var notifier realtime.Notifier = hub
	var cache service.TextCache
	deps := api.Deps{Readiness: map[string]handler.ReadinessCheck{}}

	// Initialize Redis
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()

		redisNotifier := redis.NewNotifier(redisClient, cfg.Redis.Channel, hub)
		go redisNotifier.Run(ctx)
		notifier = redisNotifier

		generationCache := redis.NewGenerationCache(redisClient, cfg.Redis.CacheTTL)
		cache = generationCache
		deps.Cache = generationCache
		deps.RateLimiter = redis.NewRateLimiter(redisClient, clock, cfg.Security.RateLimit.RequestsPerMinute)
		deps.Readiness["redis"] = redisClient.Ping
	}

	// Initialize persistence
	st, err := openStores(ctx, cfg, notifier)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer st.Close()
	for name, check := range st.readiness {
		deps.Readiness[name] = check
	}

	// Initialize text generation providers
	providers := llm.NewRouter(cfg.LLM.DefaultProvider)
	providers.RegisterProvider(gemini.NewProvider(cfg.LLM.Gemini))
	providers.RegisterProvider(vertex.NewProvider(cfg.LLM.Vertex))
	providers.RegisterProvider(openai.NewProvider(cfg.LLM.OpenAI))
	for _, info := range providers.GetProvidersInfo() {
		log.Info().Str("provider", info.Name).Bool("configured", info.Configured).Bool("default", info.Default).Msg("Registered generation provider")
	}

	provider, err := providers.Preferred()
	if err != nil {
		log.Warn().Err(err).Msg("Default generation provider not found, serving fallback content only")
	} else {
		log.Info().Str("provider", provider.Name()).Bool("configured", provider.IsConfigured()).Msg("Selected generation provider")
	}

	policy := retry.Policy{MaxAttempts: cfg.LLM.Retry.MaxAttempts, BaseDelay: cfg.LLM.Retry.BaseDelay}
	quota := cfg.LLM.Quota

	textClient := llm.NewClient(provider,
		llm.WithClock(clock),
		llm.WithPolicy(policy),
		llm.WithLimiter(llm.NewLimiter(clock, quota.RequestsPerMinute, quota.RequestsPerDay)),
	)
	imageClient := imagegen.NewClient(cfg.Bria,
		imagegen.WithClock(clock),
		imagegen.WithPolicy(policy),
		imagegen.WithLimiter(llm.NewLimiter(clock, quota.RequestsPerMinute, quota.RequestsPerDay)),
	)

	// Initialize services
	generation := service.NewGenerationService(textClient, imageClient, cache)
	sessions := service.NewSessionService(st.sessions, st.messages, st.watcher, clock)

	registry := conversation.NewRegistry(sessions, generation, clock, cfg.Conversation.IdleTTL)
	go registry.Run(ctx)

	deps.Generation = generation
	deps.Sessions = sessions
	deps.Conversations = registry
	deps.Providers = providers
	deps.JWT = security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, clock)

	router := api.NewRouter(cfg, deps)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
