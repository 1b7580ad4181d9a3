package router

import (
	"context"
	"fmt"
	"net/http"

	"marketplace/internal/api/v1/handler"
	"marketplace/internal/catalog"
	"marketplace/internal/config"
	"marketplace/internal/identity"
	"marketplace/internal/metrics"
	"marketplace/internal/middleware"
	"marketplace/internal/pubsub"
	"marketplace/internal/repository"
	"marketplace/internal/routing"
	"marketplace/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Dependencies are the collaborators the HTTP layer needs.
type Dependencies struct {
	Entitlements service.EntitlementService
	Routes       *routing.PlanRoutes
	Verifier     identity.Verifier
	JWTSecret    string
}

// BuildDependencies opens the configured store and event publisher and
// assembles the entitlement service. The returned func releases them.
func BuildDependencies(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Dependencies, func(), error) {
	plans := catalog.Default()

	routes, err := routing.NewPlanRoutes(cfg.PlanRoutes, plans)
	if err != nil {
		return nil, nil, fmt.Errorf("PLAN_ROUTES: %w", err)
	}

	secret, err := service.ResolveJWTSecret(ctx, cfg.JWTSecret, cfg.JWTSecretResource, func(ctx context.Context) (service.SecretManagerService, error) {
		return service.NewSecretManagerService(ctx)
	})
	if err != nil {
		return nil, nil, err
	}
	verifier, err := identity.NewJWTVerifier(secret)
	if err != nil {
		return nil, nil, fmt.Errorf("JWT verification key: %w", err)
	}

	repo, closeStore, err := repository.NewSubscriptionStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	var publisher pubsub.Publisher = pubsub.NoopPublisher{}
	closePublisher := func() {}
	if cfg.GCPProjectID != "" {
		p, err := pubsub.NewPublisher(ctx, cfg.GCPProjectID)
		if err != nil {
			closeStore()
			return nil, nil, err
		}
		publisher = p
		closePublisher = func() {
			if err := p.Close(); err != nil {
				logger.Error().Err(err).Msg("Failed to close Pub/Sub client")
			}
		}
		logger.Info().Str("topic", cfg.PubSubSubscriptionTopic).Msg("Publishing subscription events")
	} else {
		logger.Warn().Msg("GCP_PROJECT_ID not set; subscription events are dropped")
	}

	deps := &Dependencies{
		Entitlements: service.NewEntitlementService(repo, plans, logger, service.WithPublisher(publisher, cfg.PubSubSubscriptionTopic)),
		Routes:       routes,
		Verifier:     verifier,
		JWTSecret:    secret,
	}
	return deps, func() {
		closePublisher()
		closeStore()
	}, nil
}

// New builds every dependency from cfg and returns the HTTP handler.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (http.Handler, func(), error) {
	deps, cleanup, err := BuildDependencies(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Str("environment", cfg.Environment).Str("store", cfg.StoreBackend).Msg("Router initialized")
	return NewHandler(cfg, deps, logger), cleanup, nil
}

// NewHandler wires handlers, the plan gate and CORS around deps.
func NewHandler(cfg *config.Config, deps *Dependencies, logger zerolog.Logger) http.Handler {
	validate := validator.New(validator.WithRequiredStructEnabled())

	planHandler := handler.NewPlanHandler(deps.Entitlements, logger)
	subscriptionHandler := handler.NewSubscriptionHandler(deps.Entitlements, validate, logger)
	userHandler := handler.NewUserHandler(deps.Entitlements, validate, logger)
	pageHandler := handler.NewPageHandler(deps.Entitlements, cfg.PlanSelectionPath, logger)

	authMiddleware := middleware.AuthMiddleware(deps.Verifier, cfg.SessionCookieName, logger)
	gate := middleware.NewPlanGate(deps.Verifier, deps.Entitlements, deps.Routes, cfg.PlanSelectionPath, cfg.SessionCookieName, logger)

	r := chi.NewRouter()
	r.Use(middleware.LoggerMiddleware(logger))
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler)
	r.Use(gate.Middleware)

	r.Get("/healthz", handler.HealthCheck(logger))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		planHandler.RegisterRoutes(r)
		subscriptionHandler.RegisterRoutes(r, authMiddleware)
		userHandler.RegisterRoutes(r, authMiddleware)
	})
	pageHandler.RegisterRoutes(r, authMiddleware)

	return r
}
