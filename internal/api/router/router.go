package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/remlyo/remlyo/internal/api/handlers"
	"github.com/remlyo/remlyo/internal/api/middleware"
	"github.com/remlyo/remlyo/internal/config"
	"github.com/remlyo/remlyo/internal/domain/entitlement"
	"github.com/remlyo/remlyo/internal/domain/user"
	"github.com/remlyo/remlyo/internal/pkg/logger"
	"github.com/remlyo/remlyo/internal/pkg/metrics"
)

type Handlers struct {
	Health       *handlers.HealthHandler
	Auth         *handlers.AuthHandler
	Subscription *handlers.SubscriptionHandler
	Remedy       *handlers.RemedyHandler
	Payment      *handlers.PaymentHandler
}

func New(cfg *config.Config, log *logger.Logger, h *Handlers, entitlements entitlement.Service) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID())
	r.Use(metrics.Middleware)
	// Logger wraps the writer handlers see, so it stays innermost of the wrappers
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.DefaultCORS(cfg.Server.FrontendURL))
	perUser := func(next http.Handler) http.Handler { return next }
	if cfg.RateLimit.Enabled {
		r.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
		perUser = middleware.UserRateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	// Public routes
	r.Group(func(r chi.Router) {
		// Swagger documentation
		r.Get("/swagger/*", httpSwagger.WrapHandler)

		// Health checks
		r.Get("/health", h.Health.Healthz)
		r.Get("/healthz", h.Health.Healthz)
		r.Get("/readyz", h.Health.Readyz)
		r.Handle("/metrics", metrics.Handler())
	})

	// Every API route is served under /api and /api/v1
	for _, prefix := range []string{"/api", "/api/v1"} {
		r.Route(prefix, func(r chi.Router) {
			mountAPI(r, cfg, log, h, entitlements, perUser)
		})
	}

	return r
}

func mountAPI(r chi.Router, cfg *config.Config, log *logger.Logger, h *Handlers, entitlements entitlement.Service, perUser func(http.Handler) http.Handler) {
	authenticated := middleware.AuthMiddleware(cfg.Auth.JWTSecret)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
		r.Post("/refresh", h.Auth.RefreshToken)
		r.Post("/logout", h.Auth.Logout)
		r.With(authenticated).Get("/me", h.Auth.Me)
	})

	r.Route("/subscriptions", func(r chi.Router) {
		r.Get("/plans", h.Subscription.ListPlans)

		r.Group(func(r chi.Router) {
			r.Use(authenticated, perUser)

			r.With(middleware.RequireRole(user.RoleAdmin)).Post("/initialize", h.Subscription.Initialize)
			r.Post("/subscribe", h.Subscription.Subscribe)
			r.Get("/current", h.Subscription.Current)
			r.Post("/cancel", h.Subscription.Cancel)
			r.Get("/history", h.Subscription.History)
			r.Get("/check-access/{ailmentId}/{remedyId}", h.Subscription.CheckAccess)
		})
	})

	r.Route("/remedies/{ailmentId}/{remedyId}", func(r chi.Router) {
		r.Use(authenticated, perUser)

		r.With(middleware.CheckSubscription(entitlements, log)).Get("/access", h.Remedy.View)
		r.Post("/purchase", h.Remedy.Purchase)
	})

	r.Route("/payments", func(r chi.Router) {
		// Authenticated by the provider signature
		r.Post("/webhook", h.Payment.Webhook)
		r.With(authenticated, perUser).Post("/setup-intent", h.Payment.SetupIntent)
	})
}
