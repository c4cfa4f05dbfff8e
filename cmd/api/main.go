// @title Remlyo API
// @version 1.0
// @description Subscription plans and remedy entitlements.
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/remlyo/remlyo/internal/api/handlers"
	"github.com/remlyo/remlyo/internal/api/router"
	"github.com/remlyo/remlyo/internal/config"
	"github.com/remlyo/remlyo/internal/domain/payment"
	"github.com/remlyo/remlyo/internal/pkg/lock"
	"github.com/remlyo/remlyo/internal/pkg/logger"
	"github.com/remlyo/remlyo/internal/pkg/validator"
	"github.com/remlyo/remlyo/internal/providers"
	"github.com/remlyo/remlyo/internal/services"
	"github.com/remlyo/remlyo/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "remlyo: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(context.Background()); err != nil {
			log.ErrorWithErr(err, "Failed to close database")
		}
	}()

	locker, err := newLocker(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}

	// Services
	userService := services.NewUserService(st.users, log, cfg.Auth)
	planService := services.NewPlanService(st.plans, log)
	subService := services.NewSubscriptionService(st.subscriptions, st.access, st.plans, st.users, locker, cfg.Redis.LockTTL, log)
	entitlements := services.NewAccessService(subService, st.access, log)

	var provider payment.Provider
	if cfg.Stripe.SecretKey != "" {
		provider = providers.NewStripeProvider(cfg.Stripe)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, remedy purchases complete without payment")
	}
	paymentService := services.NewPaymentService(provider, subService, entitlements, st.access, cfg.Stripe.Currency, log)

	planService.EnsureDefaults(ctx)

	sweeper := worker.NewExpirySweeper(subService, cfg.Jobs.ExpirySweepSchedule, log)
	if err := sweeper.Start(ctx); err != nil {
		return fmt.Errorf("start expiry sweeper: %w", err)
	}
	defer sweeper.Stop()

	val := validator.New()
	h := &router.Handlers{
		Health:       handlers.NewHealthHandler(st.ping, cfg.Database.Driver, log),
		Auth:         handlers.NewAuthHandler(userService, planService, subService, cfg, log, val),
		Subscription: handlers.NewSubscriptionHandler(planService, subService, entitlements, log, val),
		Remedy:       handlers.NewRemedyHandler(entitlements, paymentService, log, val),
		Payment:      handlers.NewPaymentHandler(paymentService, log),
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.New(cfg, log, h, entitlements),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(map[string]interface{}{
			"addr":        srv.Addr,
			"environment": cfg.Server.Environment,
			"driver":      cfg.Database.Driver,
		}).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("Server stopped")
	return nil
}

// newLocker returns a Redis-backed locker when Redis is enabled, otherwise an in-process one
func newLocker(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (lock.Locker, error) {
	if !cfg.Enabled {
		log.Info("Redis disabled, using in-process subscription locks")
		return lock.NewMemoryLocker(cfg.LockWait), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	client, err := lock.Connect(connectCtx, cfg.Addr(), cfg.Password, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	log.WithFields(map[string]interface{}{"addr": cfg.Addr()}).Info("Using Redis subscription locks")
	return lock.NewRedisLocker(client, cfg.LockWait), nil
}
