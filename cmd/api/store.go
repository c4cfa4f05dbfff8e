package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/remlyo/remlyo/internal/config"
	"github.com/remlyo/remlyo/internal/domain/plan"
	"github.com/remlyo/remlyo/internal/domain/subscription"
	"github.com/remlyo/remlyo/internal/domain/user"
	"github.com/remlyo/remlyo/internal/pkg/logger"
	"github.com/remlyo/remlyo/internal/repository/mongo"
	"github.com/remlyo/remlyo/internal/repository/postgres"
	"github.com/remlyo/remlyo/migrations"
)

// store bundles the repositories of the configured backend
type store struct {
	users         user.Repository
	plans         plan.Repository
	subscriptions subscription.Repository
	access        subscription.AccessRepository

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// openStore connects to the configured database and brings its schema up to date
func openStore(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*store, error) {
	if cfg.Driver == config.DriverMongo {
		return openMongo(ctx, cfg, log)
	}
	return openSQL(ctx, cfg, log)
}

func openSQL(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*store, error) {
	db, err := postgres.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}

	files, err := migrations.GetFS(cfg.Driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	applied, err := postgres.RunMigrations(ctx, db, files)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	log.WithFields(map[string]interface{}{
		"driver":  cfg.Driver,
		"applied": applied,
	}).Info("Database ready")

	return &store{
		users:         postgres.NewUserRepository(db),
		plans:         postgres.NewPlanRepository(db),
		subscriptions: postgres.NewSubscriptionRepository(db),
		access:        postgres.NewRemedyAccessRepository(db),
		ping:          db.PingContext,
		close:         closeSQL(db),
	}, nil
}

func closeSQL(db *sql.DB) func(context.Context) error {
	return func(context.Context) error { return db.Close() }
}

func openMongo(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*store, error) {
	s, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close(ctx)
		return nil, fmt.Errorf("create indexes: %w", err)
	}
	log.WithFields(map[string]interface{}{
		"driver":   cfg.Driver,
		"database": cfg.MongoDatabase,
	}).Info("Database ready")

	db := s.DB()
	return &store{
		users:         mongo.NewUserRepository(db),
		plans:         mongo.NewPlanRepository(db),
		subscriptions: mongo.NewSubscriptionRepository(db),
		access:        mongo.NewRemedyAccessRepository(db),
		ping:          s.Ping,
		close:         s.Close,
	}, nil
}
