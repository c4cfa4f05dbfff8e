package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/remlyo/remlyo/internal/config"
	"github.com/remlyo/remlyo/internal/repository/mongo"
	"github.com/remlyo/remlyo/internal/repository/postgres"
	"github.com/remlyo/remlyo/migrations"
)

// usage: migrate [up|status]
func main() {
	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	if cmd != "up" && cmd != "status" {
		fmt.Fprintf(os.Stderr, "Unknown command %q, expected up or status\n", cmd)
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if cfg.Database.Driver == config.DriverMongo {
		err = migrateMongo(ctx, cfg.Database, cmd)
	} else {
		err = migrateSQL(ctx, cfg.Database, cmd)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}
}

func migrateSQL(ctx context.Context, cfg config.DatabaseConfig, cmd string) error {
	db, err := postgres.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	fmt.Printf("Connected to %s database successfully\n", cfg.Driver)

	files, err := migrations.GetFS(cfg.Driver)
	if err != nil {
		return err
	}

	pending, err := postgres.PendingMigrations(ctx, db, files)
	if err != nil {
		return err
	}

	if cmd == "status" {
		if len(pending) == 0 {
			fmt.Println("Schema is up to date")
			return nil
		}
		for _, name := range pending {
			fmt.Printf("Pending: %s\n", name)
		}
		return nil
	}

	if len(pending) == 0 {
		fmt.Println("No pending migrations")
		return nil
	}
	for _, name := range pending {
		fmt.Printf("Running migration: %s\n", name)
	}

	applied, err := postgres.RunMigrations(ctx, db, files)
	if err != nil {
		return err
	}

	fmt.Printf("\n%d migrations completed successfully\n", applied)
	return nil
}

func migrateMongo(ctx context.Context, cfg config.DatabaseConfig, cmd string) error {
	store, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	fmt.Printf("Connected to MongoDB database %s successfully\n", cfg.MongoDatabase)

	if cmd == "status" {
		fmt.Println("MongoDB indexes are created on every run of up")
		return nil
	}

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	fmt.Println("Indexes created successfully")
	return nil
}
