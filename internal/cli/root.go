package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/stagegate/stagegate/internal/config"
	"github.com/stagegate/stagegate/internal/registry"
)

var (
	cfg     *config.Config
	rootCmd = &cobra.Command{
		Use:   "stagegate",
		Short: "stagegate: evaluate elements against multi-stage workflow processes",
		Long: `stagegate evaluates structured data records against declarative workflow
definitions: stages guarded by gates, gates built from locks, with schema
validation, consistency checking, and regression detection.

Register a process:
  stagegate process add <definition.yaml>

Evaluate an element:
  stagegate evaluate <process> <element.json>`,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(diagramCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(watchCmd)
}

func initConfig() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
}

func connectDB(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w\nSet STAGEGATE_DATABASE_URL environment variable", err)
	}
	return pool, nil
}

func connectRedis() (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w\nSet STAGEGATE_REDIS_URL environment variable", err)
	}
	return redis.NewClient(opts), nil
}

func projectRoot() string {
	return cfg.ProjectRoot
}

func migrationsDir() string {
	return filepath.Join(projectRoot(), "migrations")
}

func openRegistry() *registry.Registry {
	return registry.New(projectRoot())
}
