/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the fee engine server.
  Handles configuration, dependency injection, and graceful shutdown.

COMMANDS:
  serve    Migrate the database and start the HTTP API (default)
  migrate  Apply schema migrations and report the version

STARTUP SEQUENCE (serve):
  1. Load configuration (file, then FEE_ENGINE_* environment)
  2. Build the zap logger
  3. Open and migrate the SQLite store
  4. Select the active-contract cache (memory, redis or none)
  5. Register Prometheus metrics and build the engine
  6. Configure the HTTP router and start the server

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the Redis client and database connection
  4. Exit

EXAMPLES:
  # Run with defaults
  ./server serve

  # Run with a config file and an in-memory database
  FEE_ENGINE_DB_PATH=":memory:" ./server serve --config=./fee-engine.yaml

  # Use Redis for the contract cache
  FEE_ENGINE_CACHE_BACKEND=redis FEE_ENGINE_REDIS_ADDR=localhost:6379 ./server serve

SEE ALSO:
  - config/config.go: Configuration keys and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/warp/fee-engine/api"
	"github.com/warp/fee-engine/config"
	"github.com/warp/fee-engine/payment"
	"github.com/warp/fee-engine/period"
	"github.com/warp/fee-engine/store/redis"
	"github.com/warp/fee-engine/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "fee-engine",
		Short:         "Advisory fee payment engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (yaml, json or toml)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, configPath)
		},
	}

	root.AddCommand(serve, migrate)
	root.RunE = serve.RunE
	return root
}

func runMigrate(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	db, err := sqlite.Open(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := sqlite.Migrate(db); err != nil {
		return err
	}
	version, dirty, err := sqlite.SchemaVersion(db)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
	return nil
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := cfg.Log.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	// Initialize store
	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	clock := period.SystemClock{}

	cache, closeCache, err := newCache(ctx, cfg, clock, log)
	if err != nil {
		return err
	}
	defer closeCache()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	engine := payment.NewEngine(store,
		payment.WithClock(clock),
		payment.WithCache(cache),
		payment.WithLogger(log),
		payment.WithMetrics(payment.NewMetrics(reg)),
	)
	handler := api.NewHandler(engine, payment.NewDrafts(clock, 0), log)
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Gatherer:       reg,
		Logger:         log,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("db", cfg.DB.Path),
			zap.String("cache", cfg.Cache.Backend),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

// newCache builds the configured active-contract cache and its cleanup.
func newCache(ctx context.Context, cfg *config.Config, clock period.Clock, log *zap.Logger) (payment.ContractCache, func(), error) {
	switch cfg.Cache.Backend {
	case "redis":
		client, err := redis.NewClient(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		return redis.NewContractCache(client, cfg.Cache.TTL, log), func() { client.Close() }, nil
	case "none":
		return payment.NoCache{}, func() {}, nil
	default:
		return payment.NewMemoryCache(cfg.Cache.TTL, clock), func() {}, nil
	}
}
