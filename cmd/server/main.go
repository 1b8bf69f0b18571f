/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse flags (env vars as defaults)
  2. Build the zap logger
  3. Initialize SQLite store
  4. Create API handler with dependencies
  5. Start the accrual scheduler
  6. Start server with graceful shutdown

CONFIGURATION (flag / env var):
  -port     / PORT               HTTP server port (default: 8080)
  -db       / DATABASE_PATH      SQLite database path (default: leave.db)
                                 Use ":memory:" for an in-memory database
  -accrual  / ACCRUAL_ENABLED    Run the monthly accrual scheduler (default: true)
  -accrual-interval / ACCRUAL_CHECK_INTERVAL
                                 How often the scheduler checks for a new
                                 month (default: 1h)
  -dev      / DEV_MODE           Human-readable console logs (default: false)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the accrual scheduler
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/leave.db"

  # Run with in-memory database, scheduler off
  ./server -db=":memory:" -accrual=false

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Accrual scheduler
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/syntaxone/leave-engine/api"
	"github.com/syntaxone/leave-engine/store/sqlite"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DATABASE_PATH", "leave.db"), "SQLite database path")
	accrualEnabled := flag.Bool("accrual", envBool("ACCRUAL_ENABLED", true), "run the monthly accrual scheduler")
	accrualInterval := flag.Duration("accrual-interval", envDuration("ACCRUAL_CHECK_INTERVAL", time.Hour), "accrual scheduler check interval")
	devMode := flag.Bool("dev", envBool("DEV_MODE", false), "human-readable console logs")
	flag.Parse()

	logger, err := buildLogger(*devMode)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	handler := api.NewHandler(store, logger)
	router := api.NewRouter(handler, logger)

	scheduler := api.NewAccrualScheduler(handler.Accrual, store, logger)
	scheduler.CheckInterval = *accrualInterval
	scheduler.Enabled = *accrualEnabled
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.Int("port", *port),
			zap.String("db", *dbPath),
			zap.Bool("accrual_scheduler", *accrualEnabled))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func buildLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// =============================================================================
// ENVIRONMENT HELPERS
// =============================================================================

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
