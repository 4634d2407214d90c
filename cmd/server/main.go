/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the SalesSync commission engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment)
  2. Initialize SQLite store
  3. Optionally connect Redis for the leaderboard cache
  4. Wire the ledger (aggregator + selector + store)
  5. Start the sweep scheduler
  6. Start HTTP server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the sweep scheduler
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  DB_PATH=./data/salessync.db ./server

  # Run without the scheduled sweep
  SWEEP_SPEC= ./server

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Reshigan/SalesSync-sub022/api"
	"github.com/Reshigan/SalesSync-sub022/commission"
	"github.com/Reshigan/SalesSync-sub022/config"
	"github.com/Reshigan/SalesSync-sub022/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Optional Redis for leaderboard caching
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Warning: Redis unreachable, leaderboard cache disabled: %v", err)
			redisClient = nil
		}
	}

	// Wire the engine
	ledger := commission.NewLedger(
		store,
		&commission.Aggregator{Source: store, Timeout: cfg.AggregateTimeout},
		&commission.RuleSelector{Rules: store, Assignments: store},
	)
	ledger.MaxAttempts = cfg.MaxRetries

	handler := api.NewHandler(store, ledger, api.NewLeaderboardCache(redisClient))
	router := api.NewRouter(handler)

	// Scheduled recompute sweep
	sweeper := api.NewSweepScheduler(ledger, cfg.SweepSpec)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("Failed to start sweep scheduler: %v", err)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", cfg.Port)
		log.Printf("📊 API available at http://localhost:%d/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	sweeper.Stop()

	log.Println("Server stopped")
}
