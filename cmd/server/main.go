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

	"github.com/codehub-io/codehub-server/internal/api"
	"github.com/codehub-io/codehub-server/internal/config"
	"github.com/codehub-io/codehub-server/internal/db"
	"github.com/codehub-io/codehub-server/internal/refstore"
)

func main() {
	// Initialize logger with prefix and timestamps
	logger := log.New(os.Stdout, "codehub-server: ", log.LstdFlags)
	logger.Println("Starting CodeHub Server...")

	// Load configuration
	cfg := config.LoadConfig()

	// Ensure repository storage exists
	if err := os.MkdirAll(cfg.StoreBasePath, cfg.StoreDirPerms); err != nil {
		logger.Fatalf("Failed to create repository base path %s: %v", cfg.StoreBasePath, err)
	}
	logger.Printf("Repository storage location: %s", cfg.StoreBasePath)

	// Connect to database
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if sqlDB, err := database.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.Printf("Failed to close database connection: %v", err)
			}
		}
	}()

	// Verify database connection
	sqlDB, err := database.DB()
	if err != nil {
		logger.Fatalf("Failed to get database connection: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		logger.Fatalf("Database ping failed: %v", err)
	}
	logger.Println("Connected to database")

	// Run database migrations
	if err := db.RunMigrations(database); err != nil {
		logger.Fatalf("Failed to run database migrations: %v", err)
	}
	logger.Println("Database migrations completed successfully")

	// Content-addressed repository store
	store := refstore.NewStore(cfg.StoreBasePath, cfg.StoreDirPerms)

	// Create router
	router := api.SetupRouter(cfg, store, database, logger)
	logger.Println("Router configured")

	// Configure HTTP server with timeouts
	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:        router,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	// Channel to capture server errors
	serverErr := make(chan error, 1)

	// Start server in a goroutine
	go func() {
		logger.Printf("CodeHub Server listening on port %d", cfg.ServerPort)
		if cfg.IsTLSEnabled() {
			logger.Println("TLS enabled, starting HTTPS server")
			serverErr <- server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			serverErr <- server.ListenAndServe()
		}
	}()

	// Wait for interrupt signal or server error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	case sig := <-quit:
		logger.Printf("Received signal: %v, shutting down", sig)
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatalf("Server shutdown failed: %v", err)
	}
	logger.Println("Server stopped")
}
