package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/config"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/database"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/handlers"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/logger"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/middleware"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/services"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/state"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/store"
)

const (
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.Server.Env)
	log.Info("Starting PPR status API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
		"storage":     cfg.Storage.Backend,
	})

	ctx := context.Background()

	// Connect the configured dataset store
	var datasets store.DatasetStore
	if cfg.Storage.Backend == config.BackendPostgres {
		db, err := database.NewPostgresPool(ctx, cfg.Database)
		if err != nil {
			log.Fatal("Failed to connect to database", err, map[string]interface{}{
				"host": cfg.Database.Host,
				"port": cfg.Database.Port,
				"name": cfg.Database.Name,
			})
		}
		defer db.Close()

		datasets, err = store.NewPostgresStore(ctx, db, log)
		if err != nil {
			log.Fatal("Failed to initialize dataset store", err, nil)
		}
	} else {
		datasets = store.NewCSVStore(cfg.ConsolidatedFile(), log)
	}

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	// Register health check routes
	healthHandler := handlers.NewHealthHandler(datasets, cfg.Server.Env)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/api/v1/info", healthHandler.Info)

	// Initialize service and query handlers
	salesService := services.NewSalesService(datasets, log)
	states := state.NewStore(cfg.Storage.StateFile, log)
	salesHandler := handlers.NewSalesHandler(salesService, states)

	// Register API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/summary", salesHandler.Summary)
		v1.GET("/status", salesHandler.Status)
		v1.GET("/sales", salesHandler.List)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}
