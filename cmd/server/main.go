package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dfwgrid/parcelsearch/api/internal/auth"
	"github.com/dfwgrid/parcelsearch/api/internal/config"
	"github.com/dfwgrid/parcelsearch/api/internal/database"
	"github.com/dfwgrid/parcelsearch/api/internal/handlers"
	"github.com/dfwgrid/parcelsearch/api/internal/logger"
	"github.com/dfwgrid/parcelsearch/api/internal/middleware"
	"github.com/dfwgrid/parcelsearch/api/internal/repository"
	"github.com/dfwgrid/parcelsearch/api/internal/services"
	"github.com/dfwgrid/parcelsearch/api/internal/store"
	"github.com/gin-gonic/gin"
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
	log.Info("Starting DFW Property Search API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
	})

	// Create database connection pool
	ctx := context.Background()
	db, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", err, map[string]interface{}{
			"host": cfg.Database.Host,
			"port": cfg.Database.Port,
			"name": cfg.Database.Name,
		})
	}
	defer db.Close()

	log.Info("Database connection established", map[string]interface{}{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Name,
		"pool_min": cfg.Database.PoolMin,
		"pool_max": cfg.Database.PoolMax,
	})

	// Token verifier for Cognito-issued JWTs
	verifier := auth.NewCognitoVerifier(cfg.Auth)

	// File-backed preference store
	presetStore := store.NewFilePresetStore(cfg.Presets.FilePath, log)

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
	healthHandler := handlers.NewHealthHandler(db, cfg.Server.Env)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/api/v1/info", healthHandler.Info)

	// Initialize repository and service layers
	parcelRepo := repository.NewParcelRepository(db)
	parcelService := services.NewParcelService(parcelRepo, log, cfg.Search)
	exportService := services.NewExportService(parcelRepo, log, cfg.Export)

	// Initialize handlers
	parcelHandler := handlers.NewParcelHandler(parcelService)
	exportHandler := handlers.NewExportHandler(exportService)
	presetHandler := handlers.NewPresetHandler(presetStore)

	// Register API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Parcel search is open to guests; a valid token upgrades the tier.
		parcels := v1.Group("/parcels", middleware.OptionalAuth(verifier))
		{
			parcels.GET("", parcelHandler.List)
			parcels.POST("/search", parcelHandler.Search)
			parcels.GET("/:id", parcelHandler.Get)
		}

		export := v1.Group("/export", middleware.RequireAuth(verifier))
		{
			export.POST("/csv", exportHandler.ExportCSV)
		}

		preferences := v1.Group("/preferences", middleware.RequireAuth(verifier))
		{
			preferences.GET("", presetHandler.List)
			preferences.POST("", presetHandler.Create)
			// Register /default before /:id so it is not captured as an ID
			preferences.GET("/default", presetHandler.GetDefault)
			preferences.GET("/:id", presetHandler.Get)
			preferences.PUT("/:id", presetHandler.Update)
			preferences.DELETE("/:id", presetHandler.Delete)
		}
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
