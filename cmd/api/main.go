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

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kurihiro0119/business-reports/internal/api"
	"github.com/kurihiro0119/business-reports/internal/catalog"
	"github.com/kurihiro0119/business-reports/internal/config"
	"github.com/kurihiro0119/business-reports/internal/logger"
	"github.com/kurihiro0119/business-reports/internal/report"
	"github.com/kurihiro0119/business-reports/internal/storage"
	"github.com/kurihiro0119/business-reports/internal/storage/postgres"
	"github.com/kurihiro0119/business-reports/internal/storage/sqlite"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if log.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Load catalog
	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		cat, err = catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			log.WithError(err).Fatal("Failed to load catalog")
		}
	}

	// Initialize storage
	var store storage.Store
	switch cfg.StorageType {
	case "postgres":
		store, err = postgres.NewPostgresStorage(cfg.PostgresURL)
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize PostgreSQL storage")
		}
	default:
		store, err = sqlite.NewSQLiteStorage(cfg.SQLitePath)
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize SQLite storage")
		}
	}
	defer store.Close()

	// Initialize service and handler
	svc := report.NewService(cat, store, log)
	handler := api.NewHandler(svc, cfg.DefaultRole)

	// Setup routes
	router := api.SetupRoutes(handler, log)

	// Start server
	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.WithFields(logrus.Fields{
		"addr":    addr,
		"storage": cfg.StorageType,
		"metrics": len(cat.ListMetrics()),
	}).Info("Starting API server")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down API server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
}
