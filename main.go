package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/slatehub-api/internal/api"
	"github.com/isdelr/slatehub-api/internal/auth"
	"github.com/isdelr/slatehub-api/internal/config"
	"github.com/isdelr/slatehub-api/internal/database"
	"github.com/isdelr/slatehub-api/internal/logger"
	"github.com/isdelr/slatehub-api/internal/monitoring"
	"github.com/isdelr/slatehub-api/internal/services"
	"github.com/isdelr/slatehub-api/internal/storage"
	"github.com/rs/zerolog/log"
)

// A mock version of the SlateHub API. Authentication and profiles are
// synthesized so frontend work can proceed; only images are really stored.
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, cfg.LogPretty)

	// Set up image storage
	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.StoragePath).Msg("Failed to initialize storage")
	}

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up services
	eventService := services.NewEventService(db)
	imageService := services.NewImageService(db, store, eventService)
	personService := services.NewMockPersonService()
	issuer := auth.NewIssuer(cfg.JWTSecret)
	if !issuer.Signed() {
		log.Warn().Msg("JWT_SECRET not set, issuing mock tokens")
	}

	// Set up and run the background storage monitor
	monitor, err := monitoring.NewStorageMonitor(cfg.StorageCheckCron, store, eventService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure storage monitor")
	}
	monitor.Start()

	// Set up router
	router := api.NewRouter(api.RouterConfig{
		CORSOrigin:    cfg.CORSOrigin,
		SecureCookies: cfg.IsProduction(),
		AuthRateLimit: cfg.AuthRateLimit,
	}, api.Dependencies{
		Store:   store,
		Monitor: monitor,
		People:  personService,
		Images:  imageService,
		Events:  eventService,
		Issuer:  issuer,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Starting mock API server")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	monitor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
