package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kwekker/kwekker-be/internal/api"
	"github.com/kwekker/kwekker-be/internal/auth"
	"github.com/kwekker/kwekker-be/internal/config"
	"github.com/kwekker/kwekker-be/internal/database"
	"github.com/kwekker/kwekker-be/internal/logger"
	"github.com/kwekker/kwekker-be/internal/monitoring"
	"github.com/kwekker/kwekker-be/internal/services"
	"github.com/kwekker/kwekker-be/internal/ws"
)

func main() {
	logger.Init("posts-api")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up the bearer-token verifier against the identity provider's JWKS
	verifier, err := auth.NewVerifier(cfg.Auth0Domain, cfg.Auth0Audience)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token verifier")
	}
	defer verifier.Close()

	// Set up the live feed hub
	hub := ws.NewHub()
	go hub.Run()

	// Set up services
	kwekService := services.NewKwekService(db)

	// Set up and run the background usage reporter
	reporter, err := monitoring.NewUsageReporter(db, cfg.UsageReportSchedule)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid usage report schedule")
	}
	go reporter.Run()

	// Set up router
	router := api.NewPostsRouter(kwekService, verifier, hub, cfg.AllowedOrigins)

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Posts service starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	reporter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
