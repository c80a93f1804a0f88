package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/moviezhub/moviezhub/internal/api"
	"github.com/moviezhub/moviezhub/internal/config"
	"github.com/moviezhub/moviezhub/internal/controllers"
	"github.com/moviezhub/moviezhub/internal/models"
	"github.com/moviezhub/moviezhub/internal/scheduler"
	"github.com/moviezhub/moviezhub/internal/services/telegram"
	"github.com/moviezhub/moviezhub/internal/services/tmdb"
	"github.com/moviezhub/moviezhub/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel)
	logger.Info("Starting MoviezHub")
	logger.WithField("config_dir", filepath.Dir(cfg.DatabaseFile)).Info("Configuration loaded")

	// 3. Initialize database
	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	logger.Info("Database initialized")

	// 4. Initialize services
	telegramClient, err := telegram.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Telegram client: %w", err)
	}
	logger.Info("Telegram client initialized")

	tmdbClient, err := tmdb.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize TMDB client: %w", err)
	}
	logger.Info("TMDB client initialized")

	// 5. Initialize expiry scheduler
	expirySched := scheduler.NewExpiryScheduler(db, telegramClient, logger)
	if err := expirySched.Start(); err != nil {
		return fmt.Errorf("failed to start expiry scheduler: %w", err)
	}
	defer expirySched.Stop()

	// 6. Initialize controllers
	deleteDelay := time.Duration(cfg.DeleteDelayMinutes) * time.Minute
	ingestCtrl := controllers.NewIngestController(db, tmdbClient, cfg.AdminChannelID, logger)
	deliveryCtrl := controllers.NewDeliveryController(db, telegramClient, expirySched, cfg.AdminChannelID, deleteDelay, logger)
	logger.Info("Controllers initialized")

	// 7. Initialize HTTP server
	server := api.NewServer(cfg, db, ingestCtrl, deliveryCtrl, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// 8. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("MoviezHub is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("MoviezHub stopped")
	return nil
}
