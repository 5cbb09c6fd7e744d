package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/perceptionx/collector/internal/api"
	"github.com/perceptionx/collector/internal/app"
	"github.com/perceptionx/collector/internal/config"
	"github.com/perceptionx/collector/internal/logger"
)

func main() {
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// CONFIG_PATH selects the config file in deployed environments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		appLogger.WithError(err).Fatal("Invalid config")
	}

	ctx := appLogger.WithContext(context.Background())
	pipeline, err := app.New(ctx, cfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize pipeline")
	}

	router := api.SetupRouter(api.Deps{
		DB:          pipeline.DB,
		Onboardings: pipeline.Onboardings,
		Companies:   pipeline.Companies,
		Prompts:     pipeline.Prompts,
		Responses:   pipeline.Responses,
		Recency:     pipeline.Recency,
		Onboarding:  pipeline.Onboarding,
		Dashboard:   pipeline.Dashboard,
		Reports:     pipeline.Reports,
		Live:        pipeline.Live,
		Logger:      appLogger,
	}, &cfg.Server)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	// background collections finish before the database closes
	if err := pipeline.Close(); err != nil {
		appLogger.WithError(err).Error("Failed to close pipeline")
	}
	appLogger.Info("Server exited")
}
