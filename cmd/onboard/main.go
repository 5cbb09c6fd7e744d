package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/perceptionx/collector/internal/app"
	"github.com/perceptionx/collector/internal/config"
	"github.com/perceptionx/collector/internal/logger"
	"github.com/perceptionx/collector/internal/service"
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		Output:      os.Stderr,
		ServiceName: "perceptionx-onboard",
	})
	logger.SetDefaultLogger(appLogger)

	companyName := flag.String("company", "", "Company name")
	industry := flag.String("industry", "", "Company industry")
	country := flag.String("country", "GLOBAL", "ISO country code, GLOBAL for no market")
	jobFunction := flag.String("job-function", "", "Optional job function context")
	userID := flag.String("user", "cli", "User ID recorded on the onboarding")
	proTier := flag.Bool("pro", false, "Generate the full TalentX prompt set")
	resume := flag.String("resume", "", "Resume collection for an existing company ID instead of onboarding")
	export := flag.Bool("export", false, "Export the report to object storage when done")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		appLogger.WithError(err).Fatal("Invalid config")
	}

	ctx, cancel := context.WithCancel(appLogger.WithContext(context.Background()))
	defer cancel()

	pipeline, err := app.New(ctx, cfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize pipeline")
	}
	defer pipeline.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	var result *service.CollectResult
	if *resume != "" {
		appLogger.WithField(logger.FieldCompanyID, *resume).Info("Resuming collection")
		result, err = pipeline.Onboarding.Resume(ctx, *resume)
	} else {
		appLogger.WithFields(logger.Fields{
			"company":  *companyName,
			"industry": *industry,
			"country":  *country,
			"pro_tier": *proTier,
		}).Info("Starting onboarding")
		result, err = pipeline.Onboarding.Run(ctx, service.OnboardingRequest{
			UserID:      *userID,
			CompanyName: *companyName,
			Industry:    *industry,
			Country:     *country,
			JobFunction: *jobFunction,
			ProTier:     *proTier,
		})
	}
	if err != nil {
		appLogger.WithError(err).Error("Data collection failed")
		pipeline.Close()
		os.Exit(1)
	}

	// recency runs detached; let it finish before reporting
	pipeline.Onboarding.Wait()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(result)

	if *export {
		out, err := pipeline.Reports.Export(ctx, result.CompanyID)
		if err != nil {
			appLogger.WithError(err).Error("Failed to export report")
			return
		}
		appLogger.WithFields(logger.Fields{"key": out.Key, "url": out.URL}).Info("Report exported")
	}
}
