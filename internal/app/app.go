// Package app wires configuration into the repositories and services shared
// by the API server and the onboarding CLI.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/perceptionx/collector/internal/config"
	"github.com/perceptionx/collector/internal/logger"
	"github.com/perceptionx/collector/internal/repository"
	"github.com/perceptionx/collector/internal/service"
	"github.com/perceptionx/collector/internal/storage"
)

// App holds the wired pipeline.
type App struct {
	DB          *gorm.DB
	Onboardings *repository.OnboardingRepository
	Companies   *repository.CompanyRepository
	Prompts     *repository.PromptRepository
	Responses   *repository.ResponseRepository
	Recency     *repository.RecencyRepository
	Insights    *repository.SearchInsightRepository

	Onboarding *service.OnboardingService
	Dashboard  *service.DashboardService
	Reports    *service.ReportService
	Live       *service.RedisProgressSink

	redis *redis.Client
}

// New builds the pipeline described by cfg.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	a := &App{
		DB:          db,
		Onboardings: repository.NewOnboardingRepository(db),
		Companies:   repository.NewCompanyRepository(db),
		Prompts:     repository.NewPromptRepository(db),
		Responses:   repository.NewResponseRepository(db),
		Recency:     repository.NewRecencyRepository(db),
		Insights:    repository.NewSearchInsightRepository(db),
	}

	callers, err := service.NewModelCallers(cfg)
	if err != nil {
		return nil, err
	}
	if len(callers) == 0 {
		return nil, fmt.Errorf("no AI models configured")
	}

	var analysisChat *service.ChatClient
	if cfg.Analysis.UseLLM && cfg.OpenAIKey() != "" {
		analysisChat = service.NewChatClient(&service.ChatConfig{
			Service: "analysis",
			Model:   cfg.Analysis.Model,
			APIKey:  cfg.OpenAIKey(),
			BaseURL: cfg.OpenAIBaseURL(),
		})
	}
	analyzer := service.NewAnalysisService(analysisChat, a.Responses)

	var translator service.Translator
	if cfg.Translation.Enabled && cfg.OpenAIKey() != "" {
		translator = service.NewChatTranslator(service.NewChatClient(&service.ChatConfig{
			Service: "translation",
			Model:   cfg.Translation.Model,
			APIKey:  cfg.OpenAIKey(),
			BaseURL: cfg.OpenAIBaseURL(),
			Timeout: cfg.Translation.Timeout,
		}))
	}
	translation := service.NewTranslationStep(translator, service.ParseTranslationPolicy(cfg.Translation.Policy), cfg.Translation.RetryDelay)

	var insights service.SearchInsightsCollector
	if cfg.SearchInsights.Enabled && cfg.SearchInsights.SerpAPIKey != "" {
		insights = service.NewSearchInsightsService(service.SearchInsightsConfig{
			SerpAPIKey:               cfg.SearchInsights.SerpAPIKey,
			KeywordsEverywhereAPIKey: cfg.SearchInsights.KeywordsEverywhereAPIKey,
			Country:                  cfg.SearchInsights.Country,
			ResultsPerTerm:           cfg.SearchInsights.ResultsPerTerm,
			Terms:                    cfg.SearchInsights.Terms,
		}, a.Insights)
	} else if cfg.SearchInsights.Enabled {
		logger.CtxWarn(ctx, "Search insights enabled but SERPAPI_API_KEY is not set, skipping")
	}

	var recency service.RecencyExtractor
	if cfg.Recency.Enabled {
		recency = service.NewRecencyService(service.RecencyConfig{
			Workers:       cfg.Recency.Workers,
			Timeout:       cfg.Recency.Timeout,
			RatePerSecond: cfg.Recency.RatePerSecond,
			UserAgent:     cfg.Recency.UserAgent,
			MaxBodyBytes:  cfg.Recency.MaxBodyBytes,
		}, a.Recency)
	}

	var sinks []service.ProgressSink
	if cfg.Progress.Redis.Enabled {
		client, err := service.NewRedisClient(ctx, cfg.Progress.Redis.URL)
		if err != nil {
			return nil, err
		}
		a.redis = client
		a.Live = service.NewRedisProgressSink(client, cfg.Progress.Redis.Channel)
		sinks = append(sinks, a.Live)
	}

	store, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	a.Onboarding = service.NewOnboardingService(service.OnboardingDeps{
		Onboardings: a.Onboardings,
		Companies:   a.Companies,
		Prompts:     a.Prompts,
		Responses:   a.Responses,
		Translation: translation,
		Dispatcher:  service.NewDispatcher(callers, a.Responses, analyzer, cfg.Dispatch.Concurrency),
		Insights:    insights,
		Recency:     recency,
		Sinks:       sinks,
	})
	a.Dashboard = service.NewDashboardService(a.Companies, a.Prompts, a.Responses, a.Recency, a.Insights)
	a.Reports = service.NewReportService(a.Dashboard, a.Prompts, a.Responses, a.Insights, store)

	logger.With(logger.Fields{logger.FieldCount: len(callers)}).Info(ctx,
		"Pipeline ready: translation=%t policy=%s search_insights=%t recency=%t redis=%t storage=%t",
		translator != nil, translation.Policy(), insights != nil, recency != nil, a.Live != nil, store != nil)
	return a, nil
}

// Close waits for background work and releases connections.
func (a *App) Close() error {
	a.Onboarding.Wait()
	if a.redis != nil {
		a.redis.Close()
	}
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
