package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/perceptionx/collector/internal/api/handler"
	"github.com/perceptionx/collector/internal/api/middleware"
	"github.com/perceptionx/collector/internal/config"
	"github.com/perceptionx/collector/internal/logger"
	"github.com/perceptionx/collector/internal/repository"
	"github.com/perceptionx/collector/internal/service"
)

// Deps holds everything the HTTP layer talks to.
type Deps struct {
	DB          *gorm.DB
	Onboardings *repository.OnboardingRepository
	Companies   *repository.CompanyRepository
	Prompts     *repository.PromptRepository
	Responses   *repository.ResponseRepository
	Recency     *repository.RecencyRepository
	Onboarding  *service.OnboardingService
	Dashboard   *service.DashboardService
	Reports     *service.ReportService
	Live        *service.RedisProgressSink // optional
	Logger      *logger.Logger
}

// SetupRouter configures the Gin router with all routes.
func SetupRouter(deps Deps, cfg *config.ServerConfig) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	log := deps.Logger
	if log == nil {
		log = logger.GetDefault()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler(deps.DB)
	onboardingHandler := handler.NewOnboardingHandler(deps.Onboarding, deps.Onboardings)
	companyHandler := handler.NewCompanyHandler(
		deps.Companies,
		deps.Prompts,
		deps.Responses,
		deps.Onboarding,
		deps.Dashboard,
		deps.Reports,
		deps.Live,
	)
	recencyHandler := handler.NewRecencyHandler(deps.Recency)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/onboarding", onboardingHandler.Create)
		v1.GET("/onboarding", onboardingHandler.List)
		v1.GET("/companies", companyHandler.List)

		companies := v1.Group("/companies/:id")
		companies.GET("", companyHandler.Get)
		companies.GET("/progress", companyHandler.Progress)
		companies.POST("/collect", companyHandler.Collect)
		companies.GET("/prompts", companyHandler.Prompts)
		companies.GET("/responses", companyHandler.Responses)
		companies.GET("/responses/:responseId", companyHandler.Response)
		companies.GET("/dashboard", companyHandler.Dashboard)
		companies.POST("/report", companyHandler.Report)

		v1.GET("/recency", recencyHandler.Get)
	}

	return r
}
