package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/perceptionx/collector/internal/domain"
	"github.com/perceptionx/collector/internal/repository"
	"github.com/perceptionx/collector/internal/service"
)

// CompanyHandler serves company status, collected data and reports.
type CompanyHandler struct {
	companies  *repository.CompanyRepository
	prompts    *repository.PromptRepository
	responses  *repository.ResponseRepository
	onboarding *service.OnboardingService
	dashboard  *service.DashboardService
	reports    *service.ReportService
	live       *service.RedisProgressSink
}

// NewCompanyHandler creates a new company handler. live may be nil when
// progress is not published to Redis.
func NewCompanyHandler(
	companies *repository.CompanyRepository,
	prompts *repository.PromptRepository,
	responses *repository.ResponseRepository,
	onboarding *service.OnboardingService,
	dashboard *service.DashboardService,
	reports *service.ReportService,
	live *service.RedisProgressSink,
) *CompanyHandler {
	return &CompanyHandler{
		companies:  companies,
		prompts:    prompts,
		responses:  responses,
		onboarding: onboarding,
		dashboard:  dashboard,
		reports:    reports,
		live:       live,
	}
}

// ProgressResponse is the polling view of a company's collection.
type ProgressResponse struct {
	CompanyID   string                     `json:"company_id"`
	Status      domain.CollectionStatus    `json:"status"`
	Running     bool                       `json:"running"`
	Progress    *domain.CollectionProgress `json:"progress,omitempty"`
	Percent     int                        `json:"percent"`
	LastError   string                     `json:"last_error,omitempty"`
	StartedAt   *time.Time                 `json:"started_at,omitempty"`
	CompletedAt *time.Time                 `json:"completed_at,omitempty"`
}

// List handles GET /api/v1/companies?user_id=, newest first.
func (h *CompanyHandler) List(c *gin.Context) {
	userID := requestUserID(c)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	companies, err := h.companies.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "Failed to list companies", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"companies": companies,
		"total":     len(companies),
	})
}

// Get handles GET /api/v1/companies/:id.
func (h *CompanyHandler) Get(c *gin.Context) {
	company, err := h.companies.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Company not found", err)
		return
	}
	c.JSON(http.StatusOK, company)
}

// Progress handles GET /api/v1/companies/:id/progress. Live progress from
// the running pipeline wins over the snapshot stored on the row.
func (h *CompanyHandler) Progress(c *gin.Context) {
	company, err := h.companies.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Company not found", err)
		return
	}

	resp := ProgressResponse{
		CompanyID:   company.ID,
		Status:      company.DataCollectionStatus,
		Running:     h.onboarding.IsRunning(company.ID),
		Progress:    company.DataCollectionProgress,
		LastError:   company.LastError,
		StartedAt:   company.DataCollectionStartedAt,
		CompletedAt: company.DataCollectionCompletedAt,
	}
	if resp.Running {
		if ev, ok := h.onboarding.Tracker().Get(company.ID); ok {
			snap := ev.Snapshot()
			resp.Progress = &snap
		}
	} else if h.live != nil && !company.DataCollectionStatus.IsTerminal() {
		// another instance may be running the pipeline
		if ev, err := h.live.Latest(c.Request.Context(), company.ID); err == nil {
			snap := ev.Snapshot()
			resp.Progress = &snap
		}
	}
	if p := resp.Progress; p != nil && p.Total > 0 {
		resp.Percent = p.Completed * 100 / p.Total
	}
	if company.DataCollectionStatus == domain.CollectionCompleted {
		resp.Percent = 100
	}
	c.JSON(http.StatusOK, resp)
}

// Collect handles POST /api/v1/companies/:id/collect. It resumes
// collection in the background, sending only pairs without a response.
func (h *CompanyHandler) Collect(c *gin.Context) {
	company, err := h.onboarding.StartResume(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to resume collection", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"company_id":   company.ID,
		"progress_url": "/api/v1/companies/" + company.ID + "/progress",
	})
}

// Prompts handles GET /api/v1/companies/:id/prompts.
func (h *CompanyHandler) Prompts(c *gin.Context) {
	prompts, err := h.prompts.ListActiveByCompany(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to list prompts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"prompts": prompts,
		"total":   len(prompts),
	})
}

// Responses handles GET /api/v1/companies/:id/responses, optionally
// filtered by ?model=.
func (h *CompanyHandler) Responses(c *gin.Context) {
	responses, err := h.responses.ListByCompany(c.Request.Context(), c.Param("id"), c.Query("model"))
	if err != nil {
		respondError(c, "Failed to list responses", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"responses": responses,
		"total":     len(responses),
	})
}

// Response handles GET /api/v1/companies/:id/responses/:responseId.
func (h *CompanyHandler) Response(c *gin.Context) {
	resp, err := h.responses.GetByID(c.Request.Context(), c.Param("responseId"))
	if err != nil {
		respondError(c, "Response not found", err)
		return
	}
	if resp.CompanyID != c.Param("id") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Response not found"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Dashboard handles GET /api/v1/companies/:id/dashboard.
func (h *CompanyHandler) Dashboard(c *gin.Context) {
	summary, err := h.dashboard.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to build dashboard", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Report handles POST /api/v1/companies/:id/report.
func (h *CompanyHandler) Report(c *gin.Context) {
	out, err := h.reports.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to export report", err)
		return
	}
	c.JSON(http.StatusCreated, out)
}
