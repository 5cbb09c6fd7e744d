package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/perceptionx/collector/internal/domain"
	"github.com/perceptionx/collector/internal/repository"
	"github.com/perceptionx/collector/internal/service"
)

// OnboardingHandler starts onboarding runs and lists past ones.
type OnboardingHandler struct {
	onboarding  *service.OnboardingService
	onboardings *repository.OnboardingRepository
}

// NewOnboardingHandler creates a new onboarding handler.
// Parameters:
//   - onboarding: pipeline orchestrator.
//   - onboardings: onboarding records.
//
// Returns:
//   - *OnboardingHandler: initialized handler.
func NewOnboardingHandler(onboarding *service.OnboardingService, onboardings *repository.OnboardingRepository) *OnboardingHandler {
	return &OnboardingHandler{onboarding: onboarding, onboardings: onboardings}
}

// OnboardingResponse is returned when a run has been accepted.
type OnboardingResponse struct {
	OnboardingID string                  `json:"onboarding_id"`
	CompanyID    string                  `json:"company_id"`
	Status       domain.CollectionStatus `json:"status"`
	ProgressURL  string                  `json:"progress_url"`
}

// Create handles POST /api/v1/onboarding. The run continues in the
// background; clients poll the progress URL.
func (h *OnboardingHandler) Create(c *gin.Context) {
	var req service.OnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}
	if userID := c.GetHeader("X-User-ID"); userID != "" && req.UserID == "" {
		req.UserID = userID
	}

	rec, company, err := h.onboarding.Start(c.Request.Context(), req)
	if err != nil {
		respondError(c, "Failed to start onboarding", err)
		return
	}

	c.JSON(http.StatusAccepted, OnboardingResponse{
		OnboardingID: rec.ID,
		CompanyID:    company.ID,
		Status:       company.DataCollectionStatus,
		ProgressURL:  "/api/v1/companies/" + company.ID + "/progress",
	})
}

// List handles GET /api/v1/onboarding?user_id=, newest first. The
// X-User-ID header is used when the query is empty.
func (h *OnboardingHandler) List(c *gin.Context) {
	userID := requestUserID(c)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	recs, err := h.onboardings.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "Failed to list onboardings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"onboardings": recs,
		"total":       len(recs),
	})
}

func requestUserID(c *gin.Context) string {
	if userID := c.Query("user_id"); userID != "" {
		return userID
	}
	return c.GetHeader("X-User-ID")
}
