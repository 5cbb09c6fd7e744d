package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/perceptionx/collector/internal/domain"
	"github.com/perceptionx/collector/internal/logger"
	"github.com/perceptionx/collector/internal/repository"
	"github.com/perceptionx/collector/internal/storage"
)

// Report is the exported document for one company.
type Report struct {
	Summary        *DashboardSummary            `json:"summary"`
	Prompts        []domain.ConfirmedPrompt     `json:"prompts"`
	Responses      []domain.PromptResponse      `json:"responses"`
	SearchInsights []domain.SearchInsightResult `json:"search_insights,omitempty"`
}

// ExportResult locates an uploaded report.
type ExportResult struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int    `json:"size"`
}

// ReportService assembles reports and uploads them to object storage.
type ReportService struct {
	dashboard *DashboardService
	prompts   *repository.PromptRepository
	responses *repository.ResponseRepository
	insights  *repository.SearchInsightRepository
	store     storage.ObjectStorage
	now       func() time.Time
}

// NewReportService creates a report service. store may be nil, in which
// case Export returns ErrStorageNotConfigured.
func NewReportService(dashboard *DashboardService, prompts *repository.PromptRepository, responses *repository.ResponseRepository, insights *repository.SearchInsightRepository, store storage.ObjectStorage) *ReportService {
	return &ReportService{
		dashboard: dashboard,
		prompts:   prompts,
		responses: responses,
		insights:  insights,
		store:     store,
		now:       time.Now,
	}
}

// Build assembles the report of companyID.
func (s *ReportService) Build(ctx context.Context, companyID string) (*Report, error) {
	summary, err := s.dashboard.Summary(ctx, companyID)
	if err != nil {
		return nil, err
	}
	ps, err := s.prompts.ListActiveByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	rs, err := s.responses.ListByCompany(ctx, companyID, "")
	if err != nil {
		return nil, err
	}
	report := &Report{Summary: summary, Prompts: ps, Responses: rs}
	if s.insights != nil {
		if report.SearchInsights, err = s.insights.ListResults(ctx, companyID); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// Export uploads the JSON report of companyID and returns where it lives.
func (s *ReportService) Export(ctx context.Context, companyID string) (*ExportResult, error) {
	if s.store == nil {
		return nil, ErrStorageNotConfigured
	}
	report, err := s.Build(ctx, companyID)
	if err != nil {
		return nil, err
	}
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}

	key := fmt.Sprintf("reports/%s/%s.json", companyID, s.now().UTC().Format("20060102T150405Z"))
	if err := s.store.Put(ctx, key, body, "application/json"); err != nil {
		return nil, err
	}
	logger.CtxInfo(logger.SetCompanyID(ctx, companyID), "Report exported to %s", key)
	return &ExportResult{Key: key, URL: s.store.URL(key), Size: len(body)}, nil
}
