package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perceptionx/collector/internal/domain"
	"github.com/perceptionx/collector/internal/repository"
	"github.com/perceptionx/collector/internal/storage"
)

func seededDashboard(t *testing.T) (*onboardingFixture, *DashboardService, string) {
	t.Helper()
	openai := newFakeModel("openai", func(string) (*ModelAnswer, error) {
		return &ModelAnswer{Text: "Acme is a great employer. Also consider **Globex**."}, nil
	})
	perplexity := newFakeModel("perplexity", func(string) (*ModelAnswer, error) {
		return &ModelAnswer{
			Text:      "Reviews mention layoffs and burnout.",
			Citations: []interface{}{"https://www.glassdoor.com/acme", "https://news.example.com/2025/05/acme"},
		}, nil
	})
	f := newOnboardingFixture(t, fixtureOptions{models: []ModelCaller{openai, perplexity}})
	result, err := f.svc.Run(context.Background(), OnboardingRequest{CompanyName: "Acme", Industry: "Software"})
	require.NoError(t, err)

	recency := repository.NewRecencyRepository(f.db)
	score := 80
	require.NoError(t, recency.Upsert(context.Background(), &domain.URLRecencyCache{
		URL: "https://www.glassdoor.com/acme", RecencyScore: &score, ExtractionMethod: domain.ExtractionMetaTag,
	}))

	dash := NewDashboardService(f.companies, f.prompts, f.responses, recency, f.insights)
	return f, dash, result.CompanyID
}

func TestDashboardSummary(t *testing.T) {
	_, dash, companyID := seededDashboard(t)

	sum, err := dash.Summary(context.Background(), companyID)
	require.NoError(t, err)

	assert.Equal(t, "Acme", sum.CompanyName)
	assert.Equal(t, domain.CollectionCompleted, sum.Status)
	assert.Equal(t, 4, sum.TotalPrompts)
	assert.Equal(t, 8, sum.TotalResponses)
	assert.Equal(t, map[string]int{"openai": 4, "perplexity": 4}, sum.ResponsesByModel)
	assert.Equal(t, 4, sum.SentimentDistribution[SentimentPositive])
	assert.Equal(t, 4, sum.SentimentDistribution[SentimentNegative])
	assert.Equal(t, 0.0, sum.AverageSentiment)
	assert.Equal(t, 0.5, sum.MentionRate)
	assert.Equal(t, 1.0, sum.VisibilityByModel["openai"])
	assert.Equal(t, 0.0, sum.VisibilityByModel["perplexity"])
	assert.Equal(t, 0.5, sum.VisibilityByType[string(domain.PromptExperience)])

	require.NotEmpty(t, sum.TopCompetitors)
	assert.Equal(t, NamedCount{Name: "Globex", Count: 4}, sum.TopCompetitors[0])
	require.Len(t, sum.TopDomains, 2)
	assert.Equal(t, 4, sum.TopDomains[0].Count)

	require.NotNil(t, sum.AverageRecency)
	assert.Equal(t, 80.0, *sum.AverageRecency)
	assert.Equal(t, 1, sum.RecencyCoverage)
}

func TestDashboardUnknownCompany(t *testing.T) {
	_, dash, _ := seededDashboard(t)
	_, err := dash.Summary(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCompanyNotFound)
}

func TestReportExport(t *testing.T) {
	f, dash, companyID := seededDashboard(t)
	store := storage.NewMemoryStorage("https://reports.example.com")
	reports := NewReportService(dash, f.prompts, f.responses, f.insights, store)
	reports.now = func() time.Time { return time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC) }

	out, err := reports.Export(context.Background(), companyID)
	require.NoError(t, err)
	assert.Equal(t, "reports/"+companyID+"/20250601T123000Z.json", out.Key)
	assert.Equal(t, "https://reports.example.com/"+out.Key, out.URL)

	body, err := store.Get(context.Background(), out.Key)
	require.NoError(t, err)
	assert.Equal(t, out.Size, len(body))

	var report Report
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Len(t, report.Prompts, 4)
	assert.Len(t, report.Responses, 8)
	assert.Equal(t, companyID, report.Summary.CompanyID)
}

func TestReportExportWithoutStorage(t *testing.T) {
	f, dash, companyID := seededDashboard(t)
	reports := NewReportService(dash, f.prompts, f.responses, f.insights, nil)
	_, err := reports.Export(context.Background(), companyID)
	assert.ErrorIs(t, err, ErrStorageNotConfigured)
}
