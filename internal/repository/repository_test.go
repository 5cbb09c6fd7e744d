package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/perceptionx/collector/internal/config"
	"github.com/perceptionx/collector/internal/domain"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         "file:" + name + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
		AutoMigrate:  true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func seedCompany(t *testing.T, db *gorm.DB) (*domain.OnboardingRecord, *domain.Company) {
	t.Helper()
	rec := &domain.OnboardingRecord{ID: uuid.NewString(), UserID: "user-1", CompanyName: "Acme", Industry: "Software", Country: "GLOBAL"}
	company := &domain.Company{ID: uuid.NewString(), UserID: "user-1", Name: "Acme", Industry: "Software", DataCollectionStatus: domain.CollectionPending}
	require.NoError(t, NewOnboardingRepository(db).CreateWithCompany(context.Background(), rec, company))
	return rec, company
}

func TestCreateWithCompanyIsAtomic(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewOnboardingRepository(db)

	rec, company := seedCompany(t, db)
	got, err := NewCompanyRepository(db).GetByOnboardingID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, company.ID, got.ID)

	// A duplicate company id fails the second insert and rolls back the record.
	rec2 := &domain.OnboardingRecord{ID: uuid.NewString(), CompanyName: "Acme"}
	dup := &domain.Company{ID: company.ID, Name: "Acme"}
	require.Error(t, repo.CreateWithCompany(ctx, rec2, dup))

	_, err = repo.GetByID(ctx, rec2.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTransitionStatusIsForwardOnly(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewCompanyRepository(db)
	_, company := seedCompany(t, db)

	ok, err := repo.TransitionStatus(ctx, company.ID, domain.CollectionCollectingLLMData, "")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TransitionStatus(ctx, company.ID, domain.CollectionCollectingSearchInsights, "")
	require.NoError(t, err)
	assert.False(t, ok, "backward move must be ignored")

	ok, err = repo.TransitionStatus(ctx, company.ID, domain.CollectionCompleted, "")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TransitionStatus(ctx, company.ID, domain.CollectionFailed, "boom")
	require.NoError(t, err)
	assert.False(t, ok, "completed is terminal")

	got, err := repo.GetByID(ctx, company.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CollectionCompleted, got.DataCollectionStatus)
	assert.NotNil(t, got.DataCollectionStartedAt)
	assert.NotNil(t, got.DataCollectionCompletedAt)

	require.NoError(t, repo.Reopen(ctx, company.ID))
	ok, err = repo.TransitionStatus(ctx, company.ID, domain.CollectionFailed, "boom")
	require.NoError(t, err)
	assert.True(t, ok)
	got, err = repo.GetByID(ctx, company.ID)
	require.NoError(t, err)
	assert.Equal(t, "boom", got.LastError)
}

func TestSaveProgress(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewCompanyRepository(db)
	_, company := seedCompany(t, db)

	got, err := repo.GetByID(ctx, company.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DataCollectionProgress)

	p := domain.CollectionProgress{CurrentPrompt: "How is Acme as an employer?", CurrentModel: "perplexity", Completed: 5, Total: 12}
	require.NoError(t, repo.SaveProgress(ctx, company.ID, p))

	got, err = repo.GetByID(ctx, company.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DataCollectionProgress)
	assert.Equal(t, p, *got.DataCollectionProgress)
}

func TestPromptsAndResponses(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	rec, company := seedCompany(t, db)

	base := time.Now()
	prompts := []domain.ConfirmedPrompt{
		{ID: uuid.NewString(), OnboardingID: rec.ID, CompanyID: company.ID, PromptText: "first", PromptType: domain.PromptExperience, IsActive: true, CreatedAt: base},
		{ID: uuid.NewString(), OnboardingID: rec.ID, CompanyID: company.ID, PromptText: "second", PromptType: domain.PromptDiscovery, IsActive: true, CreatedAt: base.Add(time.Millisecond)},
	}
	promptRepo := NewPromptRepository(db)
	require.NoError(t, promptRepo.CreateBatch(ctx, prompts))

	listed, err := promptRepo.ListByOnboarding(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "first", listed[0].PromptText)

	respRepo := NewResponseRepository(db)
	exists, err := respRepo.Exists(ctx, prompts[0].ID, "openai")
	require.NoError(t, err)
	assert.False(t, exists)

	resp := &domain.PromptResponse{
		ID:                uuid.NewString(),
		ConfirmedPromptID: prompts[0].ID,
		CompanyID:         company.ID,
		AIModel:           "openai",
		ResponseText:      "Acme is great",
		Citations:         domain.RawCitations{"https://acme.com"},
		TestedAt:          time.Now(),
	}
	require.NoError(t, respRepo.Create(ctx, resp))

	exists, err = respRepo.Exists(ctx, prompts[0].ID, "openai")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, respRepo.UpdateAnalysis(ctx, resp.ID, AnalysisUpdate{
		SentimentScore:   0.6,
		SentimentLabel:   "positive",
		CompanyMentioned: true,
		Themes:           []string{"culture"},
	}))

	got, err := respRepo.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SentimentScore)
	assert.InDelta(t, 0.6, *got.SentimentScore, 1e-9)
	assert.Equal(t, "positive", *got.SentimentLabel)
	assert.Equal(t, domain.StringArray{"culture"}, got.Themes)
	assert.Equal(t, domain.RawCitations{"https://acme.com"}, got.Citations)

	byPrompt, err := respRepo.ListByPromptIDs(ctx, []string{prompts[0].ID, prompts[1].ID})
	require.NoError(t, err)
	assert.Len(t, byPrompt, 1)
}

func TestRecencyUpsert(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewRecencyRepository(db)

	score := 40
	require.NoError(t, repo.Upsert(ctx, &domain.URLRecencyCache{URL: "https://a.com/x", Domain: "a.com", RecencyScore: &score, ExtractionMethod: domain.ExtractionMetaTag}))

	score2 := 100
	require.NoError(t, repo.Upsert(ctx, &domain.URLRecencyCache{URL: "https://a.com/x", Domain: "a.com", RecencyScore: &score2, ExtractionMethod: domain.ExtractionJSONLD}))

	got, err := repo.Get(ctx, "https://a.com/x")
	require.NoError(t, err)
	assert.Equal(t, 100, *got.RecencyScore)
	assert.Equal(t, domain.ExtractionJSONLD, got.ExtractionMethod)

	cached, err := repo.CachedURLs(ctx, []string{"https://a.com/x", "https://b.com"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"https://a.com/x": true}, cached)
}

func TestSearchInsightReplace(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewSearchInsightRepository(db)

	first := []domain.SearchInsightResult{{ID: uuid.NewString(), CompanyID: "c1", SearchTerm: "acme careers", Position: 1, Link: "https://acme.com"}}
	require.NoError(t, repo.Replace(ctx, "c1", first, nil))

	second := []domain.SearchInsightResult{
		{ID: uuid.NewString(), CompanyID: "c1", SearchTerm: "acme jobs", Position: 2, Link: "https://b.com"},
		{ID: uuid.NewString(), CompanyID: "c1", SearchTerm: "acme jobs", Position: 1, Link: "https://a.com"},
	}
	terms := []domain.SearchInsightTerm{{ID: uuid.NewString(), CompanyID: "c1", Term: "acme jobs", MonthlyVolume: 1200}}
	require.NoError(t, repo.Replace(ctx, "c1", second, terms))

	results, err := repo.ListResults(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Position)

	gotTerms, err := repo.ListTerms(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, gotTerms, 1)
	assert.Equal(t, 1200, gotTerms[0].MonthlyVolume)
}
