package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/perceptionx/collector/internal/domain"
	"github.com/perceptionx/collector/internal/locale"
	"github.com/perceptionx/collector/internal/logger"
	"github.com/perceptionx/collector/internal/prompts"
	"github.com/perceptionx/collector/internal/repository"
)

// OnboardingRequest is the input of one onboarding run.
type OnboardingRequest struct {
	UserID      string `json:"user_id"`
	CompanyName string `json:"company_name" binding:"required"`
	Industry    string `json:"industry" binding:"required"`
	Country     string `json:"country"`
	JobFunction string `json:"job_function"`
	SessionID   string `json:"session_id"`
	ProTier     bool   `json:"pro_tier"`
}

// Validate trims the request and checks required fields.
func (r *OnboardingRequest) Validate() error {
	r.CompanyName = strings.TrimSpace(r.CompanyName)
	r.Industry = strings.TrimSpace(r.Industry)
	r.JobFunction = strings.TrimSpace(r.JobFunction)
	r.Country = locale.Normalize(r.Country)
	var missing []string
	if r.CompanyName == "" {
		missing = append(missing, "company_name")
	}
	if r.Industry == "" {
		missing = append(missing, "industry")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	return nil
}

// CollectResult summarises one collection.
type CollectResult struct {
	OnboardingID   string                `json:"onboarding_id"`
	CompanyID      string                `json:"company_id"`
	Prompts        int                   `json:"prompts"`
	Dispatch       *DispatchStats        `json:"dispatch"`
	SearchInsights *SearchInsightsResult `json:"search_insights,omitempty"`
	SearchError    string                `json:"search_error,omitempty"`
}

// OnboardingDeps wires the orchestrator.
type OnboardingDeps struct {
	Onboardings *repository.OnboardingRepository
	Companies   *repository.CompanyRepository
	Prompts     *repository.PromptRepository
	Responses   *repository.ResponseRepository
	Translation *TranslationStep
	Dispatcher  *Dispatcher
	Insights    SearchInsightsCollector // nil disables search insights
	Recency     RecencyExtractor        // nil disables recency scoring
	Tracker     *ProgressTracker
	Sinks       []ProgressSink // extra sinks after company persistence and tracker
}

// OnboardingService runs the onboarding data-collection pipeline.
type OnboardingService struct {
	deps    OnboardingDeps
	running sync.Map // company id -> struct{}
	wg      sync.WaitGroup
}

// NewOnboardingService creates the orchestrator.
func NewOnboardingService(deps OnboardingDeps) *OnboardingService {
	if deps.Tracker == nil {
		deps.Tracker = NewProgressTracker()
	}
	return &OnboardingService{deps: deps}
}

// Tracker returns the live progress tracker.
func (s *OnboardingService) Tracker() *ProgressTracker {
	return s.deps.Tracker
}

// Begin validates req and creates the onboarding record and its company in
// one transaction.
func (s *OnboardingService) Begin(ctx context.Context, req OnboardingRequest) (*domain.OnboardingRecord, *domain.Company, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	rec := &domain.OnboardingRecord{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		CompanyName: req.CompanyName,
		Industry:    req.Industry,
		Country:     req.Country,
		JobFunction: req.JobFunction,
		SessionID:   req.SessionID,
		ProTier:     req.ProTier,
	}
	company := &domain.Company{
		ID:                   uuid.NewString(),
		UserID:               req.UserID,
		Name:                 req.CompanyName,
		Industry:             req.Industry,
		Country:              req.Country,
		DataCollectionStatus: domain.CollectionPending,
	}
	if err := s.deps.Onboardings.CreateWithCompany(ctx, rec, company); err != nil {
		return nil, nil, err
	}

	logger.CtxInfo(logger.SetCompanyID(ctx, company.ID), "Onboarding %s created for %s", rec.ID, company.Name)
	return rec, company, nil
}

// Run creates the onboarding rows and collects data synchronously.
func (s *OnboardingService) Run(ctx context.Context, req OnboardingRequest) (*CollectResult, error) {
	rec, company, err := s.Begin(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.Collect(ctx, rec, company)
}

// Start creates the onboarding rows and collects data in the background.
// The returned rows are what a client needs to poll progress.
func (s *OnboardingService) Start(ctx context.Context, req OnboardingRequest) (*domain.OnboardingRecord, *domain.Company, error) {
	rec, company, err := s.Begin(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if err := s.acquire(company.ID); err != nil {
		return nil, nil, err
	}
	bg := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release(company.ID)
		if _, err := s.collect(bg, rec, company); err != nil {
			logger.CtxError(logger.SetCompanyID(bg, company.ID), "Background collection failed: %v", err)
		}
	}()
	return rec, company, nil
}

// Collect generates, translates and stores the prompt set, then runs the
// LLM dispatch and search insights side by side and finally starts the
// recency pass without waiting for it. Fatal errors mark the company failed.
func (s *OnboardingService) Collect(ctx context.Context, rec *domain.OnboardingRecord, company *domain.Company) (*CollectResult, error) {
	if err := s.acquire(company.ID); err != nil {
		return nil, err
	}
	defer s.release(company.ID)
	return s.collect(ctx, rec, company)
}

func (s *OnboardingService) collect(ctx context.Context, rec *domain.OnboardingRecord, company *domain.Company) (*CollectResult, error) {
	ctx = logger.SetOnboardingID(logger.SetCompanyID(ctx, company.ID), rec.ID)
	started := time.Now()
	result := &CollectResult{OnboardingID: rec.ID, CompanyID: company.ID}

	generated := prompts.Generate(prompts.Options{
		CompanyName: rec.CompanyName,
		Industry:    rec.Industry,
		JobFunction: rec.JobFunction,
		Location:    locale.CountryName(rec.Country),
		ProTier:     rec.ProTier,
	})

	translated, err := s.deps.Translation.MaybeTranslate(ctx, generated, rec.Country)
	if err != nil {
		return nil, s.fail(ctx, company.ID, err)
	}

	confirmed := toConfirmed(translated, rec, company.ID)
	if err := s.deps.Prompts.CreateBatch(ctx, confirmed); err != nil {
		return nil, s.fail(ctx, company.ID, fmt.Errorf("failed to store prompts: %w", err))
	}
	result.Prompts = len(confirmed)

	if err := s.gather(ctx, company, confirmed, result); err != nil {
		return result, s.fail(ctx, company.ID, err)
	}

	s.startRecency(ctx, confirmed)

	if err := s.finish(ctx, company.ID); err != nil {
		return result, s.fail(ctx, company.ID, err)
	}
	if err := s.deps.Onboardings.MarkPromptsCompleted(context.WithoutCancel(ctx), rec.ID); err != nil {
		logger.CtxWarn(ctx, "Failed to mark prompts completed: %v", err)
	}

	logger.With(logger.Fields{logger.FieldCount: result.Prompts}).
		WithDuration(time.Since(started).Milliseconds()).
		WithStatus(string(domain.CollectionCompleted)).
		Info(ctx, "Onboarding data collection finished")
	return result, nil
}

// Resume re-runs dispatch over a company's active prompts. Pairs that
// already have a response are not sent again.
func (s *OnboardingService) Resume(ctx context.Context, companyID string) (*CollectResult, error) {
	company, err := s.deps.Companies.GetByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}
	if err := s.acquire(company.ID); err != nil {
		return nil, err
	}
	defer s.release(company.ID)
	return s.resume(ctx, company)
}

// StartResume is Resume in the background.
func (s *OnboardingService) StartResume(ctx context.Context, companyID string) (*domain.Company, error) {
	company, err := s.deps.Companies.GetByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}
	if err := s.acquire(company.ID); err != nil {
		return nil, err
	}
	bg := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release(company.ID)
		if _, err := s.resume(bg, company); err != nil {
			logger.CtxError(logger.SetCompanyID(bg, company.ID), "Background resume failed: %v", err)
		}
	}()
	return company, nil
}

func (s *OnboardingService) resume(ctx context.Context, company *domain.Company) (*CollectResult, error) {
	ctx = logger.SetOnboardingID(logger.SetCompanyID(ctx, company.ID), company.OnboardingID)
	result := &CollectResult{OnboardingID: company.OnboardingID, CompanyID: company.ID}

	confirmed, err := s.deps.Prompts.ListActiveByCompany(ctx, company.ID)
	if err != nil {
		return nil, err
	}
	if len(confirmed) == 0 {
		return nil, fmt.Errorf("company %s has no confirmed prompts", company.ID)
	}
	result.Prompts = len(confirmed)

	if company.DataCollectionStatus.IsTerminal() {
		if err := s.deps.Companies.Reopen(ctx, company.ID); err != nil {
			return nil, err
		}
	}

	// Search insights were collected by the original run.
	if err := s.dispatch(ctx, company, confirmed, result); err != nil {
		return result, s.fail(ctx, company.ID, err)
	}
	s.startRecency(ctx, confirmed)
	if err := s.finish(ctx, company.ID); err != nil {
		return result, s.fail(ctx, company.ID, err)
	}
	if company.OnboardingID != "" {
		if err := s.deps.Onboardings.MarkPromptsCompleted(context.WithoutCancel(ctx), company.OnboardingID); err != nil {
			logger.CtxWarn(ctx, "Failed to mark prompts completed: %v", err)
		}
	}
	return result, nil
}

// gather runs the LLM branch and the search-insights branch concurrently
// and waits for both. Only the LLM branch can fail the run.
func (s *OnboardingService) gather(ctx context.Context, company *domain.Company, confirmed []domain.ConfirmedPrompt, result *CollectResult) error {
	if s.deps.Insights == nil {
		return s.dispatch(ctx, company, confirmed, result)
	}

	s.transition(ctx, company.ID, domain.CollectionCollectingSearchInsights)

	var dispatchErr error
	var g errgroup.Group
	g.Go(func() error {
		dispatchErr = s.dispatch(ctx, company, confirmed, result)
		return nil
	})
	g.Go(func() error {
		insights, err := s.deps.Insights.Collect(ctx, company.Name, company.ID, company.OnboardingID)
		if err != nil {
			logger.CtxWarn(ctx, "Search insights failed: %v", err)
			result.SearchError = err.Error()
		}
		result.SearchInsights = insights
		return nil
	})
	_ = g.Wait()
	return dispatchErr
}

func (s *OnboardingService) dispatch(ctx context.Context, company *domain.Company, confirmed []domain.ConfirmedPrompt, result *CollectResult) error {
	s.transition(ctx, company.ID, domain.CollectionCollectingLLMData)

	sinks := append([]ProgressSink{
		NewCompanyProgressSink(s.deps.Companies),
		s.deps.Tracker,
	}, s.deps.Sinks...)
	stream := NewProgressStream(context.WithoutCancel(ctx), sinks...)

	stats, err := s.deps.Dispatcher.Run(ctx, DispatchInput{
		CompanyID:   company.ID,
		CompanyName: company.Name,
		Prompts:     confirmed,
	}, stream.Emit)
	stream.Close()

	result.Dispatch = stats
	return err
}

// startRecency collects every citation of the run and hands them to the
// extractor in one batch on a detached context. Wait blocks until it ends.
func (s *OnboardingService) startRecency(ctx context.Context, confirmed []domain.ConfirmedPrompt) {
	if s.deps.Recency == nil {
		return
	}
	ids := make([]string, len(confirmed))
	for i, p := range confirmed {
		ids[i] = p.ID
	}
	bg := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		citations, err := s.runCitations(bg, ids)
		if err != nil {
			logger.CtxWarn(bg, "Failed to load citations for recency: %v", err)
			return
		}
		if len(citations) == 0 {
			return
		}
		if _, err := s.deps.Recency.ExtractBatch(bg, citations); err != nil {
			logger.CtxWarn(bg, "Recency extraction failed: %v", err)
		}
	}()
}

// runCitations flattens and normalises the citations of every response to
// the given prompts. Duplicates are kept.
func (s *OnboardingService) runCitations(ctx context.Context, promptIDs []string) ([]domain.Citation, error) {
	responses, err := s.deps.Responses.ListByPromptIDs(ctx, promptIDs)
	if err != nil {
		return nil, err
	}
	var out []domain.Citation
	for _, r := range responses {
		out = append(out, domain.NormalizeCitations(r.Citations)...)
	}
	return out, nil
}

// Wait blocks until background collections and recency passes finish.
func (s *OnboardingService) Wait() {
	s.wg.Wait()
}

// IsRunning reports whether collection is in progress for companyID.
func (s *OnboardingService) IsRunning(companyID string) bool {
	_, ok := s.running.Load(companyID)
	return ok
}

func (s *OnboardingService) acquire(companyID string) error {
	if _, loaded := s.running.LoadOrStore(companyID, struct{}{}); loaded {
		return ErrAlreadyRunning
	}
	return nil
}

func (s *OnboardingService) release(companyID string) {
	s.deps.Tracker.Forget(companyID)
	s.running.Delete(companyID)
}

func (s *OnboardingService) transition(ctx context.Context, companyID string, next domain.CollectionStatus) {
	changed, err := s.deps.Companies.TransitionStatus(ctx, companyID, next, "")
	if err != nil {
		logger.CtxWarn(ctx, "Failed to set status %s: %v", next, err)
		return
	}
	if changed {
		logger.CtxInfo(ctx, "Data collection status: %s", next)
	}
}

// finish marks the company completed. The write outlives a cancelled ctx
// so a run that got this far never stays in progress.
func (s *OnboardingService) finish(ctx context.Context, companyID string) error {
	if _, err := s.deps.Companies.TransitionStatus(context.WithoutCancel(ctx), companyID, domain.CollectionCompleted, ""); err != nil {
		return fmt.Errorf("failed to mark company completed: %w", err)
	}
	return nil
}

// fail marks the company failed with cause and returns cause.
func (s *OnboardingService) fail(ctx context.Context, companyID string, cause error) error {
	logger.CtxError(ctx, "Data collection failed: %v", cause)
	if _, err := s.deps.Companies.TransitionStatus(context.WithoutCancel(ctx), companyID, domain.CollectionFailed, cause.Error()); err != nil {
		logger.CtxError(ctx, "Failed to mark company failed: %v", err)
	}
	return cause
}

// toConfirmed turns generated prompts into rows. Creation times increase
// by one microsecond per prompt so listing by created_at keeps the order.
func toConfirmed(ps []prompts.Prompt, rec *domain.OnboardingRecord, companyID string) []domain.ConfirmedPrompt {
	base := time.Now().UTC().Truncate(time.Microsecond)
	out := make([]domain.ConfirmedPrompt, len(ps))
	for i, p := range ps {
		cp := domain.ConfirmedPrompt{
			ID:              uuid.NewString(),
			OnboardingID:    rec.ID,
			UserID:          rec.UserID,
			CompanyID:       companyID,
			PromptText:      p.Text,
			PromptCategory:  p.Category,
			PromptTheme:     p.Theme,
			PromptType:      p.Type,
			IndustryContext: rec.Industry,
			IsActive:        true,
			CreatedAt:       base.Add(time.Duration(i) * time.Microsecond),
		}
		if p.TalentXAttributeID != "" {
			id := p.TalentXAttributeID
			cp.TalentXAttributeID = &id
		}
		if p.JobFunction != "" {
			jf := p.JobFunction
			cp.JobFunctionContext = &jf
		}
		if p.Location != "" {
			loc := p.Location
			cp.LocationContext = &loc
		}
		out[i] = cp
	}
	return out
}
