package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/perceptionx/collector/internal/domain"
	"github.com/perceptionx/collector/internal/logger"
	"github.com/perceptionx/collector/internal/repository"
)

// DispatchInput is one dispatch run over confirmed prompts.
type DispatchInput struct {
	CompanyID   string
	CompanyName string
	Prompts     []domain.ConfirmedPrompt
}

// DispatchStats counts pair outcomes of a run.
type DispatchStats struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Responded      int `json:"responded"`
	Analyzed       int `json:"analyzed"`
	Duplicates     int `json:"duplicates"`
	Skipped        int `json:"skipped"`
	AnalysisErrors int `json:"analysis_errors"`
}

// Succeeded returns how many pairs have a stored response after the run.
func (s DispatchStats) Succeeded() int {
	return s.Responded + s.Duplicates
}

// Dispatcher sends every prompt to every model and stores the answers.
type Dispatcher struct {
	models      []ModelCaller
	responses   *repository.ResponseRepository
	analyzer    Analyzer
	concurrency int
}

// NewDispatcher creates a dispatcher. Concurrency 1 keeps the strict
// prompt-then-model order; higher values run that many pairs at once.
func NewDispatcher(models []ModelCaller, responses *repository.ResponseRepository, analyzer Analyzer, concurrency int) *Dispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Dispatcher{models: models, responses: responses, analyzer: analyzer, concurrency: concurrency}
}

// Models returns the model names in dispatch order.
func (d *Dispatcher) Models() []string {
	out := make([]string, len(d.models))
	for i, m := range d.models {
		out[i] = m.Name()
	}
	return out
}

// Total returns the number of pairs a run over n prompts visits.
func (d *Dispatcher) Total(n int) int {
	return n * len(d.models)
}

// Run visits every (prompt, model) pair once. Pair failures are logged and
// counted as completed; the run only fails when no pair has a response.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - in: prompts and the company they belong to.
//   - emit: receives one event per visited pair; may be nil.
//
// Returns:
//   - *DispatchStats: outcome counts; Completed always equals Total.
//   - error: ctx.Err() wrapped when the run was cancelled, otherwise
//     ErrNoOperationsCompleted when nothing succeeded.
func (d *Dispatcher) Run(ctx context.Context, in DispatchInput, emit func(ProgressEvent)) (*DispatchStats, error) {
	ctx = logger.SetComponent(ctx, "dispatch")
	stats := &DispatchStats{Total: d.Total(len(in.Prompts))}
	started := time.Now()

	var mu sync.Mutex
	record := func(p domain.ConfirmedPrompt, model string, outcome PairOutcome, analysisErr bool) {
		mu.Lock()
		defer mu.Unlock()
		switch outcome {
		case OutcomeDuplicate:
			stats.Duplicates++
		case OutcomeSkipped:
			stats.Skipped++
		case OutcomeAnalyzed:
			stats.Responded++
			stats.Analyzed++
		case OutcomeResponded:
			stats.Responded++
		}
		if analysisErr {
			stats.AnalysisErrors++
		}
		if stats.Completed < stats.Total {
			stats.Completed++
		}
		if emit != nil {
			emit(ProgressEvent{
				CompanyID:     in.CompanyID,
				CurrentPrompt: p.PromptText,
				CurrentModel:  model,
				Completed:     stats.Completed,
				Total:         stats.Total,
				Outcome:       outcome,
			})
		}
	}

	if d.concurrency == 1 {
		for _, p := range in.Prompts {
			for _, m := range d.models {
				outcome, aErr := d.runPair(ctx, in, p, m)
				record(p, m.Name(), outcome, aErr)
			}
		}
	} else {
		g := new(errgroup.Group)
		g.SetLimit(d.concurrency)
		for _, p := range in.Prompts {
			for _, m := range d.models {
				g.Go(func() error {
					outcome, aErr := d.runPair(ctx, in, p, m)
					record(p, m.Name(), outcome, aErr)
					return nil
				})
			}
		}
		_ = g.Wait()
	}

	logger.With(logger.Fields{
		logger.FieldCompleted: stats.Completed,
		logger.FieldTotal:     stats.Total,
	}).WithDuration(time.Since(started).Milliseconds()).
		Info(ctx, "Dispatch finished: %d responded, %d duplicates, %d skipped", stats.Responded, stats.Duplicates, stats.Skipped)

	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("dispatch interrupted with %d of %d pairs stored: %w", stats.Succeeded(), stats.Total, err)
	}
	if stats.Succeeded() == 0 {
		return stats, ErrNoOperationsCompleted
	}
	return stats, nil
}

// runPair handles one (prompt, model) pair. The bool result reports an
// analysis failure.
func (d *Dispatcher) runPair(ctx context.Context, in DispatchInput, p domain.ConfirmedPrompt, m ModelCaller) (PairOutcome, bool) {
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldPromptID: p.ID,
		logger.FieldAIModel:  m.Name(),
	})
	if ctx.Err() != nil {
		return OutcomeSkipped, false
	}

	exists, err := d.responses.Exists(ctx, p.ID, m.Name())
	if err != nil {
		logger.CtxError(ctx, "Failed to check existing response: %v", err)
		return OutcomeSkipped, false
	}
	if exists {
		logger.CtxDebug(ctx, "Response already stored, skipping")
		return OutcomeDuplicate, false
	}

	if ctx.Err() != nil {
		return OutcomeSkipped, false
	}

	answer, err := m.Ask(ctx, p.PromptText)
	if err != nil {
		logger.CtxWarn(ctx, "Model call failed, skipping: %v", err)
		return OutcomeSkipped, false
	}

	resp := &domain.PromptResponse{
		ID:                uuid.NewString(),
		ConfirmedPromptID: p.ID,
		CompanyID:         in.CompanyID,
		AIModel:           m.Name(),
		ResponseText:      answer.Text,
		Citations:         domain.RawCitations(answer.Citations),
		TestedAt:          time.Now(),
	}
	// an answer already received is kept even if the run was cancelled meanwhile
	if err := d.responses.Create(context.WithoutCancel(ctx), resp); err != nil {
		logger.CtxError(ctx, "Failed to store response: %v", err)
		return OutcomeSkipped, false
	}

	if d.analyzer == nil || ctx.Err() != nil {
		return OutcomeResponded, false
	}
	if in.CompanyID == "" {
		logger.CtxError(ctx, "Missing company id, skipping analysis")
		return OutcomeResponded, true
	}
	_, err = d.analyzer.Analyze(ctx, AnalysisRequest{
		ResponseID:        resp.ID,
		ResponseText:      answer.Text,
		CompanyName:       in.CompanyName,
		PromptType:        p.PromptType,
		Citations:         domain.NormalizeCitations(answer.Citations),
		ConfirmedPromptID: p.ID,
		AIModel:           m.Name(),
		CompanyID:         in.CompanyID,
	})
	if err != nil {
		logger.CtxWarn(ctx, "Response analysis failed: %v", err)
		return OutcomeResponded, true
	}
	return OutcomeAnalyzed, false
}
