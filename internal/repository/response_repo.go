package repository

import (
	"context"

	"github.com/perceptionx/collector/internal/domain"
	"gorm.io/gorm"
)

// ResponseRepository handles prompt response operations.
type ResponseRepository struct {
	db *gorm.DB
}

// NewResponseRepository creates a new ResponseRepository.
func NewResponseRepository(db *gorm.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

// Exists checks whether a response is stored for a (prompt, model) pair.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - promptID: confirmed prompt ID.
//   - aiModel: model identifier.
// Returns:
//   - bool: true if a row exists.
//   - error: non-nil if the lookup fails.
func (r *ResponseRepository) Exists(ctx context.Context, promptID, aiModel string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.PromptResponse{}).
		Where("confirmed_prompt_id = ? AND ai_model = ?", promptID, aiModel).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new response.
func (r *ResponseRepository) Create(ctx context.Context, resp *domain.PromptResponse) error {
	return r.db.WithContext(ctx).Create(resp).Error
}

// AnalysisUpdate carries the derived fields written after analysis.
type AnalysisUpdate struct {
	SentimentScore      float64
	SentimentLabel      string
	CompanyMentioned    bool
	DetectedCompetitors string
	Themes              []string
}

// UpdateAnalysis writes analysis results onto a stored response.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: response ID.
//   - a: derived fields.
// Returns:
//   - error: non-nil if the update fails.
func (r *ResponseRepository) UpdateAnalysis(ctx context.Context, id string, a AnalysisUpdate) error {
	return r.db.WithContext(ctx).
		Model(&domain.PromptResponse{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"sentiment_score":      a.SentimentScore,
			"sentiment_label":      a.SentimentLabel,
			"company_mentioned":    a.CompanyMentioned,
			"detected_competitors": a.DetectedCompetitors,
			"themes":               domain.StringArray(a.Themes),
		}).Error
}

// GetByID retrieves a response by its ID.
func (r *ResponseRepository) GetByID(ctx context.Context, id string) (*domain.PromptResponse, error) {
	var resp domain.PromptResponse
	if err := r.db.WithContext(ctx).First(&resp, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListByPromptIDs returns every response for the given prompts.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - promptIDs: confirmed prompt IDs of one run.
// Returns:
//   - []domain.PromptResponse: matching rows, oldest first.
//   - error: non-nil if the query fails.
func (r *ResponseRepository) ListByPromptIDs(ctx context.Context, promptIDs []string) ([]domain.PromptResponse, error) {
	if len(promptIDs) == 0 {
		return nil, nil
	}
	var out []domain.PromptResponse
	if err := r.db.WithContext(ctx).
		Where("confirmed_prompt_id IN ?", promptIDs).
		Order("tested_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListByCompany returns a company's responses, optionally filtered by model.
func (r *ResponseRepository) ListByCompany(ctx context.Context, companyID, aiModel string) ([]domain.PromptResponse, error) {
	q := r.db.WithContext(ctx).Where("company_id = ?", companyID)
	if aiModel != "" {
		q = q.Where("ai_model = ?", aiModel)
	}
	var out []domain.PromptResponse
	if err := q.Order("tested_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
