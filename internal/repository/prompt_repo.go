package repository

import (
	"context"

	"github.com/perceptionx/collector/internal/domain"
	"gorm.io/gorm"
)

// PromptRepository handles confirmed prompt operations.
type PromptRepository struct {
	db *gorm.DB
}

// NewPromptRepository creates a new PromptRepository.
func NewPromptRepository(db *gorm.DB) *PromptRepository {
	return &PromptRepository{db: db}
}

// CreateBatch inserts prompts in batches.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - prompts: prompts to persist, in generation order.
// Returns:
//   - error: non-nil if any insert fails.
func (r *PromptRepository) CreateBatch(ctx context.Context, prompts []domain.ConfirmedPrompt) error {
	if len(prompts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(prompts, 100).Error
}

// ListByOnboarding returns the prompts of one onboarding run in creation order.
func (r *PromptRepository) ListByOnboarding(ctx context.Context, onboardingID string) ([]domain.ConfirmedPrompt, error) {
	var out []domain.ConfirmedPrompt
	if err := r.db.WithContext(ctx).
		Where("onboarding_id = ?", onboardingID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListActiveByCompany returns a company's active prompts in creation order.
func (r *PromptRepository) ListActiveByCompany(ctx context.Context, companyID string) ([]domain.ConfirmedPrompt, error) {
	var out []domain.ConfirmedPrompt
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// CountByCompany returns how many prompts exist for a company.
func (r *PromptRepository) CountByCompany(ctx context.Context, companyID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.ConfirmedPrompt{}).Where("company_id = ?", companyID).Count(&n).Error
	return n, err
}
