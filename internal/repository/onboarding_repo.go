package repository

import (
	"context"
	"fmt"

	"github.com/perceptionx/collector/internal/domain"
	"gorm.io/gorm"
)

// OnboardingRepository handles onboarding record operations.
type OnboardingRepository struct {
	db *gorm.DB
}

// NewOnboardingRepository creates a new OnboardingRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *OnboardingRepository: repository instance bound to db.
func NewOnboardingRepository(db *gorm.DB) *OnboardingRepository {
	return &OnboardingRepository{db: db}
}

// CreateWithCompany inserts an onboarding record and its company in one
// transaction. Either both rows exist afterwards or neither does.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - rec: onboarding record to persist.
//   - company: company row to persist; its OnboardingID is set from rec.
// Returns:
//   - error: non-nil if either insert fails.
func (r *OnboardingRepository) CreateWithCompany(ctx context.Context, rec *domain.OnboardingRecord, company *domain.Company) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("failed to create onboarding record: %w", err)
		}
		company.OnboardingID = rec.ID
		if err := tx.Create(company).Error; err != nil {
			return fmt.Errorf("failed to create company: %w", err)
		}
		return nil
	})
}

// GetByID retrieves an onboarding record by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: onboarding ID.
// Returns:
//   - *domain.OnboardingRecord: record if found.
//   - error: gorm.ErrRecordNotFound if missing.
func (r *OnboardingRepository) GetByID(ctx context.Context, id string) (*domain.OnboardingRecord, error) {
	var rec domain.OnboardingRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarkPromptsCompleted sets prompts_completed on the record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: onboarding ID.
// Returns:
//   - error: non-nil if the update fails.
func (r *OnboardingRepository) MarkPromptsCompleted(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&domain.OnboardingRecord{}).
		Where("id = ?", id).
		Update("prompts_completed", true).Error
}

// ListByUser returns a user's onboarding records, newest first.
func (r *OnboardingRepository) ListByUser(ctx context.Context, userID string) ([]domain.OnboardingRecord, error) {
	var recs []domain.OnboardingRecord
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}
