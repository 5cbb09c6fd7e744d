package repository

import (
	"context"
	"time"

	"github.com/perceptionx/collector/internal/domain"
	"gorm.io/gorm"
)

var allStatuses = []domain.CollectionStatus{
	domain.CollectionPending,
	domain.CollectionCollectingSearchInsights,
	domain.CollectionCollectingLLMData,
	domain.CollectionCompleted,
	domain.CollectionFailed,
}

// CompanyRepository handles company row operations.
type CompanyRepository struct {
	db *gorm.DB
}

// NewCompanyRepository creates a new CompanyRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *CompanyRepository: repository instance bound to db.
func NewCompanyRepository(db *gorm.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// GetByID retrieves a company by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: company ID.
// Returns:
//   - *domain.Company: company if found.
//   - error: gorm.ErrRecordNotFound if missing.
func (r *CompanyRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	var c domain.Company
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByOnboardingID retrieves the company created with an onboarding record.
func (r *CompanyRepository) GetByOnboardingID(ctx context.Context, onboardingID string) (*domain.Company, error) {
	var c domain.Company
	if err := r.db.WithContext(ctx).First(&c, "onboarding_id = ?", onboardingID).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// TransitionStatus moves a company to next when its current status allows
// it. The check and the write happen in a single conditional UPDATE.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: company ID.
//   - next: target status.
//   - lastError: stored with failed transitions; ignored otherwise.
// Returns:
//   - bool: true if the row changed.
//   - error: non-nil if the update fails.
func (r *CompanyRepository) TransitionStatus(ctx context.Context, id string, next domain.CollectionStatus, lastError string) (bool, error) {
	var from []domain.CollectionStatus
	for _, s := range allStatuses {
		if s.CanTransition(next) {
			from = append(from, s)
		}
	}
	if len(from) == 0 {
		return false, nil
	}

	now := time.Now()
	updates := map[string]interface{}{
		"data_collection_status": next,
		"updated_at":             now,
	}
	switch next {
	case domain.CollectionCollectingSearchInsights, domain.CollectionCollectingLLMData:
		updates["data_collection_started_at"] = gorm.Expr("COALESCE(data_collection_started_at, ?)", now)
	case domain.CollectionCompleted:
		updates["data_collection_completed_at"] = now
		updates["last_error"] = ""
	case domain.CollectionFailed:
		updates["last_error"] = lastError
	}

	res := r.db.WithContext(ctx).
		Model(&domain.Company{}).
		Where("id = ? AND data_collection_status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Reopen puts a terminal company back to pending so collection can resume.
func (r *CompanyRepository) Reopen(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Company{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"data_collection_status":       domain.CollectionPending,
			"data_collection_completed_at": nil,
			"last_error":                   "",
		}).Error
}

// SaveProgress stores the latest progress snapshot on the company row.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: company ID.
//   - p: progress snapshot.
// Returns:
//   - error: non-nil if the update fails.
func (r *CompanyRepository) SaveProgress(ctx context.Context, id string, p domain.CollectionProgress) error {
	return r.db.WithContext(ctx).
		Model(&domain.Company{}).
		Where("id = ?", id).
		Update("data_collection_progress", p).Error
}

// ListByUser returns a user's companies, newest first.
func (r *CompanyRepository) ListByUser(ctx context.Context, userID string) ([]domain.Company, error) {
	var out []domain.Company
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
